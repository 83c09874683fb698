// ABOUTME: Root package providing module version information and top-level documentation
// ABOUTME: The counting core itself lives in counter, classregistry, snapshot, header, countingapi

// Package heapstats is the in-process snapshot counting core of a
// heap-usage profiler: concurrent per-class/per-edge object counters
// (counter), a host-pointer class registry with unload-safe lifecycle
// (classregistry), per-snapshot counter containers with a recycling pool
// (snapshot), the snapshot file header (header), and the narrow
// walker-facing operation set tying them together (countingapi).
package heapstats

// Version is the semantic version of this module.
const Version = "0.1.0-dev"
