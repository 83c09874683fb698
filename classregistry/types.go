// ABOUTME: ClassRecord and related value types — the durable identity every host class gets
// ABOUTME: Grounded on the original engine's TObjectData and TClassContainer data members

package classregistry

import "sync/atomic"

// HostPtr is the host runtime's internal class pointer. It is opaque and
// numeric: the registry never dereferences it, it only uses it as a lookup
// key and is told by the host when it changes (relocate) or stops meaning
// anything (mark-unloaded).
type HostPtr uintptr

// OopType tags the shape of a class: ordinary object, array-of-primitive, or
// array-of-reference. Mirrors the original engine's TOopType enum.
type OopType int

const (
	OopOrdinary OopType = iota
	OopArrayPrimitive
	OopArrayRef
	OopUnknown
)

// AlertType is the memory-usage alert category a downstream SNMP emitter
// would key off. This package only defines the type; no record or header
// field holds it, and no alerting logic lives in this module (that
// collaborator is out of scope).
type AlertType int

const (
	AlertJavaHeap AlertType = iota
	AlertMetaspace
)

// ClassRecord is the profiler's durable identity for a host class,
// independent of the host's possibly-relocating class pointer. Created on
// first sighting by the walker; mutated only at safepoints thereafter.
type ClassRecord struct {
	// Tag is the monotonic, never-reused identifier assigned at intern time.
	Tag int64

	// ClassName is the class's name, stored as bytes (not string) to mirror
	// the original's length-prefixed className/classNameLen pair and to
	// avoid a copy when the walker hands in a byte slice straight from the
	// host's class metadata.
	ClassName []byte

	LoaderID     int64
	LoaderTag    int64
	InstanceSize int64
	OopType      OopType

	// unloaded and unloadSerial back is-unloaded / purge-unloaded-after.
	unloaded     atomic.Bool
	unloadSerial atomic.Int64

	// hostPtr is the last-known host pointer for this record, updated only
	// by Relocate at a safepoint.
	hostPtr atomic.Uintptr

	// lastTotalSize backs the supplemented delta-tracking feature
	// (classContainer.hpp's TObjectData.oldTotalSize).
	lastTotalSize atomic.Int64
}

// IsUnloaded reports whether the record has been marked unloaded.
func (r *ClassRecord) IsUnloaded() bool { return r.unloaded.Load() }

// HostPointer returns the record's last-known host pointer.
func (r *ClassRecord) HostPointer() HostPtr { return HostPtr(r.hostPtr.Load()) }

// Delta is one class's byte-usage change since the last recorded snapshot,
// the Go analog of the original engine's THeapDelta.
type Delta struct {
	Tag        int64
	Usage      int64
	DeltaBytes int64
}
