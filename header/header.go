// ABOUTME: SnapshotHeader: timing, GC cause, heap/metaspace sizes, and the bit-exact wire format
// ABOUTME: Marshal/Unmarshal implement the packed, no-padding layout a downstream serializer writes to disk

// Package header implements the snapshot file header: the metadata frozen
// at handoff alongside a snapshot's per-class counters, and the bit-exact
// binary layout a downstream serializer writes. Binary encoding follows the
// example corpus's heapdump/goheap style (bufio + encoding/binary fixed-
// width reads), generalized from record parsing to record writing.
package header

import (
	"encoding/binary"
	"fmt"

	"github.com/carlhuth/heapstats/logging"
)

// Magic byte values. Bit 7 set marks format 2.0; bit 0 set marks that a
// reference-tree payload follows each class entry. Bits 1-6 are reserved
// and must be zero.
const (
	MagicFormat2        byte = 0b1000_0000
	MagicFormat2RefTree byte = 0b1000_0001
)

// Byte-order-mark sentinels. A writer always emits one of these two values
// verbatim; a reader compares the value it reads against both and decodes
// every subsequent multi-byte field using the matching binary.ByteOrder,
// swapping if the producer's sentinel doesn't match the reader's native
// choice.
const (
	BOMLittleEndian byte = 0x01
	BOMBigEndian    byte = 0x02
)

// GCCauseBufferSize is the fixed width of the GC-cause string buffer.
const GCCauseBufferSize = 80

// Size is the exact on-wire size of a Header: packed, no padding.
const Size = 174

// TriggerCause enumerates what triggered a snapshot.
type TriggerCause int32

const (
	CauseInterval TriggerCause = iota
	CauseGC
	CauseExplicit
	CauseResourceExhaustion
)

func (c TriggerCause) String() string {
	switch c {
	case CauseInterval:
		return "interval"
	case CauseGC:
		return "gc"
	case CauseExplicit:
		return "explicit"
	case CauseResourceExhaustion:
		return "resource-exhaustion"
	default:
		return fmt.Sprintf("unknown(%d)", int32(c))
	}
}

// Info is the JVM/host performance metrics the walker hands in via
// SetJVMInfo — the Go analog of the original engine's TJvmInfo.
type Info struct {
	GCCause           string
	GCWorkTimeMillis  int64
	FullGCCount       int64
	YoungGCCount      int64
	NewAreaSize       int64
	OldAreaSize       int64
	MetaspaceUsage    int64
	MetaspaceCapacity int64
}

// Header is one snapshot's metadata: timing, GC cause, heap/metaspace
// sizes. Filled progressively during collection; frozen at handoff.
type Header struct {
	Magic               byte
	BOM                 byte
	SnapshotTimeMillis  int64
	ClassEntryCount     int64
	Cause               TriggerCause
	GCCauseLen          int64
	GCCause             string
	FullGCCount         int64
	YoungGCCount        int64
	GCWorkTimeMillis    int64
	NewAreaSize         int64
	OldAreaSize         int64
	TotalHeapSize       int64
	MetaspaceUsage      int64
	MetaspaceCapacity   int64
}

// New returns a Header initialized for format 2.0 with no reference-tree
// payload, using the little-endian BOM.
func New() *Header {
	h := &Header{Magic: MagicFormat2, BOM: BOMLittleEndian}
	h.clearGCCause()
	return h
}

// NewRefTree returns a Header initialized for format 2.0 with the
// reference-tree payload bit set.
func NewRefTree() *Header {
	h := New()
	h.Magic = MagicFormat2RefTree
	return h
}

// HasReferenceTree reports whether bit 0 of Magic is set.
func (h *Header) HasReferenceTree() bool { return h.Magic&0x01 != 0 }

// SetTime sets the snapshot's timestamp, in milliseconds since the host
// epoch.
func (h *Header) SetTime(t int64) { h.SnapshotTimeMillis = t }

// SetCause sets the snapshot's trigger cause.
func (h *Header) SetCause(c TriggerCause) { h.Cause = c }

// SetEntryCount sets the class-entry count.
func (h *Header) SetEntryCount(n int64) { h.ClassEntryCount = n }

// SetTotalHeap sets the total heap size. Called separately from SetJVMInfo
// because the host's "total memory" query may itself trigger a GC on some
// runtimes, and SetJVMInfo is meant to be callable from inside a GC-entry
// context.
func (h *Header) SetTotalHeap(size int64) { h.TotalHeapSize = size }

// SetJVMInfo copies the host's GC/heap metrics into the header. If the
// header's Cause is CauseGC, the GC-cause string (bounded and truncated to
// the fixed-size buffer) and GC work-time are copied from info; otherwise
// both are cleared to their empty forms.
func (h *Header) SetJVMInfo(info Info) {
	if h.Cause == CauseGC {
		h.setGCCause(info.GCCause)
		h.GCWorkTimeMillis = info.GCWorkTimeMillis
	} else {
		h.clearGCCause()
		h.GCWorkTimeMillis = 0
	}

	h.FullGCCount = info.FullGCCount
	h.YoungGCCount = info.YoungGCCount
	h.NewAreaSize = info.NewAreaSize
	h.OldAreaSize = info.OldAreaSize
	h.MetaspaceUsage = info.MetaspaceUsage
	h.MetaspaceCapacity = info.MetaspaceCapacity
}

func (h *Header) clearGCCause() {
	h.GCCause = ""
	h.GCCauseLen = 1
}

func (h *Header) setGCCause(cause string) {
	if len(cause) >= GCCauseBufferSize {
		cause = cause[:GCCauseBufferSize-1]
	}
	h.GCCause = cause
	h.GCCauseLen = int64(len(cause))
}

// LogSummary logs a human-readable summary of the header, the Go analog of
// the original engine's TSnapShotContainer::printGCInfo: GC cause/worktime
// only when the snapshot was GC-triggered, then GC counts, area sizes, and
// metaspace usage/capacity.
func (h *Header) LogSummary(logger logging.Logger) {
	logger.Info("GC statistics information")

	if h.Cause == CauseGC {
		logger.Info("gc cause",
			logging.String("cause", h.GCCause),
			logging.Int64("worktime_ms", h.GCWorkTimeMillis))
	}

	logger.Info("gc count",
		logging.Int64("full_gc", h.FullGCCount),
		logging.Int64("young_gc", h.YoungGCCount))

	logger.Info("area usage",
		logging.Int64("new_area_bytes", h.NewAreaSize),
		logging.Int64("old_area_bytes", h.OldAreaSize),
		logging.Int64("total_heap_bytes", h.TotalHeapSize))

	logger.Info("metaspace usage",
		logging.Int64("usage_bytes", h.MetaspaceUsage),
		logging.Int64("capacity_bytes", h.MetaspaceCapacity))
}

// Marshal encodes h into the bit-exact, packed layout described by this
// module's external interface: 174 bytes, no padding, multi-byte fields in
// the order h.BOM designates.
func (h *Header) Marshal() ([]byte, error) {
	order, err := byteOrderFor(h.BOM)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, Size)
	buf[0] = h.Magic
	buf[1] = h.BOM
	order.PutUint64(buf[2:10], uint64(h.SnapshotTimeMillis))
	order.PutUint64(buf[10:18], uint64(h.ClassEntryCount))
	order.PutUint32(buf[18:22], uint32(h.Cause))
	order.PutUint64(buf[22:30], uint64(h.GCCauseLen))

	copy(buf[30:110], h.GCCause) // remaining bytes are already zero (NUL-padded)

	order.PutUint64(buf[110:118], uint64(h.FullGCCount))
	order.PutUint64(buf[118:126], uint64(h.YoungGCCount))
	order.PutUint64(buf[126:134], uint64(h.GCWorkTimeMillis))
	order.PutUint64(buf[134:142], uint64(h.NewAreaSize))
	order.PutUint64(buf[142:150], uint64(h.OldAreaSize))
	order.PutUint64(buf[150:158], uint64(h.TotalHeapSize))
	order.PutUint64(buf[158:166], uint64(h.MetaspaceUsage))
	order.PutUint64(buf[166:174], uint64(h.MetaspaceCapacity))

	return buf, nil
}

// Unmarshal decodes a Header from its bit-exact wire layout.
func Unmarshal(data []byte) (*Header, error) {
	if len(data) < Size {
		return nil, fmt.Errorf("header: need %d bytes, got %d", Size, len(data))
	}

	h := &Header{Magic: data[0], BOM: data[1]}
	order, err := byteOrderFor(h.BOM)
	if err != nil {
		return nil, err
	}

	h.SnapshotTimeMillis = int64(order.Uint64(data[2:10]))
	h.ClassEntryCount = int64(order.Uint64(data[10:18]))
	h.Cause = TriggerCause(order.Uint32(data[18:22]))
	h.GCCauseLen = int64(order.Uint64(data[22:30]))

	causeBuf := data[30:110]
	nul := len(causeBuf)
	for i, b := range causeBuf {
		if b == 0 {
			nul = i
			break
		}
	}
	h.GCCause = string(causeBuf[:nul])

	h.FullGCCount = int64(order.Uint64(data[110:118]))
	h.YoungGCCount = int64(order.Uint64(data[118:126]))
	h.GCWorkTimeMillis = int64(order.Uint64(data[126:134]))
	h.NewAreaSize = int64(order.Uint64(data[134:142]))
	h.OldAreaSize = int64(order.Uint64(data[142:150]))
	h.TotalHeapSize = int64(order.Uint64(data[150:158]))
	h.MetaspaceUsage = int64(order.Uint64(data[158:166]))
	h.MetaspaceCapacity = int64(order.Uint64(data[166:174]))

	return h, nil
}

func byteOrderFor(bom byte) (binary.ByteOrder, error) {
	switch bom {
	case BOMLittleEndian:
		return binary.LittleEndian, nil
	case BOMBigEndian:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("header: unrecognized byte-order mark %#x", bom)
	}
}
