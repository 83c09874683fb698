package header

import (
	"bytes"
	"testing"
)

// TestRoundTripGCTriggered covers scenario S6: a GC-triggered header with a
// populated GC cause and metaspace usage round-trips through Marshal and
// Unmarshal unchanged.
func TestRoundTripGCTriggered(t *testing.T) {
	h := New()
	h.SetTime(1700000000000)
	h.SetEntryCount(37)
	h.SetCause(CauseGC)
	h.SetJVMInfo(Info{
		GCCause:           "Allocation Failure",
		GCWorkTimeMillis:  12,
		FullGCCount:       42,
		YoungGCCount:      103,
		NewAreaSize:       1 << 20,
		OldAreaSize:       4 << 20,
		MetaspaceUsage:    12345678,
		MetaspaceCapacity: 67108864,
	})
	h.SetTotalHeap(5 << 20)

	if h.GCCauseLen != int64(len("Allocation Failure")) {
		t.Fatalf("GCCauseLen = %d, want %d", h.GCCauseLen, len("Allocation Failure"))
	}

	buf, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(buf) != Size {
		t.Fatalf("Marshal produced %d bytes, want %d", len(buf), Size)
	}

	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Cause != CauseGC {
		t.Errorf("Cause = %v, want CauseGC", got.Cause)
	}
	if got.GCCause != "Allocation Failure" {
		t.Errorf("GCCause = %q, want %q", got.GCCause, "Allocation Failure")
	}
	if got.FullGCCount != 42 {
		t.Errorf("FullGCCount = %d, want 42", got.FullGCCount)
	}
	if got.MetaspaceUsage != 12345678 {
		t.Errorf("MetaspaceUsage = %d, want 12345678", got.MetaspaceUsage)
	}
	if got.SnapshotTimeMillis != 1700000000000 {
		t.Errorf("SnapshotTimeMillis = %d, want 1700000000000", got.SnapshotTimeMillis)
	}
	if got.TotalHeapSize != 5<<20 {
		t.Errorf("TotalHeapSize = %d, want %d", got.TotalHeapSize, 5<<20)
	}

	// Buffer region past the cause string must be NUL-padded.
	causeRegion := buf[30:110]
	for i := len("Allocation Failure"); i < len(causeRegion); i++ {
		if causeRegion[i] != 0 {
			t.Fatalf("cause buffer byte %d = %#x, want 0 (NUL padding)", i, causeRegion[i])
		}
	}
}

// TestRoundTripNonGCClearsGCCause covers the original engine's setJvmInfo
// rule: a non-GC-triggered snapshot always clears the GC cause and
// work-time, regardless of what Info carries.
func TestRoundTripNonGCClearsGCCause(t *testing.T) {
	h := New()
	h.SetCause(CauseInterval)
	h.SetJVMInfo(Info{GCCause: "should be discarded", GCWorkTimeMillis: 999})

	if h.GCCause != "" {
		t.Fatalf("GCCause = %q, want empty", h.GCCause)
	}
	if h.GCCauseLen != 1 {
		t.Fatalf("GCCauseLen = %d, want 1 (empty-string sentinel)", h.GCCauseLen)
	}
	if h.GCWorkTimeMillis != 0 {
		t.Fatalf("GCWorkTimeMillis = %d, want 0", h.GCWorkTimeMillis)
	}

	buf, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.GCCause != "" {
		t.Fatalf("round-tripped GCCause = %q, want empty", got.GCCause)
	}
}

func TestMarshalRejectsUnknownBOM(t *testing.T) {
	h := New()
	h.BOM = 0x7f
	if _, err := h.Marshal(); err == nil {
		t.Fatal("expected Marshal to reject an unrecognized byte-order mark")
	}
}

func TestUnmarshalRejectsShortBuffer(t *testing.T) {
	if _, err := Unmarshal(make([]byte, Size-1)); err == nil {
		t.Fatal("expected Unmarshal to reject a short buffer")
	}
}

func TestUnmarshalRejectsUnknownBOM(t *testing.T) {
	buf := make([]byte, Size)
	buf[0] = MagicFormat2
	buf[1] = 0x7f
	if _, err := Unmarshal(buf); err == nil {
		t.Fatal("expected Unmarshal to reject an unrecognized byte-order mark")
	}
}

func TestBigEndianRoundTrip(t *testing.T) {
	h := New()
	h.BOM = BOMBigEndian
	h.SetTime(42)
	h.SetEntryCount(7)

	buf, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.SnapshotTimeMillis != 42 || got.ClassEntryCount != 7 {
		t.Fatalf("got = %+v", got)
	}
}

func TestHasReferenceTree(t *testing.T) {
	if New().HasReferenceTree() {
		t.Fatal("New() should not set the reference-tree bit")
	}
	if !NewRefTree().HasReferenceTree() {
		t.Fatal("NewRefTree() should set the reference-tree bit")
	}
}

func TestGCCauseTruncatedToBuffer(t *testing.T) {
	h := New()
	h.SetCause(CauseGC)
	long := bytes.Repeat([]byte("x"), GCCauseBufferSize+10)
	h.SetJVMInfo(Info{GCCause: string(long)})

	if len(h.GCCause) != GCCauseBufferSize-1 {
		t.Fatalf("truncated GCCause length = %d, want %d", len(h.GCCause), GCCauseBufferSize-1)
	}

	buf, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Unmarshal(buf); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
}

func TestTriggerCauseString(t *testing.T) {
	cases := map[TriggerCause]string{
		CauseInterval:           "interval",
		CauseGC:                 "gc",
		CauseExplicit:           "explicit",
		CauseResourceExhaustion: "resource-exhaustion",
	}
	for cause, want := range cases {
		if got := cause.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", cause, got, want)
		}
	}
}
