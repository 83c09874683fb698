package classregistry

import (
	"sync"
	"testing"
)

func TestInternFindsOrCreates(t *testing.T) {
	r := New(nil)

	rec := r.Intern(0x1000, &ClassRecord{ClassName: []byte("com.example.Foo")})
	if rec.Tag == 0 {
		t.Fatalf("expected a non-zero durable tag, got %d", rec.Tag)
	}

	again := r.Intern(0x1000, &ClassRecord{ClassName: []byte("com.example.Foo (provisional)")})
	if again != rec {
		t.Fatalf("expected Intern to return the same record on the second call")
	}
	if string(again.ClassName) != "com.example.Foo" {
		t.Fatalf("loser's provisional record leaked through: %q", again.ClassName)
	}
}

func TestInternRacingInstallersConverge(t *testing.T) {
	r := New(nil)
	const n = 64

	results := make([]*ClassRecord, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			results[idx] = r.Intern(0x2000, &ClassRecord{ClassName: []byte("racer")})
		}(i)
	}
	wg.Wait()

	first := results[0]
	for i, rec := range results {
		if rec != first {
			t.Fatalf("installer %d converged to a different record than installer 0", i)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("registry should hold exactly one record, holds %d", r.Len())
	}
}

func TestFindMissingReturnsFalse(t *testing.T) {
	r := New(nil)
	if rec, ok := r.Find(0xdead); ok || rec != nil {
		t.Fatalf("Find on empty registry = (%v, %v), want (nil, false)", rec, ok)
	}
}

// TestUnloadAndRelocation covers scenario S5: intern K at 0x1000, mark
// unloaded, relocate to 0x2000; find(0x2000) returns the same record,
// find(0x1000) returns nil, and IsUnloaded is observable as true.
func TestUnloadAndRelocation(t *testing.T) {
	r := New(nil)

	k := r.Intern(0x1000, &ClassRecord{ClassName: []byte("K")})
	r.MarkUnloaded(k, 1)
	r.Relocate(0x1000, 0x2000)

	found, ok := r.Find(0x2000)
	if !ok || found != k {
		t.Fatalf("Find(0x2000) = (%v, %v), want (%v, true)", found, ok, k)
	}

	if missing, ok := r.Find(0x1000); ok || missing != nil {
		t.Fatalf("Find(0x1000) = (%v, %v), want (nil, false)", missing, ok)
	}

	if !k.IsUnloaded() {
		t.Fatalf("expected IsUnloaded() to be true")
	}
	if k.HostPointer() != 0x2000 {
		t.Fatalf("HostPointer() = %#x, want 0x2000", k.HostPointer())
	}
}

func TestRelocateMissingOldPointerIsNoop(t *testing.T) {
	r := New(nil)
	r.Relocate(0x9999, 0xaaaa) // must not panic
	if r.Len() != 0 {
		t.Fatalf("expected registry to remain empty, got %d entries", r.Len())
	}
}

func TestPurgeUnloadedAfter(t *testing.T) {
	r := New(nil)

	a := r.Intern(1, &ClassRecord{ClassName: []byte("A")})
	b := r.Intern(2, &ClassRecord{ClassName: []byte("B")})
	c := r.Intern(3, &ClassRecord{ClassName: []byte("C")})

	r.MarkUnloaded(a, 5)
	r.MarkUnloaded(b, 10)
	_ = c

	purged := r.PurgeUnloadedAfter(10)
	if purged != 1 {
		t.Fatalf("PurgeUnloadedAfter(10) purged %d, want 1", purged)
	}
	if _, ok := r.Find(1); ok {
		t.Fatalf("record unloaded at serial 5 should have been purged by PurgeUnloadedAfter(10)")
	}
	if _, ok := r.Find(2); !ok {
		t.Fatalf("record unloaded at serial 10 should NOT be purged by PurgeUnloadedAfter(10) (not strictly before)")
	}
	if _, ok := r.Find(3); !ok {
		t.Fatalf("never-unloaded record should never be purged")
	}
}

func TestUnloadedSince(t *testing.T) {
	r := New(nil)
	a := r.Intern(1, &ClassRecord{})
	b := r.Intern(2, &ClassRecord{})
	r.MarkUnloaded(a, 3)
	r.MarkUnloaded(b, 7)

	pending := r.UnloadedSince(5)
	if len(pending) != 1 || pending[0] != b {
		t.Fatalf("UnloadedSince(5) = %v, want [b]", pending)
	}
}

func TestRecordUsageTracksDelta(t *testing.T) {
	r := New(nil)
	k := r.Intern(1, &ClassRecord{})

	d1 := r.RecordUsage(k, 1000)
	if d1.DeltaBytes != 1000 {
		t.Fatalf("first RecordUsage delta = %d, want 1000", d1.DeltaBytes)
	}

	d2 := r.RecordUsage(k, 1500)
	if d2.DeltaBytes != 500 {
		t.Fatalf("second RecordUsage delta = %d, want 500", d2.DeltaBytes)
	}
	if d2.Usage != 1500 || d2.Tag != k.Tag {
		t.Fatalf("RecordUsage() = %+v", d2)
	}
}

func TestLenCountsAcrossShards(t *testing.T) {
	r := New(nil)
	for i := 0; i < 200; i++ {
		r.Intern(HostPtr(i+1), &ClassRecord{})
	}
	if r.Len() != 200 {
		t.Fatalf("Len() = %d, want 200", r.Len())
	}
}
