// ABOUTME: Container owns one snapshot's header, class counters, and per-edge child counters
// ABOUTME: Intrusive singly-linked child lists with spin-locked append and unsynchronized LFU promotion

// Package snapshot implements one snapshot's worth of counters: the
// class -> ClassCounter map and, under each ClassCounter, the intrusive
// linked list of ChildClassCounter entries tracking per-reference-edge
// byte totals. Grounded on the example corpus's graph.MemGraph locking
// style (a sync.RWMutex-guarded map with read-locked lookups) generalized
// from a graph's adjacency map to a snapshot's class map, and on
// heapdump.parserRegistry for the map-guarding pattern itself.
package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/carlhuth/heapstats/classregistry"
	"github.com/carlhuth/heapstats/counter"
	"github.com/carlhuth/heapstats/header"
	"github.com/carlhuth/heapstats/internal/spinlock"
)

// OffsetTable is the optional cached reference-field-offset table a
// reference-tree-capable snapshot attaches to a ClassCounter. The caller
// sets it; Container does not consult the header's reference-tree bit. A
// clear resets it to nil (offsets are re-derived per snapshot to tolerate
// class redefinition).
type OffsetTable struct {
	Offsets []uintptr
}

// ChildClassCounter is one outgoing-reference-edge counter: how much of
// the parent ClassCounter's retained size flows through references to
// this child class.
type ChildClassCounter struct {
	Record    *classregistry.ClassRecord
	Counter   *counter.ObjectCounter
	callCount atomic.Int64
	next      *ChildClassCounter
}

// CallCount returns the number of find-child hits recorded against this
// edge, the value LFU promotion compares against its preceding sibling.
func (c *ChildClassCounter) CallCount() int64 { return c.callCount.Load() }

// ClassCounter owns one class's root counter plus the intrusive list of
// its outgoing-edge ChildClassCounters.
type ClassCounter struct {
	Record  *classregistry.ClassRecord
	Counter *counter.ObjectCounter
	Offsets *OffsetTable

	lock int32 // spinlock word guarding child-list append (and, optionally, promotion)
	head *ChildClassCounter

	// owner lets PushChild tell the container it has become dirty, since
	// the container otherwise has no hook into per-ClassCounter mutation.
	owner *Container
}

func newClassCounter(rec *classregistry.ClassRecord, owner *Container) *ClassCounter {
	return &ClassCounter{Record: rec, Counter: counter.New(), owner: owner}
}

// Children returns the child counters reachable from the list head, in
// current list order. Intended for tests and diagnostics; the hot path
// never needs a full materialized slice.
func (c *ClassCounter) Children() []*ChildClassCounter {
	var out []*ChildClassCounter
	for n := c.head; n != nil; n = n.next {
		out = append(out, n)
	}
	return out
}

// FindChild walks the intrusive child list for rec, applying single-step
// LFU promotion on a hit: the hit's call-count is incremented, and if its
// immediately preceding sibling has a lower-or-equal call-count, the two
// are swapped so the hit moves one slot toward the head.
//
// This walk does not take the per-ClassCounter spin-lock. It is only safe
// when callers partition objects so at most one thread traverses a given
// parent's child list at a time (the walker's safepoint partitioning
// assumption). Callers that cannot guarantee that must use
// FindChildSynchronized instead.
func (c *ClassCounter) FindChild(rec *classregistry.ClassRecord) (*ChildClassCounter, bool) {
	return c.findChild(rec)
}

// FindChildSynchronized is FindChild with the promotion swap covered by
// the ClassCounter's spin-lock, for callers that cannot guarantee
// partitioned, non-concurrent list traversal.
func (c *ClassCounter) FindChildSynchronized(rec *classregistry.ClassRecord) (*ChildClassCounter, bool) {
	spinlock.Lock(&c.lock)
	defer spinlock.Unlock(&c.lock)
	return c.findChild(rec)
}

func (c *ClassCounter) findChild(rec *classregistry.ClassRecord) (*ChildClassCounter, bool) {
	var grandparent, parent, cur *ChildClassCounter
	cur = c.head

	for cur != nil {
		if cur.Record == rec {
			cur.callCount.Add(1)

			if parent != nil && parent.callCount.Load() <= cur.callCount.Load() {
				// Swap cur and parent in place: grandparent -> cur -> parent -> rest.
				rest := cur.next
				parent.next = rest
				cur.next = parent
				if grandparent != nil {
					grandparent.next = cur
				} else {
					c.head = cur
				}
			}

			return cur, true
		}

		grandparent, parent, cur = parent, cur, cur.next
	}

	return nil, false
}

// PushChild allocates a new ChildClassCounter for rec and appends it to
// the tail of the child list, under the ClassCounter's spin-lock.
func (c *ClassCounter) PushChild(rec *classregistry.ClassRecord) *ChildClassCounter {
	child := &ChildClassCounter{Record: rec, Counter: counter.New()}

	spinlock.Lock(&c.lock)
	defer spinlock.Unlock(&c.lock)

	if c.head == nil {
		c.head = child
	} else {
		tail := c.head
		for tail.next != nil {
			tail = tail.next
		}
		tail.next = child
	}

	if c.owner != nil {
		c.owner.markDirty()
	}
	return child
}

func (c *ClassCounter) clear() {
	c.Counter.Clear()
	c.Offsets = nil
	for n := c.head; n != nil; n = n.next {
		n.Counter.Clear()
	}
}

// Container is one snapshot's counters and header.
type Container struct {
	hdr atomic.Pointer[header.Header]

	mu      sync.RWMutex
	classes map[*classregistry.ClassRecord]*ClassCounter
	cleared bool
}

// NewContainer allocates a fresh, cleared Container with a default
// header. Acquire/Release lifecycle is Pool's responsibility; this
// constructor is pool's fallback on a miss and is also useful directly in
// tests that don't need pooling.
func NewContainer() *Container {
	c := &Container{classes: make(map[*classregistry.ClassRecord]*ClassCounter), cleared: true}
	c.hdr.Store(header.New())
	return c
}

// Header returns the container's current header. Safe to call
// concurrently with SetHeaderFields: the header pointer is published with
// atomic store/load so a concurrent progress reporter observes either the
// old or the fully-written new header, never a partial write.
func (c *Container) Header() *header.Header { return c.hdr.Load() }

// SetHeaderFields writes the trigger cause, JVM/GC info, and total heap
// size through the container's header.
//
// Writes go through a copy: mutating the loaded *header.Header in place
// and storing the same pointer back would give Header's concurrent
// readers no atomicity at all, since they'd be looking at the very
// struct this method is still writing into. Copy-on-write publishes a
// new, fully-written header in one atomic store, so a concurrent
// Header() call observes either the old header or the new one, never a
// partial write.
func (c *Container) SetHeaderFields(cause header.TriggerCause, info header.Info, totalHeapSize int64) {
	cp := *c.hdr.Load()
	cp.SetCause(cause)
	cp.SetJVMInfo(info)
	cp.SetTotalHeap(totalHeapSize)
	c.hdr.Store(&cp)
}

// FindClass performs a lock-free (read-locked) lookup of rec's counter.
func (c *Container) FindClass(rec *classregistry.ClassRecord) (*ClassCounter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cc, ok := c.classes[rec]
	return cc, ok
}

// PushClass finds or allocates the ClassCounter for rec. On a race
// between two installers, the losing allocation is discarded and the
// winner's counter is returned.
func (c *Container) PushClass(rec *classregistry.ClassRecord) *ClassCounter {
	c.mu.RLock()
	if cc, ok := c.classes[rec]; ok {
		c.mu.RUnlock()
		return cc
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.classes[rec]; ok {
		return cc
	}
	cc := newClassCounter(rec, c)
	c.classes[rec] = cc
	c.cleared = false
	return cc
}

// markDirty clears the cleared flag. Called by a ClassCounter on
// PushChild, since appending a child edge is a mutation the container
// would otherwise never observe.
func (c *Container) markDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = false
}

// Clear zeroes every counter (root and child) and releases offset-table
// caches. A non-forced clear of an already-cleared container performs no
// writes. The class map's keys and ClassCounter shells are retained so a
// reused container keeps its shape.
//
// The cleared flag only tracks mutations Clear can see through the
// container itself (PushClass, PushChild): the hot path increments
// counters directly through the ClassCounter/ChildClassCounter pointers
// PushClass/PushChild already returned, entirely bypassing the
// container, by design (§4.2's "never call into general-purpose
// logging" constraint applies equally to any container bookkeeping
// call). A caller that needs a guaranteed-zero result regardless of
// what the flag believes must pass force=true; Pool.Release does
// exactly that.
func (c *Container) Clear(force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleared && !force {
		return
	}
	for _, cc := range c.classes {
		cc.clear()
	}
	c.cleared = true
}

// IsCleared reports whether the container is in its fully-cleared state.
func (c *Container) IsCleared() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cleared
}

// ClassCount returns the number of classes currently tracked, cleared or
// not — a diagnostic, not part of the counting fast path.
func (c *Container) ClassCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.classes)
}
