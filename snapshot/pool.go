// ABOUTME: Pool recycles idle Containers through a bounded, non-blocking queue
// ABOUTME: A capacity-2 buffered channel is the Go substitute for a concurrent bounded queue

package snapshot

import (
	"sync"

	"github.com/carlhuth/heapstats/logging"
)

// PoolCapacity is the fixed number of idle containers the pool retains.
const PoolCapacity = 2

// Pool bounds the number of idle Containers kept around to amortize
// allocation across snapshots. A buffered channel of capacity PoolCapacity
// is the idiomatic Go substitute for a tbb::concurrent_bounded_queue: a
// select with a default case against the buffer is the standard
// non-blocking try-push/try-pop pattern, grounded in the example corpus's
// use of buffered channels as work queues.
type Pool struct {
	ch     chan *Container
	logger logging.Logger
}

// NewPool creates an empty pool. A nil logger is replaced with a no-op
// logger.
func NewPool(logger logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Pool{ch: make(chan *Container, PoolCapacity), logger: logger}
}

// Acquire attempts a non-blocking pop; on a miss it allocates a fresh
// Container. Either way the returned container is fully cleared.
func (p *Pool) Acquire() *Container {
	select {
	case c := <-p.ch:
		return c
	default:
		return NewContainer()
	}
}

// Release clears c and attempts a non-blocking push back into the pool.
// If the pool is at capacity, c is dropped (destroyed, in this Go
// implementation reclaimed by the garbage collector rather than an
// explicit destructor) and Release reports dropped=true, the
// pool-contention case of the spec's dropped-contribution rate; callers
// that carry a metrics collector should feed it from this return value.
//
// Release always forces the clear. c's cleared flag cannot be trusted
// here: the walker mutates counters directly through the
// ClassCounter/ChildClassCounter pointers PushClass/PushChild handed
// out, without the container ever observing it, so a non-forced clear
// could hand the next Acquire caller a container that still holds the
// previous snapshot's counts. Acquire's "first observed state is fully
// cleared" guarantee depends on this.
func (p *Pool) Release(c *Container) (dropped bool) {
	c.Clear(true)

	select {
	case p.ch <- c:
		return false
	default:
		p.logger.Warn("pool at capacity, dropping released container")
		return true
	}
}

// Occupancy returns the number of idle containers currently held by the
// pool, the feed for a pool-occupancy gauge.
func (p *Pool) Occupancy() int {
	return len(p.ch)
}

// Close pops and discards every resident container, the Go analog of
// global-finalize. Must be called exactly once, single-threaded, with no
// concurrent Acquire/Release in flight.
func (p *Pool) Close() {
	for {
		select {
		case <-p.ch:
		default:
			return
		}
	}
}

var (
	globalMu   sync.Mutex
	globalPool *Pool
)

// GlobalInit creates the process-wide pool singleton. Must be called
// exactly once, single-threaded, before any call to Global.
func GlobalInit(logger logging.Logger) *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalPool = NewPool(logger)
	return globalPool
}

// Global returns the process-wide pool singleton, or nil if GlobalInit has
// not been called.
func Global() *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalPool
}

// GlobalFinalize closes and clears the process-wide pool singleton. Must
// be called exactly once, single-threaded.
func GlobalFinalize() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalPool != nil {
		globalPool.Close()
		globalPool = nil
	}
}
