//go:build !amd64 && !arm64

package counter

import "github.com/carlhuth/heapstats/internal/spinlock"

// ObjectCounter is the (count, total_size) pair. On architectures without a
// cheap paired-atomic-add guarantee, a spin-lock word guards both fields
// together (spec realization 1: scalar + per-counter spin-lock, the portable
// fallback). The extra word means the struct is no longer exactly 16 bytes;
// the 16-byte alignment invariant is load-bearing only for the SIMD/wide-CAS
// path, which this build tag never takes.
type ObjectCounter struct {
	count     int64
	totalSize int64
	lock      int32
}

// New allocates an ObjectCounter. No special alignment is required on this
// path.
func New() *ObjectCounter {
	return &ObjectCounter{}
}

// Inc adds one to count and size to total_size under the counter's own
// spin-lock.
func (c *ObjectCounter) Inc(size int64) {
	spinlock.Lock(&c.lock)
	c.count++
	c.totalSize += size
	spinlock.Unlock(&c.lock)
}

// Add adds operand's count and total_size into c under the counter's own
// spin-lock.
func (c *ObjectCounter) Add(operand *ObjectCounter) {
	opCount, opSize := operand.Values()
	spinlock.Lock(&c.lock)
	c.count += opCount
	c.totalSize += opSize
	spinlock.Unlock(&c.lock)
}
