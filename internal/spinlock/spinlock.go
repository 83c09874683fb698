// Package spinlock implements the busy-wait lock word used by the counting
// core's hot paths in place of a full mutex: a bare int32 CAS loop, the Go
// analog of the original engine's arch/x86/lock.inline.hpp spinLockWait /
// spinLockRelease pair.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Lock busy-waits until it acquires word, yielding the goroutine to the
// scheduler between attempts so a spinning waiter doesn't starve the holder
// on a single-core GOMAXPROCS=1 build.
func Lock(word *int32) {
	for !atomic.CompareAndSwapInt32(word, 0, 1) {
		runtime.Gosched()
	}
}

// Unlock releases word. The caller must hold the lock.
func Unlock(word *int32) {
	atomic.StoreInt32(word, 0)
}

// TryLock attempts to acquire word without blocking.
func TryLock(word *int32) bool {
	return atomic.CompareAndSwapInt32(word, 0, 1)
}
