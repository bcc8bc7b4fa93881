package pipeline

import (
	"sync"
	"sync/atomic"
)

// Barrier is a countdown fixed at the number of tasks of one run. Each task
// calls Done exactly once; Wait returns after the last one. The release hook
// runs once, after the first Wait observes the count reach zero.
type Barrier struct {
	wg        sync.WaitGroup
	remaining atomic.Int64
	once      sync.Once
	onRelease func()
}

// NewBarrier creates a Barrier for n tasks. onRelease may be nil.
func NewBarrier(n int, onRelease func()) *Barrier {
	b := &Barrier{onRelease: onRelease}
	b.wg.Add(n)
	b.remaining.Store(int64(n))
	return b
}

// Done records one finished task. Calling it more times than the barrier
// was created for panics.
func (b *Barrier) Done() {
	if b.remaining.Add(-1) < 0 {
		panic("pipeline: Barrier.Done called more times than tasks")
	}
	b.wg.Done()
}

// Wait blocks until every task has called Done, then runs the release hook
// if no earlier Wait has.
func (b *Barrier) Wait() {
	b.wg.Wait()
	b.once.Do(func() {
		if b.onRelease != nil {
			b.onRelease()
		}
	})
}

// pending returns the number of tasks that have not called Done.
func (b *Barrier) pending() int {
	return int(b.remaining.Load())
}
