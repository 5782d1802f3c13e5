// Package resultqueue implements the Locker's unbounded, multi-producer,
// single-consumer FIFO of completed job handles awaiting advisory-lock
// release. It is unbounded because backpressure is already enforced
// upstream by package buffer.
package resultqueue

import (
	"sync"

	"github.com/domonda/go-que"
)

// Queue is an unbounded FIFO of que.Handle values. Workers Push; the
// Locker's poll loop Drains it.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond
	rest []que.Handle
}

// New returns an empty Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a completed handle. Never blocks.
func (q *Queue) Push(h que.Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rest = append(q.rest, h)
	q.cond.Signal()
}

// TryPop removes and returns the oldest handle, or ok=false if the queue is
// currently empty. Never blocks.
func (q *Queue) TryPop() (h que.Handle, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.rest) == 0 {
		return que.Handle{}, false
	}
	h = q.rest[0]
	q.rest = q.rest[1:]
	return h, true
}

// DrainAll removes and returns every handle currently queued, in FIFO
// order, leaving the queue empty. Used both by the poll loop's per-tick
// result drain and by shutdown's final drain.
func (q *Queue) DrainAll() []que.Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.rest) == 0 {
		return nil
	}
	out := q.rest
	q.rest = nil
	return out
}

// Size returns the current element count.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.rest)
}
