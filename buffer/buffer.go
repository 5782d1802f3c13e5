// Package buffer implements the Locker's bounded, priority-ordered
// in-memory queue of locked job handles. It is a single mutex/condition-
// variable-guarded sorted slice: simple, and fast enough given the small
// buffer sizes (single-digit defaults) the Locker is configured with.
package buffer

import (
	"sort"
	"sync"

	"github.com/domonda/go-que"
)

// Buffer is a bounded, priority-ordered multiset of que.Handle values.
// Size enforcement is the caller's (the Locker's) responsibility; Push
// itself never blocks or rejects once the buffer is open.
type Buffer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	handles []que.Handle
	stopped bool
}

// New returns an empty, open Buffer.
func New() *Buffer {
	b := &Buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push inserts all of handles into sorted position. It returns
// que.ErrBufferClosed if Stop has already been called.
func (b *Buffer) Push(handles ...que.Handle) error {
	if len(handles) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return que.ErrBufferClosed
	}
	for _, h := range handles {
		i := sort.Search(len(b.handles), func(i int) bool { return h.Less(b.handles[i]) })
		b.handles = append(b.handles, que.Handle{})
		copy(b.handles[i+1:], b.handles[i:])
		b.handles[i] = h
	}
	b.cond.Broadcast()
	return nil
}

// Pop blocks until an element with Priority <= *maxPriority exists (or any
// element, if maxPriority is nil), removes and returns the minimum such
// element. It returns ok=false once Stop has been called and no matching
// element remains, which is the sentinel that ends a worker's loop.
func (b *Buffer) Pop(maxPriority *int16) (h que.Handle, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if i, found := b.firstMatchLocked(maxPriority); found {
			h = b.handles[i]
			b.handles = append(b.handles[:i], b.handles[i+1:]...)
			return h, true
		}
		if b.stopped {
			return que.Handle{}, false
		}
		b.cond.Wait()
	}
}

func (b *Buffer) firstMatchLocked(maxPriority *int16) (int, bool) {
	if maxPriority == nil {
		if len(b.handles) == 0 {
			return 0, false
		}
		return 0, true
	}
	for i, h := range b.handles {
		if h.Priority <= *maxPriority {
			return i, true
		}
	}
	return 0, false
}

// Stop closes the buffer. Every blocked and future Pop call returns
// ok=false once the buffer has been drained of matching elements; Push
// after Stop returns que.ErrBufferClosed.
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	b.cond.Broadcast()
}

// Size returns the current element count.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

// ToA returns a snapshot copy of the buffer's contents in sorted order.
func (b *Buffer) ToA() []que.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]que.Handle, len(b.handles))
	copy(out, b.handles)
	return out
}

// Clear empties the buffer and returns everything that was removed, for
// use during shutdown to harvest handles that were never run.
func (b *Buffer) Clear() []que.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := b.handles
	b.handles = nil
	return removed
}
