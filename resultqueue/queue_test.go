package resultqueue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/domonda/go-que"
	"github.com/domonda/go-que/resultqueue"
)

func TestPushAndDrainAllIsFIFO(t *testing.T) {
	q := resultqueue.New()
	q.Push(que.Handle{JobID: 1})
	q.Push(que.Handle{JobID: 2})
	q.Push(que.Handle{JobID: 3})

	drained := q.DrainAll()
	assert.Equal(t, []int64{1, 2, 3}, jobIDs(drained))
	assert.Equal(t, 0, q.Size())
}

func TestTryPopOnEmptyReturnsFalse(t *testing.T) {
	q := resultqueue.New()
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestConcurrentPushIsSafe(t *testing.T) {
	q := resultqueue.New()
	var wg sync.WaitGroup
	const n = 100
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push(que.Handle{JobID: int64(i)})
		}(i)
	}
	wg.Wait()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, q.Size())
}

func jobIDs(handles []que.Handle) []int64 {
	out := make([]int64, len(handles))
	for i, h := range handles {
		out[i] = h.JobID
	}
	return out
}
