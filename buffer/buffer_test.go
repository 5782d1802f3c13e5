package buffer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domonda/go-que"
	"github.com/domonda/go-que/buffer"
)

func handle(priority int16, jobID int64) que.Handle {
	return que.Handle{Priority: priority, RunAt: time.Unix(0, 0), JobID: jobID}
}

func TestPushOrdersByPriority(t *testing.T) {
	b := buffer.New()
	require.NoError(t, b.Push(handle(50, 1), handle(10, 2), handle(30, 3)))

	got := b.ToA()
	require.Len(t, got, 3)
	assert.Equal(t, int16(10), got[0].Priority)
	assert.Equal(t, int16(30), got[1].Priority)
	assert.Equal(t, int16(50), got[2].Priority)
}

func TestPopReturnsMinimum(t *testing.T) {
	b := buffer.New()
	require.NoError(t, b.Push(handle(50, 1), handle(10, 2), handle(30, 3)))

	h, ok := b.Pop(nil)
	require.True(t, ok)
	assert.Equal(t, int16(10), h.Priority)
	assert.Equal(t, 2, b.Size())
}

func TestPopRespectsCeiling(t *testing.T) {
	b := buffer.New()
	require.NoError(t, b.Push(handle(50, 1), handle(10, 2)))

	ceiling := int16(20)
	h, ok := b.Pop(&ceiling)
	require.True(t, ok)
	assert.Equal(t, int16(10), h.Priority)
	assert.Equal(t, int64(2), h.JobID)

	// Only the priority-50 handle remains; a ceiling of 20 must now block.
	done := make(chan struct{})
	go func() {
		_, ok := b.Pop(&ceiling)
		assert.False(t, ok)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up on Stop")
	}
}

func TestStopWakesBlockedPop(t *testing.T) {
	b := buffer.New()
	var wg sync.WaitGroup
	results := make([]bool, 4)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok := b.Pop(nil)
			results[i] = ok
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	b.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked pops did not wake up on Stop")
	}
	for _, ok := range results {
		assert.False(t, ok)
	}
}

func TestPushAfterStopReturnsError(t *testing.T) {
	b := buffer.New()
	b.Stop()
	err := b.Push(handle(10, 1))
	assert.ErrorIs(t, err, que.ErrBufferClosed)
}

func TestClearDrainsAndEmpties(t *testing.T) {
	b := buffer.New()
	require.NoError(t, b.Push(handle(10, 1), handle(20, 2)))

	removed := b.Clear()
	assert.Len(t, removed, 2)
	assert.Equal(t, 0, b.Size())
}
