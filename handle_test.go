package que_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/domonda/go-que"
)

func TestHandleCompare(t *testing.T) {
	t0 := time.Now()
	t1 := t0.Add(time.Second)

	lowPriority := que.Handle{Priority: 10, RunAt: t0, JobID: 1}
	highPriority := que.Handle{Priority: 50, RunAt: t0, JobID: 1}
	assert.True(t, lowPriority.Less(highPriority))
	assert.False(t, highPriority.Less(lowPriority))

	samePriorityEarlier := que.Handle{Priority: 10, RunAt: t0, JobID: 1}
	samePriorityLater := que.Handle{Priority: 10, RunAt: t1, JobID: 1}
	assert.True(t, samePriorityEarlier.Less(samePriorityLater))

	sameKeyLowerID := que.Handle{Priority: 10, RunAt: t0, JobID: 1}
	sameKeyHigherID := que.Handle{Priority: 10, RunAt: t0, JobID: 2}
	assert.True(t, sameKeyLowerID.Less(sameKeyHigherID))

	assert.Equal(t, 0, sameKeyLowerID.Compare(que.Handle{Priority: 10, RunAt: t0, JobID: 1}))
}

func TestHandleString(t *testing.T) {
	h := que.Handle{Priority: 10, RunAt: time.Now(), JobID: 42}
	assert.Contains(t, h.String(), "job_id=42")
}
