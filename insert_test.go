package que_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domonda/go-que"
	"github.com/domonda/go-que/quepool"
)

type fakeRow struct {
	priority int16
	runAt    time.Time
	jobID    int64
}

func (r *fakeRow) Scan(dest ...any) error {
	*(dest[0].(*int16)) = r.priority
	*(dest[1].(*time.Time)) = r.runAt
	*(dest[2].(*int64)) = r.jobID
	return nil
}

type fakeSession struct {
	lastQuery string
	lastArgs  []any
	row       *fakeRow
}

func (s *fakeSession) Exec(ctx context.Context, query string, args ...any) error { return nil }

func (s *fakeSession) QueryRow(ctx context.Context, query string, args ...any) quepool.RowScanner {
	s.lastQuery = query
	s.lastArgs = args
	return s.row
}

func (s *fakeSession) QueryRows(ctx context.Context, query string, args ...any) (quepool.Rows, error) {
	panic("not used by InsertJob")
}

func TestInsertJobAssignsHandleFromRow(t *testing.T) {
	runAt := time.Now().Truncate(time.Second)
	sess := &fakeSession{row: &fakeRow{priority: 10, runAt: runAt, jobID: 123}}

	job := que.NewJob("send_email", []byte(`{"to":"a@b.c"}`))
	require.NoError(t, que.InsertJob(context.Background(), sess, "que_jobs", job))

	assert.Equal(t, int16(10), job.Priority)
	assert.True(t, runAt.Equal(job.RunAt))
	assert.Equal(t, int64(123), job.JobID)
}
