package que

import (
	"context"
	"time"

	"github.com/domonda/go-errs"

	"github.com/domonda/go-que/quepool"
	"github.com/domonda/go-que/quesql"
)

// InsertJob inserts job into table (e.g. "que_jobs") using sess, assigning
// its Priority/RunAt from job's current values (zero Priority, zero RunAt
// meaning "now" if unset) and its JobID from the table's sequence. On
// success job's Handle is populated with the values Postgres actually
// stored.
func InsertJob(ctx context.Context, sess quepool.Session, table string, job *Job) (err error) {
	defer errs.WrapWithFuncParams(&err, ctx, table)

	runAt := job.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}

	row := sess.QueryRow(ctx, quesql.InsertJob(table), job.Priority, runAt, job.JobClass, job.Args)
	return row.Scan(&job.Priority, &job.RunAt, &job.JobID)
}
