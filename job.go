package que

import (
	"fmt"

	"github.com/domonda/go-types/nullable"
	"github.com/domonda/go-types/notnull"
)

// Job is a full que_jobs row: a Handle plus the class name, arguments and
// error bookkeeping columns. Workers hand a *Job to the external Job
// runtime; the runtime alone is responsible for bumping ErrorCount/RunAt
// on failure via the set_error statement.
type Job struct {
	Handle

	JobClass   string
	Args       notnull.JSON
	ErrorCount int
	LastError  nullable.NonEmptyString
}

// HasError reports whether the job's most recent run left an error behind.
func (j *Job) HasError() bool {
	if j == nil {
		return false
	}
	return j.ErrorCount > 0 || !j.LastError.IsNull()
}

func (j *Job) String() string {
	if j == nil {
		return "Job(nil)"
	}
	return fmt.Sprintf("Job(%s, class=%s, error_count=%d)", j.Handle.String(), j.JobClass, j.ErrorCount)
}

// NewJob constructs a Job row ready for insertion. RunAt and Priority must
// be set on the returned Job before calling InsertJob if they should differ
// from the zero values (priority 0, run_at now).
func NewJob(jobClass string, args notnull.JSON) *Job {
	return &Job{
		JobClass: jobClass,
		Args:     args,
	}
}
