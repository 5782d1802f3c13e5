// Package jobruntime is the external Job runtime collaborator the core
// Locker/Worker is deliberately decoupled from: given a locked *que.Job, it
// runs the job's body and is solely responsible for deleting the row on
// success or bumping error_count/last_error/run_at on failure. The Locker
// never inspects a job's outcome; it only needs to know the worker
// finished so the advisory lock can be released.
package jobruntime

import (
	"context"
	"time"

	"github.com/domonda/go-types/notnull"

	"github.com/domonda/go-errs"
	"github.com/domonda/golog"
	rootlog "github.com/domonda/golog/log"

	"github.com/domonda/go-que"
	"github.com/domonda/go-que/quepool"
	"github.com/domonda/go-que/quesql"
)

var log = rootlog.NewPackageLogger("jobruntime")

// OverrideLogger replaces the package logger, following the teacher's
// config.go convention of a package-level logger overridable by the host
// application.
func OverrideLogger(l *golog.Logger) {
	if l != nil {
		log = l
	}
}

// Runtime executes locked jobs. A Worker calls Run once per popped handle
// and does not otherwise interpret the result.
type Runtime interface {
	Run(ctx context.Context, job *que.Job) error
}

// Backoff computes the next run_at for a job that failed errorCount times
// (errorCount includes the failure just recorded). The default used by New
// is an exponential backoff capped at one hour.
type Backoff func(errorCount int) time.Time

// DefaultBackoff doubles the delay every retry starting at 3 seconds,
// capped at one hour, mirroring the teacher's retry-schedule convention in
// jobworker's scheduling hooks.
func DefaultBackoff(errorCount int) time.Time {
	delay := 3 * time.Second
	for i := 1; i < errorCount && delay < time.Hour; i++ {
		delay *= 2
	}
	if delay > time.Hour {
		delay = time.Hour
	}
	return time.Now().Add(delay)
}

// DefaultRuntime looks up a job's job_class in an explicit registry (see
// registry.go), invokes it with panic recovery, and on return deletes the
// row on success or writes back error state on failure.
type DefaultRuntime struct {
	pool    quepool.Checkouter
	table   string
	backoff Backoff
	reg     *registry
}

// New returns a DefaultRuntime operating against table (e.g. "que_jobs")
// through pool.
func New(pool quepool.Checkouter, table string) *DefaultRuntime {
	return &DefaultRuntime{
		pool:    pool,
		table:   table,
		backoff: DefaultBackoff,
		reg:     newRegistry(),
	}
}

// WithBackoff overrides the default retry-delay policy.
func (rt *DefaultRuntime) WithBackoff(b Backoff) *DefaultRuntime {
	rt.backoff = b
	return rt
}

// Register adds a job class whose body takes the job's raw JSON args and
// does its own decoding.
func (rt *DefaultRuntime) Register(jobClass string, fn func(ctx context.Context, args notnull.JSON) error) {
	rt.reg.Register(jobClass, fn)
}

// RegisterFunc adds a job class whose body takes a typed, decoded argument
// value; see registry.RegisterFunc.
func (rt *DefaultRuntime) RegisterFunc(jobClass string, fn any) error {
	return rt.reg.RegisterFunc(jobClass, fn)
}

// Unregister removes a job class.
func (rt *DefaultRuntime) Unregister(jobClass string) {
	rt.reg.Unregister(jobClass)
}

// IsRegistered reports whether jobClass has a registered function.
func (rt *DefaultRuntime) IsRegistered(jobClass string) bool {
	return rt.reg.IsRegistered(jobClass)
}

// Run looks up job.JobClass, invokes it with panic recovery, and persists
// the outcome. A missing registration is treated as a job execution
// failure, not a programmer error: it is recorded via set_error like any
// other failure, since a deploy race (worker running older code than the
// process that enqueued the job) is a normal occurrence in a rolling
// upgrade.
func (rt *DefaultRuntime) Run(ctx context.Context, job *que.Job) (err error) {
	ctx = log.With().Int64("jobID", job.JobID).Str("jobClass", job.JobClass).SubLoggerContext(ctx)

	runErr := rt.invoke(ctx, job)
	if runErr == nil {
		return rt.destroy(ctx, job)
	}

	log.ErrorCtx(ctx, "job failed").Err(runErr).Log()
	return rt.recordError(ctx, job, runErr)
}

func (rt *DefaultRuntime) invoke(ctx context.Context, job *que.Job) (err error) {
	defer errs.RecoverAndLogPanicWithFuncParams(&err, log, job.JobID)

	fn, ok := rt.reg.lookup(job.JobClass)
	if !ok {
		return errs.Errorf("jobruntime: no function registered for job class %q", job.JobClass)
	}
	return fn(ctx, job.Args)
}

func (rt *DefaultRuntime) destroy(ctx context.Context, job *que.Job) error {
	return rt.pool.Checkout(ctx, func(ctx context.Context, sess quepool.Session) error {
		return sess.Exec(ctx, quesql.DestroyJob(rt.table), job.Priority, job.RunAt, job.JobID)
	})
}

func (rt *DefaultRuntime) recordError(ctx context.Context, job *que.Job, cause error) error {
	nextCount := job.ErrorCount + 1
	nextRunAt := rt.backoff(nextCount)
	return rt.pool.Checkout(ctx, func(ctx context.Context, sess quepool.Session) error {
		return sess.Exec(ctx, quesql.SetError(rt.table),
			job.Priority, job.RunAt, job.JobID, cause.Error(), nextRunAt)
	})
}
