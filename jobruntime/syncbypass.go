package jobruntime

import "context"

// synchronousJobsKey is an unexported context-value key, following the
// teacher's context.go pattern (ContextWithSynchronousJobs/SynchronousJobs)
// of one unexported key variable per flag.
var synchronousJobsKey int

// ContextWithSynchronousJobs marks ctx so that an enqueue path using it may
// choose to run a job inline instead of persisting and waiting for a
// Locker to pick it up. This is a caller decision: the Locker's own state
// machine never looks at this flag, only code that enqueues jobs does.
func ContextWithSynchronousJobs(ctx context.Context, synchronous bool) context.Context {
	return context.WithValue(ctx, &synchronousJobsKey, synchronous)
}

// SynchronousJobs reports whether ctx was marked with
// ContextWithSynchronousJobs(ctx, true). An enqueue path checking this is
// expected to call a Runtime directly instead of inserting a row.
func SynchronousJobs(ctx context.Context) bool {
	synchronous, _ := ctx.Value(&synchronousJobsKey).(bool)
	return synchronous
}
