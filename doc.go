// Package que implements a Postgres-backed job queue: job records keyed by
// (priority, run_at, job_id), locked with session-level advisory locks and
// dispatched to a pool of workers by a Locker.
//
// A Job is inserted with InsertJob and picked up by a Locker (see package
// locker) running in the same or another process. Job execution itself is
// not part of this package; it is the responsibility of an external Job
// runtime (see package jobruntime) that is handed a *Job by a worker.
//
// Handles, the (priority, run_at, job_id) triple, are the unit the Locker's
// buffer, result queue and advisory-lock bookkeeping all operate on. A Job
// is the full row, additionally carrying job_class, args and error state.
package que
