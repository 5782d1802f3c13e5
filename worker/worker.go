// Package worker implements the Locker's fixed pool of job-executing
// threads: each Worker pops one handle from the shared buffer at a time,
// re-reads the full row, hands it to the external Job runtime, and pushes
// the handle to the result queue regardless of the runtime's outcome.
package worker

import (
	"context"

	rootlog "github.com/domonda/golog/log"

	"github.com/domonda/go-que"
	"github.com/domonda/go-que/buffer"
	"github.com/domonda/go-que/jobruntime"
	"github.com/domonda/go-que/quepool"
	"github.com/domonda/go-que/quesql"
	"github.com/domonda/go-que/resultqueue"
)

var log = rootlog.NewPackageLogger("worker")

// Tracker is notified when a Worker takes a handle out of the buffer and
// when it has finished with it, so a Locker can maintain its in-flight set
// for the pipeline-exclusion invariant. Both methods must be safe to call
// from multiple Worker goroutines concurrently.
type Tracker interface {
	MarkInFlight(handle que.Handle)
	ClearInFlight(handle que.Handle)
}

// Worker pops handles from a shared Buffer, no more than once at a time,
// respecting its own priority Ceiling, and always forwards the handle to a
// shared Queue afterward so the Locker can release its advisory lock.
//
// Releasing the lock is always correct regardless of outcome: on success
// the row is already deleted by the runtime; on failure the runtime has
// already bumped run_at; on a row missing between lock and load there is
// nothing left to protect.
type Worker struct {
	index   int
	ceiling *int16
	table   string
	buf     *buffer.Buffer
	results *resultqueue.Queue
	pool    quepool.Checkouter
	runtime jobruntime.Runtime
	tracker Tracker
}

// New returns a Worker identified by index (used only for logging),
// bounded by ceiling (nil accepts any priority), reading full rows from
// table via pool, popping from buf, reporting completion to results, and
// executing job bodies through runtime. tracker may be nil.
func New(index int, ceiling *int16, table string, buf *buffer.Buffer, results *resultqueue.Queue, pool quepool.Checkouter, runtime jobruntime.Runtime, tracker Tracker) *Worker {
	return &Worker{
		index:   index,
		ceiling: ceiling,
		table:   table,
		buf:     buf,
		results: results,
		pool:    pool,
		runtime: runtime,
		tracker: tracker,
	}
}

// Ceiling returns the worker's immutable priority ceiling, or nil if it
// accepts any priority.
func (w *Worker) Ceiling() *int16 {
	return w.ceiling
}

// Run loops popping handles from the buffer until it returns the stop
// sentinel, and then returns. Intended to be run in its own goroutine,
// joined via a sync.WaitGroup by the Locker.
func (w *Worker) Run(ctx context.Context) {
	ctx = log.With().Int("worker", w.index).SubLoggerContext(ctx)
	for {
		handle, ok := w.buf.Pop(w.ceiling)
		if !ok {
			log.DebugCtx(ctx, "worker stopping").Log()
			return
		}
		w.runOne(ctx, handle)
	}
}

func (w *Worker) runOne(ctx context.Context, handle que.Handle) {
	if w.tracker != nil {
		w.tracker.MarkInFlight(handle)
	}
	defer func() {
		if w.tracker != nil {
			w.tracker.ClearInFlight(handle)
		}
		w.results.Push(handle)
	}()

	job, err := w.load(ctx, handle)
	if err != nil {
		log.ErrorCtx(ctx, "failed to load job").Err(err).Int64("jobID", handle.JobID).Log()
		return
	}
	if job == nil {
		// Row vanished between lock and load: treated as success, per the
		// missing-row-after-lock contract.
		return
	}
	if err := w.runtime.Run(ctx, job); err != nil {
		log.ErrorCtx(ctx, "job runtime returned error").Err(err).Int64("jobID", handle.JobID).Log()
	}
}

func (w *Worker) load(ctx context.Context, handle que.Handle) (*que.Job, error) {
	var job *que.Job
	err := w.pool.Checkout(ctx, func(ctx context.Context, sess quepool.Session) error {
		row := sess.QueryRow(ctx, quesql.GetJob(w.table), handle.Priority, handle.RunAt, handle.JobID)
		var j que.Job
		scanErr := row.Scan(&j.Priority, &j.RunAt, &j.JobID, &j.JobClass, &j.Args, &j.ErrorCount, &j.LastError)
		if scanErr != nil {
			if quepool.IsNoRows(scanErr) {
				return nil
			}
			return scanErr
		}
		job = &j
		return nil
	})
	return job, err
}
