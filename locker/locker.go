// Package locker implements the Locker: the coordination engine that polls
// Postgres for jobs, holds session-level advisory locks on a dedicated
// session, feeds a fixed pool of priority-stratified workers through a
// bounded buffer, and reconciles buffer state with lock state on shutdown.
package locker

import (
	"context"
	"os"
	"sync"
	"time"

	rootlog "github.com/domonda/golog/log"

	"github.com/domonda/go-types/uu"

	"github.com/domonda/go-errs"
	"github.com/domonda/go-que"
	"github.com/domonda/go-que/buffer"
	"github.com/domonda/go-que/quepool"
	"github.com/domonda/go-que/quesql"
	"github.com/domonda/go-que/resultqueue"
	"github.com/domonda/go-que/worker"
)

var log = rootlog.NewPackageLogger("locker")

// Locker owns a dedicated Postgres session, a bounded buffer, an unbounded
// result queue and a fixed pool of workers. Its lifecycle is
// starting -> running -> stopping -> stopped, driven either by explicit
// Stop/StopSync calls or by cancellation of the context.Context passed to
// New, per the REDESIGN FLAGS' cancellation-token requirement.
type Locker struct {
	ctx    context.Context
	cancel context.CancelFunc
	config Config

	buf     *buffer.Buffer
	results *resultqueue.Queue
	workers []*worker.Worker

	dedicated quepool.Session
	release   func() error
	pid       int
	lockerID  uu.ID

	wg sync.WaitGroup

	mu        sync.Mutex
	state     State
	inFlight  map[que.Handle]struct{}
	lastPoll  map[string]time.Time
	stoppedCh chan struct{}
	stopOnce  sync.Once

	listeners listenerRegistry
}

// New constructs a Locker bound to ctx: cancelling ctx has the same effect
// as calling Stop. The Locker does not contact Postgres until Start is
// called.
func New(ctx context.Context, config Config) *Locker {
	ctx, cancel := context.WithCancel(ctx)
	return &Locker{
		ctx:       ctx,
		cancel:    cancel,
		config:    config.withDefaults(),
		buf:       buffer.New(),
		results:   resultqueue.New(),
		inFlight:  make(map[que.Handle]struct{}),
		lastPoll:  make(map[string]time.Time),
		stoppedCh: make(chan struct{}),
		state:     StateStarting,
		lockerID:  uu.IDv4(),
	}
}

// Start runs the Locker's startup sequence (checkout dedicated session,
// clean stale registry rows, register this Locker, spawn workers) and then
// launches the poll loop in the background. It returns once the Locker has
// reached the running state, or a startup error.
func (l *Locker) Start() (err error) {
	defer errs.WrapWithFuncParams(&err, l.ctx)

	if err = l.checkoutDedicated(); err != nil {
		return err
	}
	// clean_lockers and register_locker run as one transaction so a
	// concurrently-starting Locker on another process never observes the
	// stale-row cleanup without this Locker's registration following it.
	if err = quepool.Transaction(l.ctx, l.dedicated, func(ctx context.Context) error {
		if err := l.cleanLockers(ctx); err != nil {
			return err
		}
		return l.registerLocker(ctx)
	}); err != nil {
		return err
	}
	l.spawnWorkers()

	l.setState(StateRunning)
	go l.run()
	return nil
}

func (l *Locker) checkoutDedicated() error {
	if l.config.Connection != nil {
		l.dedicated = l.config.Connection
		l.release = func() error { return nil }
	} else {
		sess, release, err := l.config.Pool.Dedicated(l.ctx)
		if err != nil {
			return err
		}
		l.dedicated = sess
		l.release = release
	}

	row := l.dedicated.QueryRow(l.ctx, quesql.BackendPID)
	return row.Scan(&l.pid)
}

func (l *Locker) cleanLockers(ctx context.Context) error {
	return l.dedicated.Exec(ctx, quesql.CleanLockers)
}

func (l *Locker) registerLocker(ctx context.Context) error {
	hostname := l.config.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	return l.dedicated.Exec(ctx, quesql.RegisterLocker,
		l.config.WorkerCount, os.Getpid(), hostname, l.lockerID)
}

func (l *Locker) spawnWorkers() {
	l.workers = make([]*worker.Worker, l.config.WorkerCount)
	for i, ceiling := range l.config.WorkerPriorities {
		l.workers[i] = worker.New(i, ceiling, l.config.Table, l.buf, l.results, l.config.Pool, l.config.Runtime, l)
	}
	l.wg.Add(len(l.workers))
	for _, w := range l.workers {
		w := w
		go func() {
			defer l.wg.Done()
			w.Run(l.ctx)
		}()
	}
}

// MarkInFlight implements worker.Tracker.
func (l *Locker) MarkInFlight(handle que.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight[handle] = struct{}{}
}

// ClearInFlight implements worker.Tracker.
func (l *Locker) ClearInFlight(handle que.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, handle)
}

func (l *Locker) setState(s State) {
	l.mu.Lock()
	from := l.state
	l.state = s
	l.mu.Unlock()
	if from != s {
		l.listeners.notifyStateChange(from, s)
	}
}

// run is the poll loop: drain results, maybe refill, wait, repeat, until
// the Locker's context is cancelled, at which point it runs the shutdown
// sequence.
func (l *Locker) run() {
	ticker := time.NewTicker(l.config.WaitPeriod)
	defer ticker.Stop()

	for {
		l.drainResults(l.ctx)
		l.refill()

		select {
		case <-l.ctx.Done():
			l.shutdown()
			return
		case <-ticker.C:
		}
	}
}

func (l *Locker) drainResults(ctx context.Context) {
	for _, h := range l.results.DrainAll() {
		l.unlock(ctx, h)
	}
}

func (l *Locker) unlock(ctx context.Context, h que.Handle) {
	if err := l.dedicated.Exec(ctx, quesql.UnlockJob, h.JobID); err != nil {
		log.ErrorCtx(ctx, "failed to release advisory lock").Err(err).Int64("jobID", h.JobID).Log()
		return
	}
	l.listeners.notifyReleased(h)
}

// refill polls every configured queue, in Config.Queues' insertion order,
// whose interval has elapsed this tick. The "buffer below minimum" gate is
// evaluated once per tick against the buffer size as it stood at the start
// of the tick, not re-read after each queue's poll: a queue whose interval
// has elapsed is polled even if an earlier queue already refilled the
// buffer above the minimum this same tick, per each queue's own cadence
// clock.
func (l *Locker) refill() {
	if l.buf.Size() >= l.config.MinimumBufferSize {
		return
	}
	for _, q := range l.config.Queues {
		if !l.intervalElapsed(q.Name, q.Interval) {
			continue
		}
		l.pollOne(q.Name)
		l.recordPoll(q.Name)
	}
}

func (l *Locker) intervalElapsed(name string, intervalSeconds float64) bool {
	l.mu.Lock()
	last, ok := l.lastPoll[name]
	l.mu.Unlock()
	if !ok {
		return true
	}
	return time.Since(last) >= time.Duration(intervalSeconds*float64(time.Second))
}

func (l *Locker) recordPoll(name string) {
	l.mu.Lock()
	l.lastPoll[name] = time.Now()
	l.mu.Unlock()
}

func (l *Locker) pollOne(table string) {
	limit := l.config.MaximumBufferSize - l.pipelineSize()
	if limit <= 0 {
		return
	}
	excluded := l.heldJobIDs()

	rows, err := l.dedicated.QueryRows(l.ctx, quesql.PollJobs(table), excluded, limit)
	if err != nil {
		log.ErrorCtx(l.ctx, "poll_jobs failed").Err(err).Str("table", table).Log()
		return
	}

	var handles []que.Handle
	err = rows.ForEach(func(row quepool.RowScanner) error {
		var h que.Handle
		var jobClass string
		var args any
		var errorCount int
		var lastError any
		if scanErr := row.Scan(&h.Priority, &h.RunAt, &h.JobID, &jobClass, &args, &errorCount, &lastError); scanErr != nil {
			return scanErr
		}
		handles = append(handles, h)
		return nil
	})
	if err != nil {
		log.ErrorCtx(l.ctx, "poll_jobs row scan failed").Err(err).Str("table", table).Log()
		return
	}

	if err := l.buf.Push(handles...); err != nil {
		log.ErrorCtx(l.ctx, "push to buffer failed").Err(err).Log()
		return
	}
	for _, h := range handles {
		l.listeners.notifyLocked(h)
	}
}

// pipelineSize is the count of handles this process currently holds
// advisory locks for: buffer + result queue + in-flight at workers.
func (l *Locker) pipelineSize() int {
	l.mu.Lock()
	inFlight := len(l.inFlight)
	l.mu.Unlock()
	return l.buf.Size() + l.results.Size() + inFlight
}

// heldJobIDs returns every job_id currently in the pipeline, the exclusion
// list passed to poll_jobs so it never re-locks an already-held row.
func (l *Locker) heldJobIDs() []int64 {
	ids := make([]int64, 0, l.pipelineSize())
	for _, h := range l.buf.ToA() {
		ids = append(ids, h.JobID)
	}

	l.mu.Lock()
	for h := range l.inFlight {
		ids = append(ids, h.JobID)
	}
	l.mu.Unlock()

	// Result-queue entries are still held (not yet unlocked) until
	// drainResults processes them, so they belong in the exclusion set.
	// drainResults runs before refill every tick, so in steady state the
	// result queue is empty here; included for correctness regardless.
	// The Locker is the queue's only consumer, so taking the entries out
	// and pushing them back leaves them for the next drainResults.
	for _, h := range l.results.DrainAll() {
		ids = append(ids, h.JobID)
		l.results.Push(h)
	}
	return ids
}

// Stop begins the shutdown sequence asynchronously and returns
// immediately. Calling Stop twice is safe; the second call is a no-op.
func (l *Locker) Stop() {
	l.mu.Lock()
	if l.state == StateStopping || l.state == StateStopped {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	l.setState(StateStopping)
	l.cancel()
}

// StopSync begins shutdown (if not already underway) and blocks until it
// completes or ctx is done. After it returns nil, no advisory lock
// acquired by this process remains held.
func (l *Locker) StopSync(ctx context.Context) error {
	l.Stop()
	select {
	case <-l.stoppedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown runs the shutdown sequence. Step 1 (state -> stopping) has
// already happened when Stop triggered it; when cancellation of the
// Locker's context triggered it, shutdown makes that transition itself.
func (l *Locker) shutdown() {
	defer l.stopOnce.Do(func() { close(l.stoppedCh) })

	l.setState(StateStopping)

	// l.ctx is already Done here, so shutdown's own SQL must ride a context
	// that keeps any request-scoped values but ignores the cancellation,
	// otherwise releasing locks would fail for the same reason we're
	// shutting down.
	ctx := context.WithoutCancel(l.ctx)

	l.buf.Stop()
	harvested := l.buf.Clear()

	l.wg.Wait()

	l.drainResults(ctx)

	for _, h := range harvested {
		l.unlock(ctx, h)
	}

	if err := l.dedicated.Exec(ctx, quesql.UnregisterLocker, l.pid); err != nil {
		log.Error("failed to delete locker registry row").Err(err).Int("pid", l.pid).Log()
	}

	if l.release != nil {
		if err := l.release(); err != nil {
			log.Error("failed to release dedicated session").Err(err).Log()
		}
	}

	l.setState(StateStopped)
}
