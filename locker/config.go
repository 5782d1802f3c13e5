package locker

import (
	"time"

	"github.com/domonda/golog"

	"github.com/domonda/go-que/jobruntime"
	"github.com/domonda/go-que/quepool"
)

// Config holds everything a Locker needs at construction. Zero-valued
// fields are replaced by the defaults documented alongside each one.
type Config struct {
	// Table is the que_jobs-shaped table this Locker's default queue
	// reads from when Queues is empty. Defaults to "que_jobs".
	Table string

	// WorkerCount is the number of workers spawned. Defaults to 6.
	WorkerCount int

	// WorkerPriorities are per-worker priority ceilings, padded with nil
	// up to WorkerCount (or truncated, if longer). Defaults to
	// [10, 30, 50, nil, nil, nil].
	WorkerPriorities []*int16

	// Queues lists each queue (table) name with its poll interval in
	// seconds; every interval must be >= 0.01. Order matters: queues are
	// polled in this order every tick, which is also the tie-breaking
	// order when more than one queue's interval has elapsed in the same
	// tick. Defaults to [{Table, PollInterval}].
	Queues []QueueConfig

	// PollInterval is the default maximum seconds between polls for any
	// queue not given its own interval in Queues. Defaults to 5.
	PollInterval float64

	// WaitPeriod is the time between result-queue drain checks in the
	// poll loop. Defaults to 50ms.
	WaitPeriod time.Duration

	// MinimumBufferSize is the buffer size below which a refill is
	// triggered. Defaults to 2.
	MinimumBufferSize int

	// MaximumBufferSize is the buffer size never to exceed. Defaults to 8.
	MaximumBufferSize int

	// Pool supplies dedicated and transient sessions. Required: workers
	// check out their transient sessions from it even when Connection
	// overrides the Locker's own dedicated session.
	Pool quepool.Pooler

	// Connection overrides the dedicated session the Locker would
	// otherwise check out from Pool. When set, Pool is only used for
	// workers' transient sessions and Release is a no-op; the caller
	// retains ownership of Connection's lifecycle.
	Connection quepool.Session

	// Runtime executes locked jobs. Defaults to jobruntime.NopRuntime{}.
	Runtime jobruntime.Runtime

	// Logger is set to the package logger when nil. The Locker's own log
	// calls go through the package logger; they do not use this field.
	Logger *golog.Logger

	// Hostname overrides os.Hostname() for the que_lockers registry row.
	Hostname string
}

// QueueConfig names one polled queue and its poll interval in seconds.
type QueueConfig struct {
	Name     string
	Interval float64
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = "que_jobs"
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 6
	}
	if c.WorkerPriorities == nil {
		c.WorkerPriorities = defaultPriorities()
	}
	c.WorkerPriorities = padPriorities(c.WorkerPriorities, c.WorkerCount)
	if c.PollInterval <= 0 {
		c.PollInterval = 5
	}
	if len(c.Queues) == 0 {
		c.Queues = []QueueConfig{{Name: c.Table, Interval: c.PollInterval}}
	} else {
		queues := make([]QueueConfig, len(c.Queues))
		copy(queues, c.Queues)
		for i := range queues {
			if queues[i].Interval <= 0 {
				queues[i].Interval = c.PollInterval
			}
		}
		c.Queues = queues
	}
	if c.WaitPeriod <= 0 {
		c.WaitPeriod = 50 * time.Millisecond
	}
	if c.MinimumBufferSize <= 0 {
		c.MinimumBufferSize = 2
	}
	if c.MaximumBufferSize <= 0 {
		c.MaximumBufferSize = 8
	}
	if c.Runtime == nil {
		c.Runtime = jobruntime.NopRuntime{}
	}
	if c.Logger == nil {
		c.Logger = log
	}
	return c
}

func defaultPriorities() []*int16 {
	vals := []int16{10, 30, 50}
	out := make([]*int16, len(vals))
	for i := range vals {
		v := vals[i]
		out[i] = &v
	}
	return out
}

// padPriorities pads priorities with nil up to n entries, or truncates it
// to exactly n, per the spec's stated resolution for
// len(WorkerPriorities) != WorkerCount.
func padPriorities(priorities []*int16, n int) []*int16 {
	out := make([]*int16, n)
	copy(out, priorities)
	return out
}
