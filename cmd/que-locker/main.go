// Command que-locker is the process entry point: it parses flags, loads
// environment files, builds a locker.Locker and runs it until SIGINT or
// SIGTERM, per SPEC_FULL.md §6.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/domonda/go-que/jobruntime"
	"github.com/domonda/go-que/locker"
	"github.com/domonda/go-que/queconfig"
	"github.com/domonda/go-que/quepool"
)

const version = "0.1.0"

type flags struct {
	pollInterval      float64
	logLevel          string
	queueNames        []string
	workerCount       int
	connectionURL     string
	logInternals      bool
	maximumBufferSize int
	minimumBufferSize int
	waitPeriodMS      float64
	workerPriorities  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:     "que-locker [env-files...]",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().Float64VarP(&f.pollInterval, "poll-interval", "i", 5, "default poll interval in seconds")
	cmd.Flags().StringVarP(&f.logLevel, "log-level", "l", "info", "one of debug,info,warn,error,fatal")
	cmd.Flags().StringArrayVarP(&f.queueNames, "queue-name", "q", nil, "queue name, optionally name=interval; repeatable")
	cmd.Flags().IntVarP(&f.workerCount, "worker-count", "w", 6, "worker pool size")
	cmd.Flags().StringVar(&f.connectionURL, "connection-url", "", "Postgres connection URL, overrides DATABASE_URL")
	cmd.Flags().BoolVar(&f.logInternals, "log-internals", false, "verbose internal logging (accepted; not applied to any logger)")
	cmd.Flags().IntVar(&f.maximumBufferSize, "maximum-buffer-size", 8, "buffer high water mark")
	cmd.Flags().IntVar(&f.minimumBufferSize, "minimum-buffer-size", 2, "buffer low water mark (refill trigger)")
	cmd.Flags().Float64Var(&f.waitPeriodMS, "wait-period", 50, "poll-loop tick, in milliseconds")
	cmd.Flags().StringVar(&f.workerPriorities, "worker-priorities", "10,30,50", "comma-separated worker ceilings")

	return cmd
}

func run(ctx context.Context, f flags, envFiles []string) error {
	if f.pollInterval < 0.01 {
		return fmt.Errorf("que-locker: --poll-interval must be >= 0.01")
	}
	if err := validateLogLevel(f.logLevel); err != nil {
		return err
	}
	if err := queconfig.LoadFiles(envFiles...); err != nil {
		return fmt.Errorf("que-locker: loading env files: %w", err)
	}
	envCfg, err := queconfig.Load()
	if err != nil {
		return err
	}

	dbConfig, err := queconfig.ConnectionConfig(envCfg, f.connectionURL)
	if err != nil {
		return err
	}

	priorities, err := parsePriorities(f.workerPriorities, f.workerCount)
	if err != nil {
		return err
	}
	queues, err := parseQueues(f.queueNames, f.pollInterval)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := quepool.New(dbConfig)

	l := locker.New(ctx, locker.Config{
		WorkerCount:       f.workerCount,
		WorkerPriorities:  priorities,
		Queues:            queues,
		PollInterval:      f.pollInterval,
		WaitPeriod:        time.Duration(f.waitPeriodMS * float64(time.Millisecond)),
		MinimumBufferSize: f.minimumBufferSize,
		MaximumBufferSize: f.maximumBufferSize,
		Pool:              pool,
		Runtime:           jobruntime.New(pool, "que_jobs"),
	})

	if err := l.Start(); err != nil {
		return fmt.Errorf("que-locker: startup failed: %w", err)
	}

	<-ctx.Done()
	return l.StopSync(context.Background())
}

func parsePriorities(raw string, workerCount int) ([]*int16, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return make([]*int16, workerCount), nil
	}
	parts := strings.Split(raw, ",")
	out := make([]*int16, workerCount)
	for i, part := range parts {
		if i >= workerCount {
			break
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("que-locker: invalid --worker-priorities entry %q: %w", part, err)
		}
		v := int16(n)
		out[i] = &v
	}
	return out, nil
}

// parseQueues preserves the order --queue-name was repeated in on the
// command line: Config.Queues' iteration order is the tie-breaking order
// the poll loop polls queues in, per SPEC_FULL.md §4.6.
func parseQueues(raw []string, defaultInterval float64) ([]locker.QueueConfig, error) {
	if len(raw) == 0 {
		return []locker.QueueConfig{{Name: "que_jobs", Interval: defaultInterval}}, nil
	}
	queues := make([]locker.QueueConfig, 0, len(raw))
	for _, entry := range raw {
		name, intervalStr, hasInterval := strings.Cut(entry, "=")
		interval := defaultInterval
		if hasInterval {
			parsed, err := strconv.ParseFloat(intervalStr, 64)
			if err != nil {
				return nil, fmt.Errorf("que-locker: invalid --queue-name interval in %q: %w", entry, err)
			}
			interval = parsed
		}
		if interval < 0.01 {
			return nil, fmt.Errorf("que-locker: queue %q poll interval must be >= 0.01", name)
		}
		queues = append(queues, locker.QueueConfig{Name: name, Interval: interval})
	}
	return queues, nil
}
