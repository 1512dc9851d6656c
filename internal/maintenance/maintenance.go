package maintenance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobtracker-engine/internal/domain"
	"jobtracker-engine/internal/scheduler"
)

type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

type StatsSource interface {
	Statistics(ctx context.Context) (domain.Stats, error)
}

// Sweeper drops limiter state idle for longer than idle and reports how
// many entries went.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

type sweepers []Sweeper

func (ss sweepers) Sweep(idle time.Duration) int {
	n := 0
	for _, s := range ss {
		n += s.Sweep(idle)
	}
	return n
}

// Sweepers combines several sweepers into one, skipping nils. It returns
// nil when none are left.
func Sweepers(ss ...Sweeper) Sweeper {
	var out sweepers
	for _, s := range ss {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type Options struct {
	CheckpointInterval time.Duration
	// StatsInterval of zero disables the statistics log.
	StatsInterval time.Duration
	SweepInterval time.Duration
	SweepIdle     time.Duration
}

type Runner struct {
	db      Checkpointer
	stats   StatsSource
	sweeper Sweeper
	opts    Options
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// NewRunner wires the background tasks. stats and sweeper may be nil.
func NewRunner(db Checkpointer, stats StatsSource, sweeper Sweeper, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}
	if opts.SweepIdle <= 0 {
		opts.SweepIdle = 10 * time.Minute
	}
	return &Runner{db: db, stats: stats, sweeper: sweeper, opts: opts, logger: logger}
}

// Start launches every enabled task. It returns immediately.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	if r.db != nil && r.opts.CheckpointInterval > 0 {
		g.Go(func() error {
			scheduler.Every(ctx, r.opts.CheckpointInterval, "wal_checkpoint", r.logger, r.checkpoint)
			return nil
		})
	}
	if r.stats != nil && r.opts.StatsInterval > 0 {
		g.Go(func() error {
			scheduler.Every(ctx, r.opts.StatsInterval, "stats_log", r.logger, r.logStats)
			return nil
		})
	}
	if r.sweeper != nil {
		g.Go(func() error {
			scheduler.Every(ctx, r.opts.SweepInterval, "limiter_sweep", r.logger, r.sweep)
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	r.cancel = cancel
	r.done = done
	r.logger.Info("maintenance started",
		zap.Duration("checkpoint_interval", r.opts.CheckpointInterval),
		zap.Duration("stats_interval", r.opts.StatsInterval))
}

// Stop cancels the tasks and waits for them, or for ctx.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) checkpoint(ctx context.Context) error {
	start := time.Now()
	if err := r.db.Checkpoint(ctx); err != nil {
		return err
	}
	r.logger.Debug("wal checkpoint complete", zap.Duration("took", time.Since(start)))
	return nil
}

func (r *Runner) logStats(ctx context.Context) error {
	s, err := r.stats.Statistics(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("application statistics",
		zap.Int64("total", s.Total),
		zap.Int64("active", s.Active),
		zap.Int64("in_interview", s.InInterview),
		zap.Int64("rejected", s.Rejected),
		zap.Int64("accepted", s.Accepted))
	return nil
}

func (r *Runner) sweep(context.Context) error {
	if n := r.sweeper.Sweep(r.opts.SweepIdle); n > 0 {
		r.logger.Debug("idle limiter state swept", zap.Int("count", n))
	}
	return nil
}
