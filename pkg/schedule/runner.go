package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
	"github.com/vnykmshr/queuestat/pkg/common/validation"
)

// Cycle is the unit of work run on every tick. *sampler.Sampler implements it.
type Cycle interface {
	RunCycle(ctx context.Context)
}

// CycleFunc adapts a function to Cycle.
type CycleFunc func(ctx context.Context)

// RunCycle calls f(ctx).
func (f CycleFunc) RunCycle(ctx context.Context) { f(ctx) }

// Config holds runner configuration.
type Config struct {
	// Schedule defaults to Every(DefaultInterval).
	Schedule Schedule

	// SkipImmediate disables the cycle normally run as soon as Start is called.
	SkipImmediate bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Runner drives a Cycle on a schedule. Cycles never overlap: a tick that
// fires while the previous cycle is still running is dropped.
type Runner struct {
	cycle     Cycle
	schedule  Schedule
	logger    *slog.Logger
	jobOpts   []gocron.JobOption
	immediate bool

	mu        sync.Mutex
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
	running   bool

	runs atomic.Int64
}

// NewRunner creates a stopped Runner.
func NewRunner(cycle Cycle, cfg Config) (*Runner, error) {
	if cycle == nil {
		return nil, validation.ValidateNotNil("schedule", "cycle", nil)
	}
	if cfg.Schedule.cron == nil && cfg.Schedule.interval == 0 {
		cfg.Schedule = Schedule{interval: DefaultInterval}
	}
	if !cfg.Schedule.IsCron() {
		if err := validation.ValidatePositiveDuration("schedule", "interval", cfg.Schedule.interval); err != nil {
			return nil, err
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []gocron.JobOption{
		gocron.WithName("sample"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if !cfg.SkipImmediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	return &Runner{
		cycle:     cycle,
		schedule:  cfg.Schedule,
		logger:    cfg.Logger,
		jobOpts:   opts,
		immediate: !cfg.SkipImmediate,
	}, nil
}

// Schedule returns the configured schedule.
func (r *Runner) Schedule() Schedule {
	return r.schedule
}

// Runs returns the number of cycles started so far.
func (r *Runner) Runs() int64 {
	return r.runs.Load()
}

// Start begins running cycles. Each cycle receives a context derived from
// ctx that is canceled by Stop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("runner already started")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	_, err = s.NewJob(
		r.schedule.jobDefinition(),
		gocron.NewTask(func() { r.run(runCtx) }),
		r.jobOpts...,
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return fmt.Errorf("failed to create sample job: %w", err)
	}

	r.logger.Info("Starting sampler schedule",
		"schedule", r.schedule.String(),
		"immediate", r.immediate,
		"next", r.schedule.Next(time.Now()))
	s.Start()

	r.scheduler = s
	r.cancel = cancel
	r.running = true
	return nil
}

// Stop cancels the running cycle, if any, and waits for it to return.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return qserrors.ErrClosed
	}

	r.logger.Info("Stopping sampler schedule")
	r.cancel()
	err := r.scheduler.Shutdown()
	r.running = false
	if err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	r.runs.Add(1)
	r.cycle.RunCycle(ctx)
}
