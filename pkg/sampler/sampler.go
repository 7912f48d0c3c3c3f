package sampler

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	qscontext "github.com/vnykmshr/queuestat/pkg/common/context"
	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
	"github.com/vnykmshr/queuestat/pkg/common/validation"
	"github.com/vnykmshr/queuestat/pkg/metrics"
	"github.com/vnykmshr/queuestat/pkg/store"
)

// DefaultWorkStatsKey is the hash the pipeline workers count sent posts in.
const DefaultWorkStatsKey = "tumblr:work_stats"

// DefaultQueueKeys returns the queue sets tracked when none are configured.
func DefaultQueueKeys() []string {
	return []string{
		"tumblr:queue:posts",
		"tumblr:queue:blogs",
		"tumblr:queue:import",
		"tumblr:queue:import:working",
		"tumblr:queue:manualqueue",
	}
}

// Observer receives cycle level measurements. *metrics.Registry implements it.
type Observer interface {
	ObserveCycle(d time.Duration)
	ObserveError(kind string)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds configuration for a Sampler.
type Config struct {
	// Store is read on every cycle. Required.
	Store store.Store

	// Metrics receives the sampled values. Required.
	Metrics metrics.Recorder

	// WorkStatsKey is the worker counter hash (default DefaultWorkStatsKey).
	WorkStatsKey string

	// QueueKeys lists the tracked queue sets (default DefaultQueueKeys).
	// It is the only source of queue labels.
	QueueKeys []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer is optional.
	Observer Observer

	// Clock defaults to the system clock.
	Clock Clock
}

// Stats reports cumulative sampler activity.
type Stats struct {
	Cycles        int64
	WorkerUpdates int64
	QueueUpdates  int64
	ParseErrors   int64
	LabelErrors   int64
	StoreErrors   int64
	LastDuration  time.Duration
	LastCycle     time.Time
}

// Sampler copies store state into the metric registry.
type Sampler struct {
	store        store.Store
	metrics      metrics.Recorder
	workStatsKey string
	queueKeys    []string
	logger       *slog.Logger
	observer     Observer
	clock        Clock

	mu    sync.Mutex
	stats Stats
}

// New creates a Sampler.
func New(cfg Config) (*Sampler, error) {
	if cfg.Store == nil {
		return nil, validation.ValidateNotNil("sampler", "store", nil)
	}
	if cfg.Metrics == nil {
		return nil, validation.ValidateNotNil("sampler", "metrics", nil)
	}
	if cfg.WorkStatsKey == "" {
		cfg.WorkStatsKey = DefaultWorkStatsKey
	}
	if cfg.QueueKeys == nil {
		cfg.QueueKeys = DefaultQueueKeys()
	}
	if err := validation.ValidateKeys("sampler", "queue", cfg.QueueKeys); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}

	return &Sampler{
		store:        cfg.Store,
		metrics:      cfg.Metrics,
		workStatsKey: cfg.WorkStatsKey,
		queueKeys:    slices.Clone(cfg.QueueKeys),
		logger:       cfg.Logger,
		observer:     cfg.Observer,
		clock:        cfg.Clock,
	}, nil
}

// QueueKeys returns the tracked queue keys.
func (s *Sampler) QueueKeys() []string {
	return slices.Clone(s.queueKeys)
}

// RunCycle performs one sample cycle. Worker counters are updated before
// queue sizes. If ctx is canceled the remaining reads are skipped; values
// already written stay and the cycle is not counted.
func (s *Sampler) RunCycle(ctx context.Context) {
	start := s.clock.Now()
	var c cycleCounts

	s.sampleWorkers(ctx, &c)
	for _, key := range s.queueKeys {
		if qscontext.IsCanceled(ctx) {
			break
		}
		s.sampleQueue(ctx, key, &c)
	}

	if qscontext.IsCanceled(ctx) {
		s.record(c, 0, time.Time{}, false)
		s.logger.Debug("Sample cycle interrupted",
			"deadline", qscontext.IsTimedOut(ctx),
			"error", ctx.Err())
		return
	}

	elapsed := s.clock.Now().Sub(start)
	s.record(c, elapsed, start, true)
	if s.observer != nil {
		s.observer.ObserveCycle(elapsed)
	}

	s.logger.Debug("Sample cycle complete",
		"workers", c.workers,
		"queues", c.queues,
		"parse_errors", c.parseErrors,
		"label_errors", c.labelErrors,
		"store_errors", c.storeErrors,
		"duration", elapsed)
}

// Stats returns a copy of the cumulative counters.
func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

type cycleCounts struct {
	workers     int64
	queues      int64
	parseErrors int64
	labelErrors int64
	storeErrors int64
}

func (s *Sampler) sampleWorkers(ctx context.Context, c *cycleCounts) {
	fields, err := s.store.HGetAll(ctx, s.workStatsKey)
	if err != nil {
		s.storeFailed(ctx, store.OpHGetAll, s.workStatsKey, err, c)
		return
	}

	for _, worker := range slices.Sorted(maps.Keys(fields)) {
		raw := fields[worker]
		value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			c.parseErrors++
			if s.observer != nil {
				s.observer.ObserveError(metrics.ErrorKindParse)
			}
			s.logger.Warn("Skipping unparsable worker count",
				"worker", worker,
				"value", raw)
			continue
		}
		if err := s.metrics.SetWorkerCounter(worker, value); err != nil {
			s.labelFailed("worker", worker, err, c)
			continue
		}
		c.workers++
	}
}

func (s *Sampler) sampleQueue(ctx context.Context, key string, c *cycleCounts) {
	n, err := s.store.SCard(ctx, key)
	if err != nil {
		s.storeFailed(ctx, store.OpSCard, key, err, c)
		return
	}
	if err := s.metrics.SetQueueSize(key, n); err != nil {
		s.labelFailed("queue", key, err, c)
		return
	}
	c.queues++
}

// labelFailed handles a name the registry refused as a label value, e.g. a
// hash field that is not valid UTF-8. Only that entry is skipped.
func (s *Sampler) labelFailed(kind, name string, err error, c *cycleCounts) {
	c.labelErrors++
	if s.observer != nil {
		s.observer.ObserveError(metrics.ErrorKindLabel)
	}
	s.logger.Warn("Skipping entry with unusable label",
		kind, strconv.Quote(name),
		"error", err)
}

func (s *Sampler) storeFailed(ctx context.Context, op, key string, err error, c *cycleCounts) {
	// Cancellation is shutdown, not a store fault.
	if qscontext.IsCanceled(ctx) {
		return
	}
	c.storeErrors++
	if s.observer != nil {
		s.observer.ObserveError(metrics.ErrorKindStore)
	}
	s.logger.Warn("Store read failed, keeping previous values",
		"op", op,
		"key", key,
		"timeout", qserrors.IsTemporary(err),
		"retryable", qserrors.IsRetryable(err),
		"error", err)
}

func (s *Sampler) record(c cycleCounts, elapsed time.Duration, at time.Time, complete bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.WorkerUpdates += c.workers
	s.stats.QueueUpdates += c.queues
	s.stats.ParseErrors += c.parseErrors
	s.stats.LabelErrors += c.labelErrors
	s.stats.StoreErrors += c.storeErrors
	if complete {
		s.stats.Cycles++
		s.stats.LastDuration = elapsed
		s.stats.LastCycle = at
	}
}
