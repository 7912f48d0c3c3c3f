package metrics

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Exported metric identifiers.
const (
	WorkerPostsName = "worker_posts"
	WorkerPostsHelp = "posts sent by each worker"
	WorkerLabel     = "worker"

	QueueSizeName = "queue_size"
	QueueSizeHelp = "size of each internal queue"
	QueueLabel    = "queue"

	selfNamespace = "queuestat"
	selfSubsystem = "sample"
)

// Error kinds reported through ObserveError.
const (
	ErrorKindStore = "store"
	ErrorKindParse = "parse"
	ErrorKindLabel = "label"
)

// Registry holds the current gauge values. All methods are safe for
// concurrent use; each label pair is updated atomically but updates across
// pairs are not batched.
type Registry struct {
	reg *prometheus.Registry

	WorkerPosts *prometheus.GaugeVec
	QueueSize   *prometheus.GaugeVec

	// Self metrics, nil unless Config.SelfMetrics is set.
	SampleCycles   prometheus.Counter
	SampleErrors   *prometheus.CounterVec
	SampleDuration prometheus.Histogram
}

// NewRegistry creates the gauges described by cfg and registers them.
func NewRegistry(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	r := &Registry{
		reg: reg,

		WorkerPosts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      WorkerPostsName,
				Help:      WorkerPostsHelp,
			},
			[]string{WorkerLabel},
		),

		QueueSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      QueueSizeName,
				Help:      QueueSizeHelp,
			},
			[]string{QueueLabel},
		),
	}

	if cfg.SelfMetrics {
		r.SampleCycles = factory.NewCounter(prometheus.CounterOpts{
			Namespace: selfNamespace,
			Subsystem: selfSubsystem,
			Name:      "cycles_total",
			Help:      "Total number of completed sample cycles",
		})
		r.SampleErrors = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: selfNamespace,
			Subsystem: selfSubsystem,
			Name:      "errors_total",
			Help:      "Sample errors by kind",
		}, []string{"kind"})
		r.SampleDuration = factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: selfNamespace,
			Subsystem: selfSubsystem,
			Name:      "duration_seconds",
			Help:      "Time spent in one sample cycle",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		})
	}

	return r
}

// SetWorkerCounter upserts the worker_posts gauge for worker. Last write
// wins. A worker name that is not valid UTF-8 is rejected and nothing is
// stored.
func (r *Registry) SetWorkerCounter(worker string, value int64) error {
	return setGauge(r.WorkerPosts, worker, value)
}

// SetQueueSize upserts the queue_size gauge for queue. Last write wins.
func (r *Registry) SetQueueSize(queue string, value int64) error {
	return setGauge(r.QueueSize, queue, value)
}

func setGauge(vec *prometheus.GaugeVec, label string, value int64) error {
	g, err := vec.GetMetricWithLabelValues(label)
	if err != nil {
		return fmt.Errorf("label %q: %w", label, err)
	}
	g.Set(float64(value))
	return nil
}

// ObserveCycle records a finished sample cycle. No-op without self metrics.
func (r *Registry) ObserveCycle(d time.Duration) {
	if r.SampleCycles == nil {
		return
	}
	r.SampleCycles.Inc()
	r.SampleDuration.Observe(d.Seconds())
}

// ObserveError counts a sample error of the given kind. No-op without self metrics.
func (r *Registry) ObserveError(kind string) {
	if r.SampleErrors == nil {
		return
	}
	r.SampleErrors.WithLabelValues(kind).Inc()
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteSnapshot writes every tracked metric to w in text exposition format.
func (r *Registry) WriteSnapshot(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// RenderSnapshot returns the full current state as exposition text.
func (r *Registry) RenderSnapshot() (string, error) {
	var buf bytes.Buffer
	if err := r.WriteSnapshot(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Handler serves the registry. Gather failures become HTTP 500 and are
// logged through logger.
func (r *Registry) Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		ErrorLog:      errorLog{logger},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// errorLog adapts slog to promhttp.Logger.
type errorLog struct {
	logger *slog.Logger
}

func (l errorLog) Println(v ...interface{}) {
	l.logger.Error("Metrics handler error", "detail", fmt.Sprint(v...))
}
