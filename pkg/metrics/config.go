package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for the exporter's metric registry.
type Config struct {
	// Registry is the Prometheus registry to register gauges on. If nil, a new
	// private registry is created. The global default registerer is never used.
	Registry *prometheus.Registry

	// Namespace prefixes the exported gauge names. Empty keeps the bare
	// worker_posts and queue_size names.
	Namespace string

	// SelfMetrics adds sample cycle counters and a duration histogram to the
	// exported set.
	SelfMetrics bool
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:   "",
		SelfMetrics: false,
	}
}

// Recorder is the write side of the registry used by the sampler.
type Recorder interface {
	// SetWorkerCounter sets the completed-work gauge for worker. It fails
	// only when worker cannot be used as a label value.
	SetWorkerCounter(worker string, value int64) error

	// SetQueueSize sets the cardinality gauge for queue.
	SetQueueSize(queue string, value int64) error
}
