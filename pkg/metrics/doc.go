// Package metrics holds the gauges published by queuestat and renders them in
// the Prometheus text exposition format.
//
// # Overview
//
// A Registry owns a private prometheus.Registry with two gauge vectors:
//
//   - worker_posts{worker}: posts sent by each worker, as last read from the
//     work statistics hash
//   - queue_size{queue}: cardinality of each tracked queue set
//
// Values are overwritten on every sample. A label that stops being reported
// keeps its last value until the process restarts.
//
// # Usage
//
//	reg := metrics.NewRegistry(metrics.DefaultConfig())
//	reg.SetWorkerCounter("alice", 10)
//	reg.SetQueueSize("tumblr:queue:posts", 3)
//
//	text, err := reg.RenderSnapshot()
//
// or serve it:
//
//	http.Handle("/", reg.Handler(slog.Default()))
//
// # Self Metrics
//
// With Config.SelfMetrics the registry also exports:
//
//   - queuestat_sample_cycles_total: completed sample cycles
//   - queuestat_sample_errors_total{kind}: store and parse errors
//   - queuestat_sample_duration_seconds: cycle duration histogram
//
// These are off by default so the scraped set is exactly the two gauges.
package metrics
