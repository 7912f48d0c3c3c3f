/*
Package queuestat exports the pipeline's Redis state as Prometheus metrics.

Every sample interval (500ms by default) the exporter reads the per worker
counters hash and the size of each tracked queue set, and publishes them as
two gauges:

	worker_posts{worker="alice"} 10
	queue_size{queue="tumblr:queue:posts"} 3

Any GET on the listen address (":3000" by default) returns the current
snapshot in the Prometheus text format.

Packages:
  - pkg/metrics: gauge registry and text rendering
  - pkg/store: Redis read access with bounded per call timeouts
  - pkg/sampler: one sample cycle, failure containment and stats
  - pkg/schedule: interval and cron scheduling of sample cycles
  - pkg/common: shared errors, validation and context helpers

The binary lives in cmd/queuestat:

	queuestat --redis-addr localhost:6379 --listen :3000

The exporter never writes to Redis. When a read fails the previous values
stay published, and workers that vanish from the hash keep their last count
until restart.
*/
package queuestat
