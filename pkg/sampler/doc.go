/*
Package sampler reads worker counters and queue sizes from the store and
publishes them into the metric registry.

One call to RunCycle is one sample cycle:

 1. HGETALL on the work statistics hash (default "tumblr:work_stats"). Each
    field is a worker name, each value a decimal count of posts sent.
 2. SCARD on every tracked queue key, in configured order.

Basic usage:

	s, err := sampler.New(sampler.Config{
		Store:   redisStore,
		Metrics: registry,
	})
	if err != nil {
		return err
	}
	s.RunCycle(ctx)

Failure Handling:

Nothing a cycle encounters is returned to the caller. A failed store call
leaves the affected gauges at their previous values and the cycle moves on
to the next key. A worker value that does not parse as an integer is skipped
for that cycle only; the other workers in the same hash still update.
Failures are logged at Warn and counted in Stats.

Staleness:

Gauges are only ever overwritten, never removed. A worker that disappears
from the hash keeps exporting its last value until the process restarts,
and a queue whose read fails keeps its last size.

Concurrency:

RunCycle may be called from several goroutines; each label pair is a last
write wins upsert in the registry. The scheduler in pkg/schedule serializes
cycles anyway.
*/
package sampler
