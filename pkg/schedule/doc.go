// Package schedule runs the sample cycle on a fixed cadence.
//
// A Schedule is either a fixed interval (default 500ms) or a cron
// expression with an optional seconds field:
//
//	every, _ := schedule.Every(500 * time.Millisecond)
//	hourly, _ := schedule.Cron("0 0 * * * *")
//	fast, _ := schedule.Cron("@every 2s")
//
// A Runner executes a Cycle on that schedule using gocron. The first cycle
// runs as soon as the runner starts. Cycles are serialized: if one is still
// in flight when the next tick fires, that tick is skipped and the job is
// rescheduled, so a slow store never stacks up concurrent cycles.
//
//	runner, err := schedule.NewRunner(s, schedule.Config{Schedule: every})
//	if err != nil {
//		return err
//	}
//	if err := runner.Start(ctx); err != nil {
//		return err
//	}
//	defer runner.Stop()
package schedule
