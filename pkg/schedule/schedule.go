package schedule

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
	"github.com/vnykmshr/queuestat/pkg/common/validation"
)

// DefaultInterval is the sample cadence used when nothing is configured.
const DefaultInterval = 500 * time.Millisecond

// Seconds are optional so both five and six field expressions are accepted,
// along with descriptors such as "@every 2s" and "@hourly".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is either a fixed interval or a cron expression.
type Schedule struct {
	interval time.Duration
	expr     string
	cron     cron.Schedule
}

// Every returns a fixed interval schedule.
func Every(interval time.Duration) (Schedule, error) {
	if err := validation.ValidatePositiveDuration("schedule", "interval", interval); err != nil {
		return Schedule{}, err
	}
	return Schedule{interval: interval}, nil
}

// Cron parses expr into a schedule.
func Cron(expr string) (Schedule, error) {
	if err := validation.ValidateNotEmpty("schedule", "cron", expr); err != nil {
		return Schedule{}, err
	}
	parsed, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, qserrors.NewValidationError("schedule", "cron", expr, err.Error()).
			WithHint(`use e.g. "*/5 * * * * *" or "@every 2s"`)
	}
	return Schedule{expr: expr, cron: parsed}, nil
}

// Parse returns a cron schedule when expr is set and an interval schedule
// otherwise.
func Parse(interval time.Duration, expr string) (Schedule, error) {
	if expr != "" {
		return Cron(expr)
	}
	return Every(interval)
}

// ValidateCron reports whether expr is a valid cron expression.
func ValidateCron(expr string) error {
	_, err := Cron(expr)
	return err
}

// IsCron reports whether s was built from a cron expression.
func (s Schedule) IsCron() bool {
	return s.cron != nil
}

// Interval returns the fixed interval, zero for cron schedules.
func (s Schedule) Interval() time.Duration {
	return s.interval
}

// Next returns the first activation strictly after t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.cron != nil {
		return s.cron.Next(t)
	}
	return t.Add(s.interval)
}

func (s Schedule) String() string {
	if s.cron != nil {
		return fmt.Sprintf("cron %q", s.expr)
	}
	return "every " + s.interval.String()
}

func (s Schedule) jobDefinition() gocron.JobDefinition {
	if s.cron != nil {
		return gocron.CronJob(s.expr, true)
	}
	return gocron.DurationJob(s.interval)
}
