// Package schedule decides when sources are due and dispatches crawl tasks.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field cron expressions
// (minute hour day-of-month month day-of-week).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// IsDue reports whether a source with the given cron expression and last run
// is due at now.
//
// A source that never ran is always due. Otherwise the next run is computed
// strictly after lastRun and the source is due once that moment has passed.
// A malformed expression yields (false, error); the caller logs the error and
// moves on so one bad schedule cannot block the scan.
func IsDue(expr string, lastRun *time.Time, now time.Time) (bool, error) {
	if lastRun == nil {
		return true, nil
	}

	sched, err := cronParser.Parse(expr)
	if err != nil {
		return false, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}

	next := sched.Next(*lastRun)
	return !next.After(now), nil
}

// Validate checks that an expression parses as a 5-field cron schedule.
func Validate(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return nil
}
