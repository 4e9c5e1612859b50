// Package schedule re-runs a job on a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 6 * * *" for 06:00
// daily or "0 6 * * 1-5" for weekdays.
package schedule

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. Its error is logged and the loop continues.
type Job func(ctx context.Context) error

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Runner holds a parsed schedule and the clock it waits on.
type Runner struct {
	spec     string
	schedule cron.Schedule
	loc      *time.Location

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New parses spec. A nil loc means time.Local.
func New(spec string, loc *time.Location) (*Runner, error) {
	spec = strings.TrimSpace(spec)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule '%s': %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		spec:     spec,
		schedule: sched,
		loc:      loc,
		now:      time.Now,
		after:    time.After,
	}, nil
}

// Next is the first activation of spec strictly after now.
func Next(spec string, now time.Time) (time.Time, error) {
	r, err := New(spec, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	return r.schedule.Next(now), nil
}

// Run parses spec and blocks in Runner.Run.
func Run(ctx context.Context, spec string, loc *time.Location, job Job) error {
	r, err := New(spec, loc)
	if err != nil {
		return err
	}
	return r.Run(ctx, job)
}

// Run sleeps until each activation and calls job, until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, job Job) error {
	log.Printf("Report scheduled (cron: %s, %s)", r.spec, r.loc)
	for ctx.Err() == nil {
		now := r.now().In(r.loc)
		next := r.schedule.Next(now)
		wait := next.Sub(now)
		log.Printf("Next report at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		select {
		case <-ctx.Done():
		case <-r.after(wait):
			if err := job(ctx); err != nil {
				log.Printf("Scheduled report error: %v", err)
			}
		}
	}
	log.Printf("Scheduler stopped: %v", ctx.Err())
	return nil
}
