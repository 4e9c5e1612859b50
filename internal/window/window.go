// Package window resolves the inclusive calendar-day range a report covers.
package window

import (
	"fmt"
	"strings"
	"time"

	"delivery-shift-report/internal/delivery"
)

// Kind selects how a DayWindow is derived.
type Kind string

const (
	// Fixed spans StartMonthDay..EndMonthDay of the latest data year.
	Fixed Kind = "fixed"
	// Rolling spans the first of AnchorMonth in the current fiscal year up
	// to today.
	Rolling Kind = "rolling"
)

// Policy is the configured window rule.
type Policy struct {
	Kind          Kind
	StartMonthDay string // "MM-DD", fixed only
	EndMonthDay   string // "MM-DD", fixed only
	AnchorMonth   time.Month
}

// DefaultFixed is the September 20 .. October 10 window.
func DefaultFixed() Policy {
	return Policy{Kind: Fixed, StartMonthDay: "09-20", EndMonthDay: "10-10"}
}

// DefaultRolling runs from October 1 to today.
func DefaultRolling() Policy {
	return Policy{Kind: Rolling, AnchorMonth: time.October}
}

// Validate checks the month-day strings and anchor month for the kind.
func (p Policy) Validate() error {
	switch p.Kind {
	case Fixed:
		start, err := parseMonthDay(p.StartMonthDay)
		if err != nil {
			return fmt.Errorf("window start: %w", err)
		}
		end, err := parseMonthDay(p.EndMonthDay)
		if err != nil {
			return fmt.Errorf("window end: %w", err)
		}
		if end.Before(start) {
			return fmt.Errorf("window end %s is before start %s", p.EndMonthDay, p.StartMonthDay)
		}
	case Rolling:
		if p.AnchorMonth < time.January || p.AnchorMonth > time.December {
			return fmt.Errorf("invalid anchor month: %d", p.AnchorMonth)
		}
	default:
		return fmt.Errorf("unknown window policy: %q", p.Kind)
	}
	return nil
}

// DayWindow is an inclusive range of calendar dates at midnight UTC.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Resolve computes the window for data whose latest pickup year is
// latestYear. today only matters for Rolling.
func Resolve(p Policy, latestYear int, today time.Time) (DayWindow, error) {
	switch p.Kind {
	case Fixed:
		start, err := parseMonthDay(p.StartMonthDay)
		if err != nil {
			return DayWindow{}, err
		}
		end, err := parseMonthDay(p.EndMonthDay)
		if err != nil {
			return DayWindow{}, err
		}
		return DayWindow{
			Start: date(latestYear, start.Month(), start.Day()),
			End:   date(latestYear, end.Month(), end.Day()),
		}, nil
	case Rolling:
		year := latestYear
		if today.Month() < p.AnchorMonth {
			year--
		}
		return DayWindow{
			Start: date(year, p.AnchorMonth, 1),
			End:   date(today.Year(), today.Month(), today.Day()),
		}, nil
	default:
		return DayWindow{}, fmt.Errorf("unknown window policy: %q", p.Kind)
	}
}

// Empty reports whether End precedes Start.
func (w DayWindow) Empty() bool {
	return w.End.Before(w.Start)
}

// Contains reports whether day's calendar date is inside the window.
func (w DayWindow) Contains(day time.Time) bool {
	if day.IsZero() {
		return false
	}
	d := date(day.Year(), day.Month(), day.Day())
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days lists every date of the window in ascending order.
func (w DayWindow) Days() []time.Time {
	if w.Empty() {
		return nil
	}
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (w DayWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// LatestYear is the largest pickup year among records, 0 if none has one.
func LatestYear(records []delivery.Classified) int {
	latest := 0
	for _, r := range records {
		if r.PickedAt.IsZero() {
			continue
		}
		if y := r.PickedAt.Year(); y > latest {
			latest = y
		}
	}
	return latest
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func parseMonthDay(value string) (time.Time, error) {
	t, err := time.Parse("01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month-day %q (want MM-DD)", value)
	}
	return t, nil
}
