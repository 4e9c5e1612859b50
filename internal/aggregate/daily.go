// Package aggregate folds classified records into one summary row per
// calendar day plus a TOTAL row.
package aggregate

import (
	"math"
	"time"

	"delivery-shift-report/internal/delivery"
	"delivery-shift-report/internal/window"
)

// TotalLabel is the label of the trailing grand-total row.
const TotalLabel = "TOTAL"

// DailyRow is the summary of one day, or of the whole segment for TOTAL.
type DailyRow struct {
	Label        string         `json:"label"`
	Date         time.Time      `json:"date,omitzero"`
	Total        int            `json:"total"`
	Morning      int            `json:"morning"`
	Afternoon    int            `json:"afternoon"`
	MorningPct   int            `json:"morning_pct"`
	AfternoonPct int            `json:"afternoon_pct"`
	Buckets      map[string]int `json:"buckets"`
	AvgHours     float64        `json:"avg_hours"`
}

// Options tunes the day loop.
type Options struct {
	// IncludeEmptyDays emits zero rows for window days without records
	// instead of skipping them.
	IncludeEmptyDays bool
}

// accumulator keeps raw sums so averages and percentages can be derived
// once, never averaged from already derived values.
type accumulator struct {
	total, morning, afternoon int
	buckets                   map[string]int
	hoursSum                  float64
	hoursCount                int
}

func newAccumulator() *accumulator {
	return &accumulator{buckets: map[string]int{}}
}

func (a *accumulator) add(r delivery.Classified) {
	a.total++
	switch r.Shift {
	case delivery.Morning:
		a.morning++
	case delivery.Afternoon:
		a.afternoon++
	}
	if r.HasDuration {
		a.buckets[r.Bucket]++
		a.hoursSum += r.DurationHours
		a.hoursCount++
	}
}

func (a *accumulator) merge(b *accumulator) {
	a.total += b.total
	a.morning += b.morning
	a.afternoon += b.afternoon
	for label, n := range b.buckets {
		a.buckets[label] += n
	}
	a.hoursSum += b.hoursSum
	a.hoursCount += b.hoursCount
}

func (a *accumulator) row(label string, date time.Time, scheme delivery.BucketScheme) DailyRow {
	buckets := make(map[string]int, len(scheme.Labels))
	for _, l := range scheme.Labels {
		buckets[l] = a.buckets[l]
	}
	avg := 0.0
	if a.hoursCount > 0 {
		avg = a.hoursSum / float64(a.hoursCount)
	}
	return DailyRow{
		Label:        label,
		Date:         date,
		Total:        a.total,
		Morning:      a.morning,
		Afternoon:    a.afternoon,
		MorningPct:   Percent(a.morning, a.total),
		AfternoonPct: Percent(a.afternoon, a.total),
		Buckets:      buckets,
		AvgHours:     avg,
	}
}

// Daily builds one row per window day in ascending order and the TOTAL row.
// Records are expected to be restricted to w already; any outside it are
// ignored. The TOTAL row is re-derived from summed counts and durations.
func Daily(records []delivery.Classified, w window.DayWindow, scheme delivery.BucketScheme, opts Options) ([]DailyRow, DailyRow) {
	byDay := map[string]*accumulator{}
	for _, r := range records {
		if r.PickedDate.IsZero() {
			continue
		}
		key := r.PickedDate.Format("2006-01-02")
		acc, ok := byDay[key]
		if !ok {
			acc = newAccumulator()
			byDay[key] = acc
		}
		acc.add(r)
	}

	grand := newAccumulator()
	var rows []DailyRow
	for _, d := range w.Days() {
		acc, ok := byDay[d.Format("2006-01-02")]
		if !ok {
			if !opts.IncludeEmptyDays {
				continue
			}
			acc = newAccumulator()
		}
		grand.merge(acc)
		rows = append(rows, acc.row(d.Format("01-02"), d, scheme))
	}
	return rows, grand.row(TotalLabel, time.Time{}, scheme)
}

// ShiftOnly keeps the records picked up in shift.
func ShiftOnly(records []delivery.Classified, shift delivery.Shift) []delivery.Classified {
	var out []delivery.Classified
	for _, r := range records {
		if r.Shift == shift {
			out = append(out, r)
		}
	}
	return out
}

// Percent is count/total*100 rounded half to even, 0 when total is 0. The
// share is taken before scaling, so float error decides near-.5 cases
// (23/40 is 57).
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(count) / float64(total) * 100))
}
