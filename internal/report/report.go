// Package report runs the classify, segment, window and aggregate stages for
// the DC and Store segments and collects the resulting tables.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"delivery-shift-report/internal/aggregate"
	"delivery-shift-report/internal/dateparse"
	"delivery-shift-report/internal/delivery"
	"delivery-shift-report/internal/segment"
	"delivery-shift-report/internal/window"
)

var (
	// ErrNoMatchingRecords means the customer/hub filters left nothing.
	ErrNoMatchingRecords = errors.New("no records match the customer and hub filters")
	// ErrNoRecordsInWindow means records matched but none fell in the window.
	ErrNoRecordsInWindow = errors.New("no records in the date window")
)

// Kind names a table variant.
type Kind string

const (
	Summary   Kind = "summary"
	Morning   Kind = "morning"
	Afternoon Kind = "afternoon"
)

// AllKinds is the default set of tables per segment.
var AllKinds = []Kind{Summary, Morning, Afternoon}

// ParseKinds reads a list like ["summary","morning"]; empty means AllKinds.
func ParseKinds(values []string) ([]Kind, error) {
	if len(values) == 0 {
		return append([]Kind{}, AllKinds...), nil
	}
	seen := map[Kind]bool{}
	var kinds []Kind
	for _, v := range values {
		k := Kind(strings.ToLower(strings.TrimSpace(v)))
		switch k {
		case Summary, Morning, Afternoon:
		default:
			return nil, fmt.Errorf("unknown table kind: %s", v)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Options is everything Build needs besides the input table.
type Options struct {
	Customer         segment.CustomerRule
	Hub              string
	Window           window.Policy
	Scheme           delivery.BucketScheme
	Negative         delivery.NegativePolicy
	IncludeEmptyDays bool
	Tables           []Kind
	Today            time.Time
}

// Table is one rendered-ready table: day rows plus TOTAL.
type Table struct {
	Name    string               `json:"name"`
	Kind    Kind                 `json:"kind"`
	Buckets []string             `json:"buckets"`
	Rows    []aggregate.DailyRow `json:"rows"`
	Total   aggregate.DailyRow   `json:"total"`
}

// Segment is the DC or Store part of a report. Err carries the condition
// that stopped the segment early; the other segment is unaffected.
type Segment struct {
	Name      string           `json:"name"`
	Title     string           `json:"title"`
	Window    window.DayWindow `json:"window"`
	Matched   int              `json:"matched"`
	InWindow  int              `json:"in_window"`
	Anomalies int              `json:"negative_durations"`
	Tables    []Table          `json:"tables"`
	Err       error            `json:"-"`
}

// Condition is the operator-facing text for Err, empty when the segment
// produced tables.
func (s Segment) Condition() string {
	switch {
	case s.Err == nil:
		return ""
	case errors.Is(s.Err, ErrNoMatchingRecords):
		return "No data found for the specified customer and hub filters!"
	case errors.Is(s.Err, ErrNoRecordsInWindow):
		return "No data found after date filtering!"
	case errors.Is(s.Err, dateparse.ErrUnparseableColumn):
		return "Could not interpret the pickup dates: " + s.Err.Error()
	default:
		return s.Err.Error()
	}
}

// MarshalJSON adds the Condition text as "condition".
func (s Segment) MarshalJSON() ([]byte, error) {
	type plain Segment
	return json.Marshal(struct {
		plain
		Condition string `json:"condition,omitempty"`
	}{plain(s), s.Condition()})
}

// Report is the output of one run.
type Report struct {
	ID          uuid.UUID `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Scheme      string    `json:"scheme"`
	Segments    []Segment `json:"segments"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// Build runs the pipeline for both segments. It never fails as a whole;
// per-segment conditions are left on Segment.Err.
func Build(table delivery.Table, opts Options) Report {
	kinds := opts.Tables
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	rep := Report{
		ID:          uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Scheme:      opts.Scheme.Name,
		Warnings:    append([]string{}, table.Warnings...),
	}

	classified := delivery.ClassifyAll(table.Records, opts.Scheme, opts.Negative)
	dc, store := segment.Split(table, classified, opts.Customer, opts.Hub)

	rep.Segments = []Segment{
		buildSegment("DC", fmt.Sprintf("DC Analysis - %s", opts.Customer.Value), dc, table.PickedErr, kinds, opts),
		buildSegment("Store", fmt.Sprintf("Store Analysis - All Pickup Hubs (Excluding %s)", opts.Hub), store, table.PickedErr, kinds, opts),
	}
	return rep
}

func buildSegment(name, title string, records []delivery.Classified, pickedErr error, kinds []Kind, opts Options) Segment {
	seg := Segment{Name: name, Title: title, Matched: len(records)}
	if pickedErr != nil {
		seg.Err = pickedErr
		return seg
	}
	if len(records) == 0 {
		seg.Err = ErrNoMatchingRecords
		return seg
	}

	w, err := window.Resolve(opts.Window, window.LatestYear(records), opts.Today)
	if err != nil {
		seg.Err = err
		return seg
	}
	seg.Window = w

	inWindow := segment.Restrict(records, w)
	seg.InWindow = len(inWindow)
	if len(inWindow) == 0 {
		seg.Err = ErrNoRecordsInWindow
		return seg
	}
	for _, r := range inWindow {
		if r.Negative {
			seg.Anomalies++
		}
	}

	aggOpts := aggregate.Options{IncludeEmptyDays: opts.IncludeEmptyDays}
	for _, kind := range kinds {
		subset := inWindow
		label := "Daily Summary"
		switch kind {
		case Morning:
			subset = aggregate.ShiftOnly(inWindow, delivery.Morning)
			label = "Morning Shift"
		case Afternoon:
			subset = aggregate.ShiftOnly(inWindow, delivery.Afternoon)
			label = "Afternoon Slot"
		}
		rows, total := aggregate.Daily(subset, w, opts.Scheme, aggOpts)
		seg.Tables = append(seg.Tables, Table{
			Name:    fmt.Sprintf("%s %s", name, label),
			Kind:    kind,
			Buckets: append([]string{}, opts.Scheme.Labels...),
			Rows:    rows,
			Total:   total,
		})
	}
	return seg
}
