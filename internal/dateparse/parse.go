// Package dateparse turns a column of exported timestamp strings into times,
// choosing one layout for the whole column by majority vote.
package dateparse

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// FlexibleLayout is reported as Column.Layout when no candidate layout won
// the vote and values were parsed one by one.
const FlexibleLayout = "flexible"

// ErrUnparseableColumn means not a single value in the column could be read
// as a date.
var ErrUnparseableColumn = errors.New("could not interpret dates")

// Candidates are tried in this order; the first one that parses more than
// half of the column is used for every value.
var Candidates = []string{
	"01-02-2006 15:04",
	"01-02-2006",
	"02-01-2006 15:04",
	"02-01-2006",
	"2006-01-02 15:04",
	"2006-01-02",
}

var isoTimeSep = regexp.MustCompile(`(\d)T(\d)`)

var flexibleLayouts = []string{
	"1-2-2006 15:04:05",
	"1-2-2006 15:04",
	"1-2-2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"1-2-06 15:04",
	"1-2-06",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
}

// Column is the parsed form of one input column. A zero time in Values means
// the value was blank or could not be parsed.
type Column struct {
	Layout string
	Values []time.Time
}

// Parsed counts the non-missing values.
func (c Column) Parsed() int {
	n := 0
	for _, v := range c.Values {
		if !v.IsZero() {
			n++
		}
	}
	return n
}

// ParseColumn parses values with the first candidate layout whose success
// rate over the whole column exceeds 50%, falling back to ParseFlexible per
// value. It returns ErrUnparseableColumn only when nothing parsed at all.
func ParseColumn(values []string) (Column, error) {
	if len(values) == 0 {
		return Column{Layout: FlexibleLayout}, nil
	}
	for _, layout := range Candidates {
		parsed, ok := parseAll(values, layout)
		if ok*2 > len(values) {
			return Column{Layout: layout, Values: parsed}, nil
		}
	}

	col := Column{Layout: FlexibleLayout, Values: make([]time.Time, len(values))}
	for i, value := range values {
		if t, err := ParseFlexible(value); err == nil {
			col.Values[i] = t
		}
	}
	if col.Parsed() == 0 {
		return col, ErrUnparseableColumn
	}
	return col, nil
}

func parseAll(values []string, layout string) ([]time.Time, int) {
	out := make([]time.Time, len(values))
	ok := 0
	for i, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		out[i] = t
		ok++
	}
	return out, ok
}

// ParseFlexible accepts the separators and orderings commonly seen in
// spreadsheet exports. Ambiguous day/month values are read month first.
func ParseFlexible(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return wallClock(t), nil
	}

	normalized := isoTimeSep.ReplaceAllString(value, "$1 $2")
	normalized = strings.NewReplacer("/", "-", ".", "-", ",", "").Replace(normalized)
	normalized = strings.Join(strings.Fields(normalized), " ")
	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unsupported date format: " + value)
}

// wallClock keeps the local reading of an offset timestamp in UTC, the
// location every other layout parses into.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
