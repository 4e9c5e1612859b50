package delivery

import (
	"fmt"
	"strings"
	"time"
)

// NegativePolicy decides what happens to deliveries stamped before pickup.
type NegativePolicy string

const (
	// PassThrough keeps the negative value; it lands in the lowest bucket
	// and counts toward averages.
	PassThrough NegativePolicy = "pass_through"
	// Clamp treats the duration as zero hours.
	Clamp NegativePolicy = "clamp"
	// Exclude treats the duration as missing.
	Exclude NegativePolicy = "exclude"
)

// ParseNegativePolicy accepts the config spellings; empty means PassThrough.
func ParseNegativePolicy(value string) (NegativePolicy, error) {
	switch NegativePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PassThrough:
		return PassThrough, nil
	case Clamp:
		return Clamp, nil
	case Exclude:
		return Exclude, nil
	default:
		return "", fmt.Errorf("unknown negative duration policy: %s", value)
	}
}

// Classified is a record plus the fields derived from its timestamps.
type Classified struct {
	Record

	PickedDate    time.Time
	PickedHour    int
	Shift         Shift
	DurationHours float64
	HasDuration   bool
	Bucket        string
	// Negative marks a delivery stamped before its pickup, whatever the
	// policy did with it.
	Negative bool
}

// Classify derives date, hour, shift, duration and bucket from r.
func Classify(r Record, scheme BucketScheme, policy NegativePolicy) Classified {
	c := Classified{Record: r, PickedHour: -1, Bucket: UnknownBucket}
	if !r.PickedAt.IsZero() {
		c.PickedDate = DateOnly(r.PickedAt)
		c.PickedHour = r.PickedAt.Hour()
		c.Shift = ShiftOf(c.PickedHour)
	}
	if r.PickedAt.IsZero() || r.DeliveredAt.IsZero() {
		return c
	}

	hours := r.DeliveredAt.Sub(r.PickedAt).Hours()
	if hours < 0 {
		c.Negative = true
		switch policy {
		case Clamp:
			hours = 0
		case Exclude:
			return c
		}
	}
	c.DurationHours = hours
	c.HasDuration = true
	c.Bucket = scheme.Bucket(hours)
	return c
}

// ClassifyAll classifies every record into a new slice.
func ClassifyAll(records []Record, scheme BucketScheme, policy NegativePolicy) []Classified {
	out := make([]Classified, 0, len(records))
	for _, r := range records {
		out = append(out, Classify(r, scheme, policy))
	}
	return out
}

// DateOnly truncates value to midnight in its own location.
func DateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}
