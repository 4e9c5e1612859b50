// Package delivery holds the delivery-event record and the per-record
// classification into shift and duration bucket.
package delivery

import "time"

// Record is one decoded input row. A zero time means the value was blank or
// unparseable.
type Record struct {
	Customer    string
	PickupHub   string
	PickedAt    time.Time
	DeliveredAt time.Time
}

// Table is the decoded input. HasCustomer and HasPickupHub report whether
// the source carried those columns at all; segment filters on a missing
// column are skipped.
type Table struct {
	Records      []Record
	HasCustomer  bool
	HasPickupHub bool

	// PickedErr is set when the pickup timestamp column could not be
	// interpreted at all.
	PickedErr error
	Warnings  []string
}

// Shift is the half-day bucket of the pickup hour.
type Shift string

const (
	Morning   Shift = "Morning"
	Afternoon Shift = "Afternoon"
)

// ShiftOf returns Morning for hours [0,12), Afternoon for [12,24) and ""
// for anything else.
func ShiftOf(hour int) Shift {
	switch {
	case hour >= 0 && hour < 12:
		return Morning
	case hour >= 12 && hour < 24:
		return Afternoon
	default:
		return ""
	}
}
