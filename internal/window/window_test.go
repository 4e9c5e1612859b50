package window

import (
	"testing"
	"time"

	"delivery-shift-report/internal/delivery"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveFixedUsesLatestDataYear(t *testing.T) {
	w, err := Resolve(DefaultFixed(), 2024, day(2026, 3, 1))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.Start.Equal(day(2024, 9, 20)) || !w.End.Equal(day(2024, 10, 10)) {
		t.Fatalf("unexpected window %s", w)
	}
	if n := len(w.Days()); n != 21 {
		t.Fatalf("expected 21 days, got %d", n)
	}
}

func TestResolveRollingAfterAnchor(t *testing.T) {
	w, err := Resolve(DefaultRolling(), 2024, day(2024, 10, 5))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.Start.Equal(day(2024, 10, 1)) || !w.End.Equal(day(2024, 10, 5)) {
		t.Fatalf("unexpected window %s", w)
	}
	if n := len(w.Days()); n != 5 {
		t.Fatalf("expected 5 days, got %d", n)
	}
}

func TestResolveRollingBeforeAnchorRollsYearBack(t *testing.T) {
	w, err := Resolve(DefaultRolling(), 2025, day(2025, 2, 14))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.Start.Equal(day(2024, 10, 1)) || !w.End.Equal(day(2025, 2, 14)) {
		t.Fatalf("unexpected window %s", w)
	}
}

func TestResolveRollingCanBeEmpty(t *testing.T) {
	// Data from a later year than today yields a window that ends before it starts.
	w, err := Resolve(DefaultRolling(), 2025, day(2024, 11, 1))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !w.Empty() || w.Days() != nil {
		t.Fatalf("expected empty window, got %s", w)
	}
}

func TestContainsIgnoresTimeOfDay(t *testing.T) {
	w := DayWindow{Start: day(2024, 10, 1), End: day(2024, 10, 2)}
	if !w.Contains(time.Date(2024, 10, 2, 23, 59, 0, 0, time.UTC)) {
		t.Fatalf("expected last day to be inclusive")
	}
	if w.Contains(day(2024, 10, 3)) || w.Contains(time.Time{}) {
		t.Fatalf("expected out-of-range and zero dates to be excluded")
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultFixed().Validate(); err != nil {
		t.Fatalf("default fixed: %v", err)
	}
	if err := DefaultRolling().Validate(); err != nil {
		t.Fatalf("default rolling: %v", err)
	}
	bad := Policy{Kind: Fixed, StartMonthDay: "10-10", EndMonthDay: "09-20"}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected reversed fixed window to fail")
	}
	if err := (Policy{Kind: "weekly"}).Validate(); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestLatestYear(t *testing.T) {
	records := []delivery.Classified{
		{Record: delivery.Record{PickedAt: day(2023, 12, 31)}},
		{Record: delivery.Record{PickedAt: day(2024, 1, 2)}},
		{},
	}
	if got := LatestYear(records); got != 2024 {
		t.Fatalf("expected 2024, got %d", got)
	}
	if got := LatestYear(nil); got != 0 {
		t.Fatalf("expected 0 for no records, got %d", got)
	}
}
