package aggregate

import (
	"math"
	"testing"
	"time"

	"delivery-shift-report/internal/delivery"
	"delivery-shift-report/internal/window"
)

func order(day, hour int, hours float64) delivery.Classified {
	picked := time.Date(2024, 10, day, hour, 0, 0, 0, time.UTC)
	delivered := picked.Add(time.Duration(hours * float64(time.Hour)))
	return delivery.Classify(delivery.Record{
		Customer:    "WESTSIDE",
		PickupHub:   "WD27",
		PickedAt:    picked,
		DeliveredAt: delivered,
	}, delivery.Coarse(), delivery.PassThrough)
}

func october(from, to int) window.DayWindow {
	return window.DayWindow{
		Start: time.Date(2024, 10, from, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 10, to, 0, 0, 0, 0, time.UTC),
	}
}

func TestDailyEndToEndExample(t *testing.T) {
	records := []delivery.Classified{
		order(1, 5, 1),
		order(1, 14, 3),
		order(2, 3, 13),
	}

	rows, total := Daily(records, october(1, 2), delivery.Coarse(), Options{})
	if len(rows) != 2 {
		t.Fatalf("expected 2 day rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Label != "10-01" || first.Total != 2 || first.Morning != 1 || first.Afternoon != 1 || first.MorningPct != 50 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.Buckets["0-2Hrs"] != 1 || first.Buckets["2-4Hrs"] != 1 {
		t.Fatalf("unexpected first row buckets: %v", first.Buckets)
	}
	if first.AvgHours != 2 {
		t.Fatalf("expected avg 2h, got %.2f", first.AvgHours)
	}

	second := rows[1]
	if second.Label != "10-02" || second.Total != 1 || second.Morning != 1 || second.Afternoon != 0 {
		t.Fatalf("unexpected second row: %+v", second)
	}
	if second.Buckets["12-24Hrs"] != 1 {
		t.Fatalf("unexpected second row buckets: %v", second.Buckets)
	}

	if total.Label != TotalLabel || total.Total != 3 || total.Morning != 2 || total.Afternoon != 1 {
		t.Fatalf("unexpected total row: %+v", total)
	}
	if total.MorningPct != 67 || total.AfternoonPct != 33 {
		t.Fatalf("unexpected total percentages: %d/%d", total.MorningPct, total.AfternoonPct)
	}
	if math.Abs(total.AvgHours-17.0/3) > 1e-9 {
		t.Fatalf("expected total avg %.4f, got %.4f", 17.0/3, total.AvgHours)
	}
}

func TestDailyTotalIsNotAnAverageOfDays(t *testing.T) {
	records := []delivery.Classified{order(1, 8, 1)}
	for i := 0; i < 9; i++ {
		records = append(records, order(2, 15, 10))
	}

	rows, total := Daily(records, october(1, 2), delivery.Coarse(), Options{})
	if rows[0].MorningPct != 100 || rows[1].MorningPct != 0 {
		t.Fatalf("unexpected per-day percentages: %d %d", rows[0].MorningPct, rows[1].MorningPct)
	}
	if total.MorningPct != 10 {
		t.Fatalf("expected total morning%% 10 from sums, got %d", total.MorningPct)
	}
	if math.Abs(total.AvgHours-9.1) > 1e-9 {
		t.Fatalf("expected weighted avg 9.1h, got %.4f", total.AvgHours)
	}
}

func TestDailyInvariants(t *testing.T) {
	records := []delivery.Classified{
		order(1, 0, 0.5), order(1, 11, 2), order(1, 12, 49), order(3, 23, 7),
		order(5, 6, 25), order(5, 18, 4.5), order(5, 9, 12),
	}
	missing := delivery.Classify(delivery.Record{PickedAt: time.Date(2024, 10, 3, 9, 0, 0, 0, time.UTC)}, delivery.Coarse(), delivery.PassThrough)
	records = append(records, missing)

	rows, total := Daily(records, october(1, 6), delivery.Coarse(), Options{})
	sum := 0
	for _, row := range rows {
		if row.Morning+row.Afternoon != row.Total {
			t.Fatalf("%s: shift split %d+%d != %d", row.Label, row.Morning, row.Afternoon, row.Total)
		}
		bucketSum := 0
		for _, n := range row.Buckets {
			bucketSum += n
		}
		if bucketSum > row.Total {
			t.Fatalf("%s: bucket sum %d exceeds total %d", row.Label, bucketSum, row.Total)
		}
		sum += row.Total
	}
	if sum != total.Total {
		t.Fatalf("day totals %d != TOTAL %d", sum, total.Total)
	}
	if total.Total != 8 {
		t.Fatalf("expected 8 records, got %d", total.Total)
	}
	if total.MorningPct != Percent(total.Morning, total.Total) {
		t.Fatalf("total morning%% not derived from sums")
	}
}

func TestDailySparseDaysAreDropped(t *testing.T) {
	records := []delivery.Classified{order(1, 9, 1), order(5, 9, 1)}

	rows, _ := Daily(records, october(1, 10), delivery.Coarse(), Options{})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows for a sparse range, got %d", len(rows))
	}
	if rows[0].Label != "10-01" || rows[1].Label != "10-05" {
		t.Fatalf("unexpected labels: %s %s", rows[0].Label, rows[1].Label)
	}
}

func TestDailyIncludeEmptyDays(t *testing.T) {
	records := []delivery.Classified{order(1, 9, 1), order(5, 9, 1)}

	rows, total := Daily(records, october(1, 10), delivery.Coarse(), Options{IncludeEmptyDays: true})
	if len(rows) != 10 {
		t.Fatalf("expected 10 zero-filled rows, got %d", len(rows))
	}
	empty := rows[1]
	if empty.Total != 0 || empty.MorningPct != 0 || empty.AvgHours != 0 {
		t.Fatalf("expected zero row, got %+v", empty)
	}
	if len(empty.Buckets) != len(delivery.Coarse().Labels) {
		t.Fatalf("expected every bucket column on empty rows")
	}
	if total.Total != 2 {
		t.Fatalf("expected total 2, got %d", total.Total)
	}
}

func TestDailyNoRecords(t *testing.T) {
	rows, total := Daily(nil, october(1, 3), delivery.Coarse(), Options{})
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if total.Total != 0 || total.MorningPct != 0 || total.AfternoonPct != 0 || total.AvgHours != 0 {
		t.Fatalf("expected zero total row, got %+v", total)
	}
}

func TestShiftOnly(t *testing.T) {
	records := []delivery.Classified{order(1, 5, 1), order(1, 14, 3), order(2, 3, 13)}

	morning := ShiftOnly(records, delivery.Morning)
	rows, total := Daily(morning, october(1, 2), delivery.Coarse(), Options{})
	if total.Total != 2 || total.Afternoon != 0 {
		t.Fatalf("unexpected morning total: %+v", total)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 morning rows, got %d", len(rows))
	}

	afternoon := ShiftOnly(records, delivery.Afternoon)
	rows, total = Daily(afternoon, october(1, 2), delivery.Coarse(), Options{})
	if len(rows) != 1 || total.Total != 1 || total.Buckets["2-4Hrs"] != 1 {
		t.Fatalf("unexpected afternoon table: rows=%d total=%+v", len(rows), total)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		count, total, want int
	}{
		{0, 0, 0},
		{2, 3, 67},
		{1, 3, 33},
		{1, 8, 12},
		{3, 8, 38},
		{5, 5, 100},
		{23, 40, 57},
		{109, 200, 55},
	}
	for _, tc := range cases {
		if got := Percent(tc.count, tc.total); got != tc.want {
			t.Fatalf("Percent(%d,%d): expected %d, got %d", tc.count, tc.total, tc.want, got)
		}
	}
}
