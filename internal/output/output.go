// Package output renders a report as text, JSON, or one CSV per table.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"delivery-shift-report/internal/aggregate"
	"delivery-shift-report/internal/report"
)

// Columns is the header row of table within segment.
func Columns(segment string, table report.Table) []string {
	cols := []string{segment, "Total"}
	if table.Kind == report.Summary {
		cols = append(cols, "Morning shift", "Afternoon Slot", "Morning %", "Evening %")
	}
	cols = append(cols, table.Buckets...)
	return append(cols, "Avg Hrs")
}

// Cells renders row in the order of Columns.
func Cells(table report.Table, row aggregate.DailyRow) []string {
	cells := []string{row.Label, strconv.Itoa(row.Total)}
	if table.Kind == report.Summary {
		cells = append(cells,
			strconv.Itoa(row.Morning),
			strconv.Itoa(row.Afternoon),
			fmt.Sprintf("%d%%", row.MorningPct),
			fmt.Sprintf("%d%%", row.AfternoonPct),
		)
	}
	for _, label := range table.Buckets {
		cells = append(cells, strconv.Itoa(row.Buckets[label]))
	}
	return append(cells, strconv.FormatFloat(round2(row.AvgHours), 'f', 2, 64))
}

// PrintText writes the human-readable report.
func PrintText(w io.Writer, rep report.Report, inputPath string) {
	fmt.Fprintln(w, "Delivery Shift Report")
	fmt.Fprintln(w, strings.Repeat("=", 38))
	if inputPath != "" {
		fmt.Fprintf(w, "Input: %s\n", filepath.Base(inputPath))
	}
	fmt.Fprintf(w, "Run: %s\n", rep.ID)
	fmt.Fprintf(w, "Duration scheme: %s\n", rep.Scheme)
	for _, warning := range rep.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	for _, seg := range rep.Segments {
		fmt.Fprintf(w, "\n%s\n", seg.Title)
		fmt.Fprintln(w, strings.Repeat("=", 38))
		if seg.Err != nil {
			fmt.Fprintln(w, seg.Condition())
			continue
		}
		fmt.Fprintf(w, "Window: %s | matched %d | in window %d\n", seg.Window, seg.Matched, seg.InWindow)
		if seg.Anomalies > 0 {
			fmt.Fprintf(w, "Deliveries stamped before pickup: %d\n", seg.Anomalies)
		}
		for _, table := range seg.Tables {
			fmt.Fprintf(w, "\n%s\n", table.Name)
			fmt.Fprintln(w, strings.Repeat("-", 38))
			fmt.Fprintln(w, strings.Join(Columns(seg.Name, table), " | "))
			for _, row := range table.Rows {
				fmt.Fprintln(w, strings.Join(Cells(table, row), " | "))
			}
			fmt.Fprintln(w, strings.Join(Cells(table, table.Total), " | "))
		}
	}
}

// WriteJSON writes the report to path.
func WriteJSON(rep report.Report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteCSV writes one CSV per table into dir and returns the paths written.
// Segments without tables are skipped.
func WriteCSV(rep report.Report, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	var paths []string
	for _, seg := range rep.Segments {
		for _, table := range seg.Tables {
			path := filepath.Join(dir, fileName(table.Name)+".csv")
			if err := writeTableCSV(path, seg.Name, table); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func writeTableCSV(path, segment string, table report.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Columns(segment, table)); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := writer.Write(Cells(table, row)); err != nil {
			return err
		}
	}
	if err := writer.Write(Cells(table, table.Total)); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func fileName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
