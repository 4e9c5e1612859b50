// Package ingest decodes a delivery export CSV into a delivery.Table.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"delivery-shift-report/internal/dateparse"
	"delivery-shift-report/internal/delivery"
)

var (
	customerColumns  = []string{"Customer", "customer_name", "client"}
	hubColumns       = []string{"Pickup Hub", "pickup_hub_code", "hub"}
	pickedColumns    = []string{"Picked on", "picked_at", "pickup_time", "picked_on_date"}
	deliveredColumns = []string{"Delivered on", "delivered_at", "delivery_time", "delivered_on_date"}
)

// ReadFile opens path and decodes it with ReadCSV.
func ReadFile(path string) (delivery.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return delivery.Table{}, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV decodes r. Only an unreadable header or malformed CSV is an error;
// missing columns and unparseable dates are recorded on the table.
func ReadCSV(r io.Reader) (delivery.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return delivery.Table{}, fmt.Errorf("unable to read header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	customerIdx, hasCustomer := findColumn(colMap, customerColumns)
	hubIdx, hasHub := findColumn(colMap, hubColumns)
	pickedIdx, hasPicked := findColumn(colMap, pickedColumns)
	deliveredIdx, hasDelivered := findColumn(colMap, deliveredColumns)

	table := delivery.Table{HasCustomer: hasCustomer, HasPickupHub: hasHub}
	var pickedRaw, deliveredRaw []string
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return delivery.Table{}, fmt.Errorf("unable to read CSV: %w", err)
		}
		if isBlank(record) {
			continue
		}
		table.Records = append(table.Records, delivery.Record{
			Customer:  getValue(record, customerIdx),
			PickupHub: getValue(record, hubIdx),
		})
		pickedRaw = append(pickedRaw, getValue(record, pickedIdx))
		deliveredRaw = append(deliveredRaw, getValue(record, deliveredIdx))
	}

	if !hasCustomer {
		table.Warnings = append(table.Warnings, "Customer column missing; customer filter skipped")
	}
	if !hasHub {
		table.Warnings = append(table.Warnings, "Pickup Hub column missing; hub filter skipped")
	}

	switch {
	case !hasPicked:
		table.PickedErr = fmt.Errorf("Picked on column missing: %w", dateparse.ErrUnparseableColumn)
	case len(table.Records) > 0:
		col, err := dateparse.ParseColumn(pickedRaw)
		if err != nil {
			table.PickedErr = fmt.Errorf("Picked on: %w", err)
		}
		for i := range table.Records {
			table.Records[i].PickedAt = col.Values[i]
		}
	}

	switch {
	case !hasDelivered:
		table.Warnings = append(table.Warnings, "Delivered on column missing; durations unknown")
	case len(table.Records) > 0:
		col, err := dateparse.ParseColumn(deliveredRaw)
		if err != nil {
			table.Warnings = append(table.Warnings, fmt.Sprintf("Delivered on: %v; durations unknown", err))
		}
		for i := range table.Records {
			table.Records[i].DeliveredAt = col.Values[i]
		}
	}
	return table, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func normalizeHeaders(headers []string) map[string]int {
	result := make(map[string]int, len(headers))
	for idx, header := range headers {
		normalized := normalizeHeader(header)
		if _, exists := result[normalized]; !exists {
			result[normalized] = idx
		}
	}
	return result
}

func normalizeHeader(value string) string {
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}

func findColumn(headers map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headers[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return -1, false
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
