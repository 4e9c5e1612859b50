// Package influx writes daily report rows to InfluxDB v2 as time-series points.
package influx

import (
	"context"
	"fmt"
	"log"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"delivery-shift-report/internal/report"
)

// Measurement is the name every daily row is written under.
const Measurement = "delivery_daily"

// pointWriter is the part of api.WriteAPIBlocking the writer needs.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Writer sends report points through a blocking write API.
type Writer struct {
	client   influxdb2.Client
	writeAPI pointWriter
}

// NewWriter connects to url and verifies the server is healthy.
func NewWriter(ctx context.Context, url, token, org, bucket string) (*Writer, error) {
	client := influxdb2.NewClient(url, token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	if health == nil || health.Status != domain.HealthCheckStatusPass {
		client.Close()
		return nil, fmt.Errorf("InfluxDB at %s is not healthy", url)
	}

	return &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}, nil
}

// WriteReport writes one point per daily row of every table. TOTAL rows are
// skipped since they carry no date.
func (w *Writer) WriteReport(ctx context.Context, rep report.Report) (int, error) {
	points := Points(rep)
	if len(points) == 0 {
		return 0, nil
	}
	if err := w.writeAPI.WritePoint(ctx, points...); err != nil {
		return 0, fmt.Errorf("write %d points: %w", len(points), err)
	}
	log.Printf("Wrote %d daily points to InfluxDB", len(points))
	return len(points), nil
}

// Points converts the report's daily rows into line-protocol points.
func Points(rep report.Report) []*write.Point {
	var points []*write.Point
	for _, seg := range rep.Segments {
		for _, table := range seg.Tables {
			for _, row := range table.Rows {
				if row.Date.IsZero() {
					continue
				}
				fields := map[string]interface{}{
					"total":         row.Total,
					"morning":       row.Morning,
					"afternoon":     row.Afternoon,
					"morning_pct":   row.MorningPct,
					"afternoon_pct": row.AfternoonPct,
					"avg_hours":     row.AvgHours,
				}
				for _, label := range table.Buckets {
					fields["bucket_"+label] = row.Buckets[label]
				}
				points = append(points, write.NewPoint(
					Measurement,
					map[string]string{
						"segment": seg.Name,
						"table":   string(table.Kind),
						"scheme":  rep.Scheme,
					},
					fields,
					row.Date,
				))
			}
		}
	}
	return points
}

// Close releases the client.
func (w *Writer) Close() {
	w.client.Close()
}
