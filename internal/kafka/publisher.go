// Package kafka publishes report rows as JSON messages.
package kafka

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Shopify/sarama"

	"delivery-shift-report/internal/aggregate"
	"delivery-shift-report/internal/report"
)

// RowMessage is the payload of one published row.
type RowMessage struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Scheme      string             `json:"scheme"`
	Segment     string             `json:"segment"`
	Table       string             `json:"table"`
	Kind        report.Kind        `json:"kind"`
	Row         aggregate.DailyRow `json:"row"`
}

// Publisher sends rows to one topic through a synchronous producer.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher dials brokers and waits for all in-sync replicas on each send.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, topic), nil
}

// NewPublisherWithProducer wraps an existing producer, e.g. a mock.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// PublishReport sends every row, TOTAL included, keyed by segment/table/label.
// It stops at the first failed send and returns how many were delivered.
func (p *Publisher) PublishReport(rep report.Report) (int, error) {
	sent := 0
	for _, seg := range rep.Segments {
		for _, table := range seg.Tables {
			rows := append(append([]aggregate.DailyRow{}, table.Rows...), table.Total)
			for _, row := range rows {
				payload, err := json.Marshal(RowMessage{
					RunID:       rep.ID.String(),
					GeneratedAt: rep.GeneratedAt,
					Scheme:      rep.Scheme,
					Segment:     seg.Name,
					Table:       table.Name,
					Kind:        table.Kind,
					Row:         row,
				})
				if err != nil {
					return sent, err
				}
				msg := &sarama.ProducerMessage{
					Topic: p.topic,
					Key:   sarama.StringEncoder(MessageKey(seg.Name, table.Kind, row.Label)),
					Value: sarama.ByteEncoder(payload),
				}
				if _, _, err := p.producer.SendMessage(msg); err != nil {
					return sent, fmt.Errorf("send %s row %s: %w", table.Name, row.Label, err)
				}
				sent++
			}
		}
	}
	log.Printf("Published %d rows to %s", sent, p.topic)
	return sent, nil
}

// MessageKey is the partition key of one row.
func MessageKey(segment string, kind report.Kind, label string) string {
	return segment + "/" + string(kind) + "/" + label
}

// Close closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
