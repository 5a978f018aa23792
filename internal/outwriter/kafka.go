package outwriter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/segmentio/kafka-go"
)

var _ contract.Sink = &KafkaSink{}

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// flaggedEvent is the JSON payload of one published row.
type flaggedEvent struct {
	RowID      int64  `json:"row_id"`
	ServiceKey int64  `json:"service_key"`
	FlagID     int    `json:"flag_id"`
	FlagName   string `json:"flag_name"`
	Date       string `json:"date"`
}

// KafkaSink publishes each flagged row as a JSON message keyed by row id.
type KafkaSink struct {
	writer    messageWriter
	batchSize int
}

// NewKafkaSink creates a sink publishing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		batchSize: 500,
	}
}

// Name implements contract.Sink.
func (s *KafkaSink) Name() string { return "kafka" }

// Write implements contract.Sink.
func (s *KafkaSink) Write(ctx context.Context, rows []schema.FlaggedRow, _ []time.Time) error {
	msgs := make([]kafka.Message, 0, min(len(rows), s.batchSize))
	flush := func() error {
		if len(msgs) == 0 {
			return nil
		}
		if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("failed to publish %d messages: %w", len(msgs), err)
		}
		msgs = msgs[:0]
		return nil
	}

	for _, row := range rows {
		value, err := json.Marshal(flaggedEvent{
			RowID:      row.RowID,
			ServiceKey: row.ServiceKey,
			FlagID:     int(row.FlagID),
			FlagName:   row.FlagID.Name(),
			Date:       row.Date,
		})
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", row.RowID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(strconv.FormatInt(row.RowID, 10)), Value: value})
		if len(msgs) >= s.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
