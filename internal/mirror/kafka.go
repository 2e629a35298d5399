// v1
// internal/mirror/kafka.go

package mirror

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Mirror copies every published payload onto the grid data bus so
// downstream aggregation can consume the same stream the broker carries.
// Mirror failures are logged and never affect the replay tick.
type Mirror struct {
	log *slog.Logger
	w   *kafka.Writer
}

func New(brokers []string, topic string, log *slog.Logger) *Mirror {
	return &Mirror{
		log: log.With(slog.String("component", "kafka-mirror")),
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish writes one payload keyed by asset ID.
func (m *Mirror) Publish(ctx context.Context, assetID string, payload []byte) error {
	err := m.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(assetID),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		m.log.Warn("mirror write failed", "err", err, "assetId", assetID)
		return err
	}
	return nil
}

func (m *Mirror) Close() error {
	return m.w.Close()
}
