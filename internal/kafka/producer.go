package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"campus-orderboard/internal/feed"
)

// Producer wraps a kafka.Writer for one change-feed topic. Only the
// development order service publishes; the board side is a pure consumer.
type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishNotification streams a raw change notification keyed by entity id.
func (p *Producer) PublishNotification(ctx context.Context, key string, n feed.Notification) error {
	msgBytes, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// Close shuts the writer down.
func (p *Producer) Close() error {
	return p.Writer.Close()
}
