package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"campus-orderboard/internal/logger"
)

// Consumer wraps a kafka.Reader for one change-feed topic.
type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start consumes messages until ctx is cancelled, passing each raw value to
// the handler. Read errors are logged and skipped; the feed gives no ordering
// or exactly-once guarantees, so downstream merge logic carries the weight.
func (c *Consumer) Start(ctx context.Context, handler func(value []byte)) {
	c.logger.LogFeed("START", c.reader.Config().Topic, "consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("error reading message: %v", err))
			continue
		}
		handler(msg.Value)
	}
}

// Close shuts the reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
