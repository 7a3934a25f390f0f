package kafka

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"campus-orderboard/internal/config"
	"campus-orderboard/internal/feed"
	"campus-orderboard/internal/logger"
)

// Source adapts per-topic consumers to the subscription manager's
// EventSource shape. Each Subscribe call gets its own consumer group member
// id, so two views never steal each other's messages.
type Source struct {
	cfg    config.KafkaConfig
	logger *logger.Logger
}

func NewSource(cfg config.KafkaConfig, log *logger.Logger) *Source {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Source{cfg: cfg, logger: log}
}

// Subscribe starts a consumer for the topic backing the given table and
// returns its teardown function.
func (s *Source) Subscribe(ctx context.Context, table string, handler func(value []byte)) (func(), error) {
	topic, err := s.topicFor(table)
	if err != nil {
		return nil, err
	}

	groupID := fmt.Sprintf("%s-%s", s.cfg.GroupID, uuid.NewString())
	consumer := NewConsumer(s.cfg.Brokers, topic, groupID, s.logger)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Start(subCtx, handler)
	}()

	return func() {
		cancel()
		consumer.Close()
		<-done
	}, nil
}

func (s *Source) topicFor(table string) (string, error) {
	switch table {
	case feed.TableOrders:
		return s.cfg.Topics.Orders, nil
	case feed.TableLineItems:
		return s.cfg.Topics.LineItems, nil
	case feed.TableCatalogItems:
		return s.cfg.Topics.Catalog, nil
	default:
		return "", fmt.Errorf("no topic configured for table %q", table)
	}
}
