package kafkafeed

import (
	"context"

	tradepublisherv1 "github.com/aartoni/orderbook/internal/domain/trade-publisher/v1"
	"github.com/aartoni/orderbook/pkg/config"
	"github.com/aartoni/orderbook/pkg/errors"
	"github.com/aartoni/orderbook/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Publisher publishes trade events to a Kafka topic, keyed by symbol.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewPublisher creates a new Kafka publisher for trade events.
// It returns an implementation of the TradePublisher interface.
func NewPublisher(cfg config.KafkaConfig, logger logger.Interface) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.TradeTopic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      logger,
	}
}

// Publish publishes a trade event to the Kafka topic.
func (p *Publisher) Publish(ctx context.Context, event *tradepublisherv1.TradeEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.Symbol),
		Value: event.ToBytes(),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "tradeEvent", Value: event},
		)
		return errors.NewTracer("failed to publish trade event").Wrap(err)
	}
	return nil
}

// Close properly closes the Kafka writer.
func (p *Publisher) Close() error {
	if err := p.kafkaWriter.Close(); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "operation", Value: "Close"},
		)
		return err
	}
	return nil
}
