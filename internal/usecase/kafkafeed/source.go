// Package kafkafeed moves commands and trade events over Kafka topics. The
// command topic is consumed as a single ordered partition and the broker
// offset doubles as the command sequence.
package kafkafeed

import (
	"context"
	"strings"

	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
	"github.com/aartoni/orderbook/pkg/config"
	"github.com/aartoni/orderbook/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Source reads commands from a Kafka topic partition.
type Source struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface
}

// NewSource creates a new Kafka source consuming the command topic.
// It returns an implementation of the CommandReader interface.
func NewSource(cfg config.KafkaConfig, log logger.Interface) *Source {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.CommandTopic,
		Partition:   cfg.Partition,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Source{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (s *Source) logError(err error, operation string) {
	s.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// Read returns the next command in the topic. Each message carries one
// record line, its broker offset becomes the command sequence. Comment and
// blank messages are skipped.
func (s *Source) Read(ctx context.Context) (*commandv1.Command, error) {
	for {
		msg, err := s.kafkaReader.ReadMessage(ctx)
		if err != nil {
			s.logError(err, "ReadMessage")
			return nil, err
		}

		line := strings.TrimSpace(string(msg.Value))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmd, err := commandv1.ParseLine(line)
		if err != nil {
			s.logError(err, "Parse")
			return nil, err
		}

		cmd.Sequence = msg.Offset

		s.logger.Debug("ReadMessage",
			logger.Field{Key: "sequence", Value: cmd.Sequence},
			logger.Field{Key: "kind", Value: cmd.Kind},
		)

		return cmd, nil
	}
}

// Seek positions the reader so the next Read returns the message after the
// given sequence.
func (s *Source) Seek(sequence int64) error {
	if err := s.kafkaReader.SetOffset(sequence + 1); err != nil {
		s.logError(err, "SetOffset")
		return err
	}
	return nil
}

// Commit marks the command as processed. The partition reader tracks no
// consumer group, offsets are recovered from snapshots instead.
func (s *Source) Commit(ctx context.Context, cmd *commandv1.Command) error {
	return nil
}

// Close properly closes the Kafka reader.
func (s *Source) Close() error {
	if err := s.kafkaReader.Close(); err != nil {
		s.logError(err, "Close")
		return err
	}
	return nil
}
