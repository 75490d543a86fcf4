package csvfeed

import (
	"bufio"
	"context"
	"io"
	"os"

	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
	"github.com/aartoni/orderbook/pkg/errors"
	"github.com/aartoni/orderbook/pkg/logger"
)

// Sink writes outcome records to a text stream, one record per line, in the
// order the engine produced them.
type Sink struct {
	writer *bufio.Writer
	closer io.Closer
	logger logger.Interface
}

// NewSink creates a sink writing to w.
// It returns an implementation of the OutcomeWriter interface.
func NewSink(w io.Writer, log logger.Interface) *Sink {
	return &Sink{
		writer: bufio.NewWriter(w),
		logger: log,
	}
}

// NewFileSink creates a sink writing to the file at path, truncating any
// previous content.
func NewFileSink(path string, log logger.Interface) (*Sink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.NewTracer("failed to create outcome file").Wrap(err)
	}

	sink := NewSink(file, log)
	sink.closer = file
	return sink, nil
}

// logError is a helper method to log errors consistently
func (s *Sink) logError(err error, operation string) {
	s.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// Write emits every record of the outcome and flushes, so readers tailing
// the stream see each command's records as soon as it is processed.
func (s *Sink) Write(ctx context.Context, outcome *commandv1.Outcome) error {
	for _, record := range outcome.Records() {
		if _, err := s.writer.WriteString(record); err != nil {
			s.logError(err, "Write")
			return err
		}
		if err := s.writer.WriteByte('\n'); err != nil {
			s.logError(err, "Write")
			return err
		}
	}

	if err := s.writer.Flush(); err != nil {
		s.logError(err, "Flush")
		return err
	}
	return nil
}

// Close flushes buffered records and closes the underlying file, if the
// sink owns one.
func (s *Sink) Close() error {
	if err := s.writer.Flush(); err != nil {
		s.logError(err, "Flush")
		return err
	}

	if s.closer == nil {
		return nil
	}

	if err := s.closer.Close(); err != nil {
		s.logError(err, "Close")
		return err
	}
	return nil
}
