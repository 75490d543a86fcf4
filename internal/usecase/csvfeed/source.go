// Package csvfeed moves commands and outcomes over the textual record
// format: comma-separated fields, one record per line, '#' starting a
// comment line.
package csvfeed

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
	"github.com/aartoni/orderbook/pkg/errors"
	"github.com/aartoni/orderbook/pkg/logger"
)

// Source reads commands from a CSV text stream. Each record is stamped with
// its position in the stream so processing can resume after a restart.
type Source struct {
	reader *csv.Reader
	closer io.Closer
	logger logger.Interface

	sequence int64
	skipTo   int64
}

// NewSource creates a source reading from r.
// It returns an implementation of the CommandReader interface.
func NewSource(r io.Reader, log logger.Interface) *Source {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	return &Source{
		reader: reader,
		logger: log,
		skipTo: -1,
	}
}

// NewFileSource creates a source reading from the file at path.
func NewFileSource(path string, log logger.Interface) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewTracer("failed to open command file").Wrap(err)
	}

	source := NewSource(file, log)
	source.closer = file
	return source, nil
}

// logError is a helper method to log errors consistently
func (s *Source) logError(err error, operation string) {
	s.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// Read returns the next command in the stream. It returns io.EOF once the
// stream is exhausted. Malformed records fail the read, the stream is
// assumed well formed.
func (s *Source) Read(ctx context.Context) (*commandv1.Command, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields, err := s.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			s.logError(err, "Read")
			return nil, err
		}

		sequence := s.sequence
		s.sequence++
		if sequence <= s.skipTo {
			continue
		}

		cmd, err := commandv1.Parse(fields)
		if err != nil {
			s.logError(err, "Parse")
			return nil, err
		}

		cmd.Sequence = sequence
		return cmd, nil
	}
}

// Seek discards every record up to and including the given sequence, so the
// next Read returns the command that follows it.
func (s *Source) Seek(sequence int64) error {
	s.skipTo = sequence
	return nil
}

// Commit marks the command as processed. File streams have no processing
// cursor to persist, offsets are recovered from snapshots instead.
func (s *Source) Commit(ctx context.Context, cmd *commandv1.Command) error {
	return nil
}

// Close closes the underlying file, if the source owns one.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}

	if err := s.closer.Close(); err != nil {
		s.logError(err, "Close")
		return err
	}
	return nil
}
