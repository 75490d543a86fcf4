package commandreaderv1

import (
	"context"

	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
)

// CommandReader defines the interface for reading commands from a stream.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=commandreaderv1_mock
type CommandReader interface {
	// Read returns the next command in the stream, stamped with its
	// sequence. It returns io.EOF once the stream is exhausted.
	Read(ctx context.Context) (*commandv1.Command, error)
	// Seek positions the reader so the next Read returns the command
	// following the given sequence.
	Seek(sequence int64) error
	// Commit marks the command as processed by the engine.
	Commit(ctx context.Context, cmd *commandv1.Command) error
	// Close closes the reader.
	Close() error
}
