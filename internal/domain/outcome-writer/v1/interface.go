package outcomewriterv1

import (
	"context"

	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
)

// OutcomeWriter defines the interface for writing outcome records to a sink.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=outcomewriterv1_mock
type OutcomeWriter interface {
	// Write emits every wire record of the outcome, in order.
	Write(ctx context.Context, outcome *commandv1.Outcome) error
	// Close flushes and closes the sink.
	Close() error
}
