package commandv1

import (
	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
)

// Kind represents the type of command flowing through the engine.
type Kind string

const (
	// KindNew represents a new limit order submission.
	KindNew Kind = "new"
	// KindCancel represents a cancellation of a resting order.
	KindCancel Kind = "cancel"
	// KindFlush represents a request to drop every book and start clean.
	KindFlush Kind = "flush"
)

// Command represents one decoded input record. Sequence is assigned by the
// source and carries the record's position in the stream, it is used to
// resume processing after a restart.
type Command struct {
	Kind     Kind             `json:"kind"`
	Sequence int64            `json:"sequence"`
	Symbol   string           `json:"symbol,omitempty"`
	User     uint64           `json:"user"`
	OrderID  uint64           `json:"orderID"`
	Price    uint64           `json:"price,omitempty"`
	Qty      uint64           `json:"qty,omitempty"`
	Side     orderbookv1.Side `json:"side,omitempty"`
}

// NewOrderCommand creates a new-order command.
func NewOrderCommand(user uint64, symbol string, price, qty uint64, side orderbookv1.Side, orderID uint64) *Command {
	return &Command{
		Kind:    KindNew,
		User:    user,
		Symbol:  symbol,
		Price:   price,
		Qty:     qty,
		Side:    side,
		OrderID: orderID,
	}
}

// NewCancelCommand creates a cancel command.
func NewCancelCommand(user, orderID uint64) *Command {
	return &Command{
		Kind:    KindCancel,
		User:    user,
		OrderID: orderID,
	}
}

// NewFlushCommand creates a flush command.
func NewFlushCommand() *Command {
	return &Command{Kind: KindFlush}
}

// Order builds the book order this command describes. Only valid for
// KindNew commands.
func (c *Command) Order() *orderbookv1.Order {
	return orderbookv1.NewOrder(c.OrderID, c.User, c.Price, c.Qty, c.Side)
}
