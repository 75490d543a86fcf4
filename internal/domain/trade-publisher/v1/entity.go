package tradepublisherv1

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
)

// TradeEvent represents one executed trade enriched with the context
// downstream consumers need: the symbol it traded on, the sequence of the
// command that produced it and a unique, sortable event id.
type TradeEvent struct {
	ID        string            `json:"id"`
	Symbol    string            `json:"symbol"`
	Sequence  int64             `json:"sequence"`
	Trade     orderbookv1.Trade `json:"trade"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewTradeEvent creates a trade event with a fresh ULID.
func NewTradeEvent(symbol string, sequence int64, trade *orderbookv1.Trade) *TradeEvent {
	return &TradeEvent{
		ID:        ulid.Make().String(),
		Symbol:    symbol,
		Sequence:  sequence,
		Trade:     *trade,
		Timestamp: time.Now().UTC(),
	}
}

// ToBytes converts the trade event to a byte array.
func (e *TradeEvent) ToBytes() []byte {
	buf, err := json.Marshal(e)
	if err != nil {
		return nil
	}

	return buf
}

// FromBytes converts a byte array to a trade event.
func FromBytes(data []byte) *TradeEvent {
	var event TradeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil
	}
	return &event
}
