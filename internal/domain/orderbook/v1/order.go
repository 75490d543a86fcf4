package orderbookv1

// Side represents the side of the book an order belongs to.
type Side string

const (
	// SideBuy represents a buy (bid) order.
	SideBuy Side = "buy"
	// SideSell represents a sell (ask) order.
	SideSell Side = "sell"
)

// Opposite returns the side an order would trade against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// IsValid checks whether the side is one of the two known values.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Order represents a single resting order in the order book.
// Price is expressed in integer ticks and Qty in integer lots.
type Order struct {
	ID     uint64 `json:"id"`
	UserID uint64 `json:"userID"`
	Price  uint64 `json:"price"`
	Qty    uint64 `json:"qty"`
	Side   Side   `json:"side"`
}

// NewOrder creates a new order with the given parameters.
func NewOrder(id, userID, price, qty uint64, side Side) *Order {
	return &Order{
		ID:     id,
		UserID: userID,
		Price:  price,
		Qty:    qty,
		Side:   side,
	}
}

// IsBid checks if the order is a bid (buy) order.
func (o *Order) IsBid() bool {
	return o.Side == SideBuy
}

// IsFilled checks if the order is fully filled.
func (o *Order) IsFilled() bool {
	return o.Qty == 0
}
