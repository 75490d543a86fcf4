package orderbookv1

import (
	"errors"

	"github.com/google/btree"
)

var (
	// ErrNilOrder is returned when a nil order is passed to a level operation.
	ErrNilOrder = errors.New("order cannot be nil")
	// ErrOrderNotFound is returned when an order id is not present at a level.
	ErrOrderNotFound = errors.New("order not found at price level")
	// ErrLevelEmpty is returned when a fill is attempted against an empty level.
	ErrLevelEmpty = errors.New("price level has no orders")
	// ErrFillExceedsFront is returned when a fill is larger than the front order.
	ErrFillExceedsFront = errors.New("fill exceeds front order quantity")
)

// PriceLevel holds the FIFO queue of orders resting at a single price.
// The queue keeps arrival order, index 0 is the oldest order. The total
// resting volume is cached and kept in sync with every mutation.
type PriceLevel struct {
	Price uint64

	orders []*Order
	volume uint64
}

// NewPriceLevel creates an empty price level at the given price.
func NewPriceLevel(price uint64) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: make([]*Order, 0, 4),
	}
}

// Less orders levels by ascending price inside a btree.
func (l *PriceLevel) Less(than btree.Item) bool {
	return l.Price < than.(*PriceLevel).Price
}

// Append adds an order to the back of the queue and updates the cached volume.
func (l *PriceLevel) Append(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	l.orders = append(l.orders, order)
	l.volume += order.Qty

	return nil
}

// Front returns the oldest order at this level, or nil when the level is empty.
func (l *PriceLevel) Front() *Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

// FillFront reduces the front order by qty and updates the cached volume.
// When the front order is fully consumed it is removed from the queue and
// removed reports true, so callers can drop the order id from their index.
func (l *PriceLevel) FillFront(qty uint64) (removed bool, err error) {
	if len(l.orders) == 0 {
		return false, ErrLevelEmpty
	}

	front := l.orders[0]
	if qty > front.Qty {
		return false, ErrFillExceedsFront
	}

	front.Qty -= qty
	l.volume -= qty

	if front.Qty == 0 {
		l.orders[0] = nil
		l.orders = l.orders[1:]
		return true, nil
	}

	return false, nil
}

// Remove deletes the order with the given id from the queue, keeping the
// relative order of the remaining entries.
func (l *PriceLevel) Remove(orderID uint64) error {
	for i, o := range l.orders {
		if o.ID == orderID {
			l.volume -= o.Qty
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return nil
		}
	}

	return ErrOrderNotFound
}

// Len returns the number of orders resting at this level.
func (l *PriceLevel) Len() int {
	return len(l.orders)
}

// Empty checks if the level has no orders.
func (l *PriceLevel) Empty() bool {
	return len(l.orders) == 0
}

// Volume returns the cached total resting quantity at this level.
func (l *PriceLevel) Volume() uint64 {
	return l.volume
}

// Orders returns a copy of the queue in priority order.
func (l *PriceLevel) Orders() []*Order {
	orders := make([]*Order, len(l.orders))
	copy(orders, l.orders)
	return orders
}
