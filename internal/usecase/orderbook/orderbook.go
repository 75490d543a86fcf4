package orderbook

import (
	"errors"
	"fmt"

	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
	snapshotv1 "github.com/aartoni/orderbook/internal/domain/snapshot/v1"
)

// Mode selects how the book resolves crossing orders. It is a deployment
// switch, not a per-command option.
type Mode string

const (
	// ModeInsertOnly rejects any order that would cross the opposite side.
	ModeInsertOnly Mode = "insert-only"
	// ModeTrading matches crossing orders into trades.
	ModeTrading Mode = "trading"
)

// IsValid checks whether the mode is one of the two known values.
func (m Mode) IsValid() bool {
	return m == ModeInsertOnly || m == ModeTrading
}

// Options configures a book's matching behavior.
type Options struct {
	// Mode selects insertion-only or trading behavior.
	Mode Mode
	// OwnershipCheck makes cancels verify the requesting user owns the
	// order. When off, cancellation is keyed by order id alone.
	OwnershipCheck bool
	// PublishTopOfBook makes results carry the top-of-book changes each
	// command caused.
	PublishTopOfBook bool
}

var (
	// ErrNilOrder is returned when a nil order is submitted.
	ErrNilOrder = errors.New("order cannot be nil")
	// ErrInvalidOrder is returned when an order carries a zero price, zero
	// quantity or an unknown side. The codec rejects such records upstream,
	// so hitting this means a programming error.
	ErrInvalidOrder = errors.New("order fields out of range")
	// ErrNilSnapshot is returned when restoring from a nil snapshot.
	ErrNilSnapshot = errors.New("snapshot cannot be nil")
)

// OrderBook holds one symbol's resting orders: a bid side, an ask side and
// an index from order id to its resting order. The index holds exactly the
// ids currently resting on one of the two sides.
//
// The book is owned and mutated by a single goroutine, so it carries no
// locks. Rejections are reported in results, an error return always means
// the book's state can no longer be trusted.
type OrderBook struct {
	symbol string
	bids   *orderbookv1.BookSide
	asks   *orderbookv1.BookSide
	orders map[uint64]*orderbookv1.Order
	opts   Options
}

// NewOrderBook creates an empty book for the given symbol.
func NewOrderBook(symbol string, opts Options) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   orderbookv1.NewBookSide(orderbookv1.SideBuy),
		asks:   orderbookv1.NewBookSide(orderbookv1.SideSell),
		orders: make(map[uint64]*orderbookv1.Order),
		opts:   opts,
	}
}

// SubmitResult reports how the book resolved a submission. A rejected
// submission leaves the book untouched.
type SubmitResult struct {
	Accepted bool
	Trades   []*orderbookv1.Trade
	Tops     []orderbookv1.TopOfBook
}

// CancelResult reports how the book resolved a cancellation. Accepted is
// false when the order id is unknown or, with the ownership check enabled,
// owned by another user.
type CancelResult struct {
	Accepted bool
	Tops     []orderbookv1.TopOfBook
}

// Submit applies a new order to the book.
//
// In insertion-only mode an order whose price crosses the opposite side's
// best is rejected outright. In trading mode it matches against the opposite
// side, best level first, FIFO within each level, executing every fill at
// the resting order's price, and any remainder rests on its own side.
// Reusing an id that is still resting is rejected in both modes.
func (ob *OrderBook) Submit(order *orderbookv1.Order) (*SubmitResult, error) {
	if order == nil {
		return nil, ErrNilOrder
	}
	if order.Price == 0 || order.Qty == 0 || !order.Side.IsValid() {
		return nil, fmt.Errorf("%w: order %d", ErrInvalidOrder, order.ID)
	}

	if _, exists := ob.orders[order.ID]; exists {
		return &SubmitResult{Accepted: false}, nil
	}

	before := ob.tops()

	if ob.opts.Mode == ModeInsertOnly {
		if opposite := ob.oppositeOf(order.Side).Best(); opposite != nil && crosses(order, opposite.Price) {
			return &SubmitResult{Accepted: false}, nil
		}
	}

	result := &SubmitResult{Accepted: true}

	if ob.opts.Mode == ModeTrading {
		trades, err := ob.match(order)
		if err != nil {
			return nil, err
		}
		result.Trades = trades
	}

	if order.Qty > 0 {
		if err := ob.sideOf(order.Side).Append(order); err != nil {
			return nil, err
		}
		ob.orders[order.ID] = order
	}

	result.Tops = ob.changedTops(before)
	return result, nil
}

// match sweeps the side opposite the taker while its best level still
// crosses, consuming resting orders front first. Fully filled resting
// orders are dropped from the index as they go.
func (ob *OrderBook) match(taker *orderbookv1.Order) ([]*orderbookv1.Trade, error) {
	opposite := ob.oppositeOf(taker.Side)

	var trades []*orderbookv1.Trade
	for taker.Qty > 0 {
		best := opposite.Best()
		if best == nil || !crosses(taker, best.Price) {
			break
		}

		resting := best.Front()
		if resting == nil {
			return nil, fmt.Errorf("symbol %s: empty level %d survived in book", ob.symbol, best.Price)
		}

		fill := min(taker.Qty, resting.Qty)
		trades = append(trades, orderbookv1.NewTrade(taker, resting, fill))

		restingID := resting.ID
		removed, err := opposite.FillFront(best, fill)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: fill at level %d: %w", ob.symbol, best.Price, err)
		}
		if removed {
			delete(ob.orders, restingID)
		}

		taker.Qty -= fill
	}

	return trades, nil
}

// Cancel removes the resting order with the given id. Unknown ids and,
// when the ownership check is on, cancels from the wrong user are reported
// as not accepted and leave the book unchanged.
func (ob *OrderBook) Cancel(user, orderID uint64) (*CancelResult, error) {
	order, exists := ob.orders[orderID]
	if !exists {
		return &CancelResult{Accepted: false}, nil
	}

	if ob.opts.OwnershipCheck && order.UserID != user {
		return &CancelResult{Accepted: false}, nil
	}

	before := ob.tops()

	if err := ob.sideOf(order.Side).Remove(order); err != nil {
		return nil, fmt.Errorf("symbol %s: cancel order %d: %w", ob.symbol, orderID, err)
	}
	delete(ob.orders, orderID)

	return &CancelResult{Accepted: true, Tops: ob.changedTops(before)}, nil
}

// BestBid returns the highest resting bid price.
func (ob *OrderBook) BestBid() (uint64, bool) {
	if best := ob.bids.Best(); best != nil {
		return best.Price, true
	}
	return 0, false
}

// BestAsk returns the lowest resting ask price.
func (ob *OrderBook) BestAsk() (uint64, bool) {
	if best := ob.asks.Best(); best != nil {
		return best.Price, true
	}
	return 0, false
}

// Has checks whether the order id is resting in the book.
func (ob *OrderBook) Has(orderID uint64) bool {
	_, exists := ob.orders[orderID]
	return exists
}

// Len returns the number of resting orders across both sides.
func (ob *OrderBook) Len() int {
	return len(ob.orders)
}

// Symbol returns the symbol this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// Bids returns the bid side for read-only inspection.
func (ob *OrderBook) Bids() *orderbookv1.BookSide {
	return ob.bids
}

// Asks returns the ask side for read-only inspection.
func (ob *OrderBook) Asks() *orderbookv1.BookSide {
	return ob.asks
}

// CreateSnapshot captures every resting order, per side in priority order,
// so replaying them through Append rebuilds identical level queues.
func (ob *OrderBook) CreateSnapshot() snapshotv1.BookSnapshot {
	bookOrders := make([]snapshotv1.BookOrder, 0, len(ob.orders))

	collect := func(level *orderbookv1.PriceLevel) bool {
		for _, order := range level.Orders() {
			bookOrders = append(bookOrders, snapshotv1.BookOrder{
				ID:     order.ID,
				UserID: order.UserID,
				Price:  order.Price,
				Qty:    order.Qty,
				Side:   string(order.Side),
			})
		}
		return true
	}

	ob.bids.Walk(collect)
	ob.asks.Walk(collect)

	return snapshotv1.BookSnapshot{
		Symbol: ob.symbol,
		Orders: bookOrders,
	}
}

// RestoreSnapshot rebuilds the book from a snapshot, dropping any current
// state first.
func (ob *OrderBook) RestoreSnapshot(snapshot *snapshotv1.BookSnapshot) error {
	if snapshot == nil {
		return ErrNilSnapshot
	}

	ob.bids = orderbookv1.NewBookSide(orderbookv1.SideBuy)
	ob.asks = orderbookv1.NewBookSide(orderbookv1.SideSell)
	ob.orders = make(map[uint64]*orderbookv1.Order, len(snapshot.Orders))

	for _, bookOrder := range snapshot.Orders {
		side := orderbookv1.Side(bookOrder.Side)
		if !side.IsValid() {
			return fmt.Errorf("%w: order %d has side %q", ErrInvalidOrder, bookOrder.ID, bookOrder.Side)
		}
		if _, exists := ob.orders[bookOrder.ID]; exists {
			return fmt.Errorf("restore order %d: duplicate id in snapshot", bookOrder.ID)
		}

		order := orderbookv1.NewOrder(bookOrder.ID, bookOrder.UserID, bookOrder.Price, bookOrder.Qty, side)
		if err := ob.sideOf(side).Append(order); err != nil {
			return fmt.Errorf("restore order %d: %w", bookOrder.ID, err)
		}
		ob.orders[order.ID] = order
	}

	return nil
}

func (ob *OrderBook) sideOf(side orderbookv1.Side) *orderbookv1.BookSide {
	if side == orderbookv1.SideBuy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) oppositeOf(side orderbookv1.Side) *orderbookv1.BookSide {
	return ob.sideOf(side.Opposite())
}

// crosses reports whether the order's price overlaps the opposite side's
// price: a buy at or above it, a sell at or below it.
func crosses(order *orderbookv1.Order, oppositePrice uint64) bool {
	if order.IsBid() {
		return order.Price >= oppositePrice
	}
	return order.Price <= oppositePrice
}

type topPair struct {
	bid orderbookv1.TopOfBook
	ask orderbookv1.TopOfBook
}

func (ob *OrderBook) tops() topPair {
	return topPair{
		bid: orderbookv1.TopOf(ob.bids),
		ask: orderbookv1.TopOf(ob.asks),
	}
}

// changedTops reports which sides' best level changed since before, bid
// line first. Disabled books report nothing.
func (ob *OrderBook) changedTops(before topPair) []orderbookv1.TopOfBook {
	if !ob.opts.PublishTopOfBook {
		return nil
	}

	after := ob.tops()

	var tops []orderbookv1.TopOfBook
	if after.bid != before.bid {
		tops = append(tops, after.bid)
	}
	if after.ask != before.ask {
		tops = append(tops, after.ask)
	}
	return tops
}
