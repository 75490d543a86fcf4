package orderbookv1

import (
	"github.com/google/btree"
)

const priceLevelsBTreeDegree = 32

// BookSide holds every price level of one side of the book, keyed by price
// inside a btree. Bids and asks share the same structure, only the notion
// of "best" differs: highest price for bids, lowest price for asks.
type BookSide struct {
	side   Side
	levels *btree.BTree
	orders int
}

// NewBookSide creates an empty side of the book.
func NewBookSide(side Side) *BookSide {
	return &BookSide{
		side:   side,
		levels: btree.New(priceLevelsBTreeDegree),
	}
}

// Side returns which side of the book this is.
func (s *BookSide) Side() Side {
	return s.side
}

// Best returns the level first in line to trade, or nil when the side is
// empty. Best is the maximum price for bids and the minimum price for asks.
func (s *BookSide) Best() *PriceLevel {
	var item btree.Item
	if s.side == SideBuy {
		item = s.levels.Max()
	} else {
		item = s.levels.Min()
	}

	if item == nil {
		return nil
	}
	return item.(*PriceLevel)
}

// Level returns the price level at the given price, or nil if absent.
func (s *BookSide) Level(price uint64) *PriceLevel {
	item := s.levels.Get(&PriceLevel{Price: price})
	if item == nil {
		return nil
	}
	return item.(*PriceLevel)
}

// Append rests an order at its price level, creating the level when this is
// the first order at that price.
func (s *BookSide) Append(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	level := s.Level(order.Price)
	if level == nil {
		level = NewPriceLevel(order.Price)
		s.levels.ReplaceOrInsert(level)
	}

	if err := level.Append(order); err != nil {
		return err
	}

	s.orders++
	return nil
}

// Remove deletes a resting order from its level and drops the level once it
// becomes empty.
func (s *BookSide) Remove(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	level := s.Level(order.Price)
	if level == nil {
		return ErrOrderNotFound
	}

	if err := level.Remove(order.ID); err != nil {
		return err
	}

	s.orders--
	if level.Empty() {
		s.levels.Delete(level)
	}

	return nil
}

// FillFront reduces the front order of the given level by qty and prunes the
// level from the tree once it empties. It reports whether the front order was
// fully consumed and removed.
func (s *BookSide) FillFront(level *PriceLevel, qty uint64) (removed bool, err error) {
	removed, err = level.FillFront(qty)
	if err != nil {
		return false, err
	}

	if removed {
		s.orders--
	}
	if level.Empty() {
		s.levels.Delete(level)
	}

	return removed, nil
}

// Depth returns the number of price levels on this side.
func (s *BookSide) Depth() int {
	return s.levels.Len()
}

// Len returns the number of resting orders on this side.
func (s *BookSide) Len() int {
	return s.orders
}

// Volume returns the cached resting quantity at the given price, or zero
// when no level exists there.
func (s *BookSide) Volume(price uint64) uint64 {
	level := s.Level(price)
	if level == nil {
		return 0
	}
	return level.Volume()
}

// Walk visits every level in priority order, best first, until fn returns
// false.
func (s *BookSide) Walk(fn func(level *PriceLevel) bool) {
	iter := func(item btree.Item) bool {
		return fn(item.(*PriceLevel))
	}

	if s.side == SideBuy {
		s.levels.Descend(iter)
	} else {
		s.levels.Ascend(iter)
	}
}
