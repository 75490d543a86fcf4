package orderbookv1

// Trade represents a fill between a buy and a sell order. The execution
// price is always the resting order's price.
type Trade struct {
	BuyUser   uint64 `json:"buyUser"`
	BuyOrder  uint64 `json:"buyOrder"`
	SellUser  uint64 `json:"sellUser"`
	SellOrder uint64 `json:"sellOrder"`
	Price     uint64 `json:"price"`
	Qty       uint64 `json:"qty"`
}

// NewTrade creates a trade between an incoming taker order and a resting
// order, filled for qty at the resting order's price.
func NewTrade(taker, resting *Order, qty uint64) *Trade {
	trade := &Trade{
		Price: resting.Price,
		Qty:   qty,
	}

	if taker.IsBid() {
		trade.BuyUser = taker.UserID
		trade.BuyOrder = taker.ID
		trade.SellUser = resting.UserID
		trade.SellOrder = resting.ID
	} else {
		trade.BuyUser = resting.UserID
		trade.BuyOrder = resting.ID
		trade.SellUser = taker.UserID
		trade.SellOrder = taker.ID
	}

	return trade
}

// TopOfBook represents the best price and resting volume of one side of the
// book. Empty is set when the side has no resting orders at all.
type TopOfBook struct {
	Side   Side   `json:"side"`
	Price  uint64 `json:"price"`
	Volume uint64 `json:"volume"`
	Empty  bool   `json:"empty"`
}

// TopOf captures the current best level of a side, or an empty marker when
// the side holds no orders.
func TopOf(side *BookSide) TopOfBook {
	best := side.Best()
	if best == nil {
		return TopOfBook{Side: side.Side(), Empty: true}
	}

	return TopOfBook{
		Side:   side.Side(),
		Price:  best.Price,
		Volume: best.Volume(),
	}
}
