package snapshotv1

import "time"

// Snapshot represents the state of every order book at a specific point in
// the command stream. Sequence is the last command applied before the
// snapshot was taken.
type Snapshot struct {
	Sequence int64          `json:"sequence"`
	TakenAt  time.Time      `json:"takenAt"`
	Books    []BookSnapshot `json:"books"`
}

// BookSnapshot represents the resting orders of one symbol's book. Orders
// are listed per side in priority order, so replaying them through the book
// rebuilds identical level queues.
type BookSnapshot struct {
	Symbol string      `json:"symbol"`
	Orders []BookOrder `json:"orders"`
}

// BookOrder represents a resting order in a snapshot.
type BookOrder struct {
	ID     uint64 `json:"id"`
	UserID uint64 `json:"userID"`
	Price  uint64 `json:"price"`
	Qty    uint64 `json:"qty"`
	Side   string `json:"side"`
}
