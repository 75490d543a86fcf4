package orderbookv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a test order
func createTestOrder(id, userID, price, qty uint64, side Side) *Order {
	return NewOrder(id, userID, price, qty, side)
}

func TestNewPriceLevel(t *testing.T) {
	level := NewPriceLevel(100)

	assert.NotNil(t, level)
	assert.Equal(t, uint64(100), level.Price)
	assert.Equal(t, uint64(0), level.Volume())
	assert.True(t, level.Empty())
	assert.Nil(t, level.Front())
}

func TestPriceLevel_Append(t *testing.T) {
	t.Run("Append valid order", func(t *testing.T) {
		level := NewPriceLevel(100)
		order := createTestOrder(1, 10, 100, 50, SideSell)

		err := level.Append(order)

		require.NoError(t, err)
		assert.Equal(t, 1, level.Len())
		assert.Equal(t, uint64(50), level.Volume())
		assert.Equal(t, order, level.Front())
		assert.False(t, level.Empty())
	})

	t.Run("Append nil order", func(t *testing.T) {
		level := NewPriceLevel(100)
		err := level.Append(nil)
		assert.ErrorIs(t, err, ErrNilOrder)
	})

	t.Run("Append keeps arrival order and sums volume", func(t *testing.T) {
		level := NewPriceLevel(100)
		first := createTestOrder(1, 10, 100, 30, SideSell)
		second := createTestOrder(2, 11, 100, 20, SideSell)

		require.NoError(t, level.Append(first))
		require.NoError(t, level.Append(second))

		assert.Equal(t, 2, level.Len())
		assert.Equal(t, uint64(50), level.Volume())
		assert.Equal(t, first, level.Front())
	})
}

func TestPriceLevel_FillFront(t *testing.T) {
	t.Run("Partial fill keeps front in place", func(t *testing.T) {
		level := NewPriceLevel(100)
		order := createTestOrder(1, 10, 100, 50, SideSell)
		require.NoError(t, level.Append(order))

		removed, err := level.FillFront(20)

		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, uint64(30), order.Qty)
		assert.Equal(t, uint64(30), level.Volume())
		assert.Equal(t, order, level.Front())
	})

	t.Run("Exact fill pops the front order", func(t *testing.T) {
		level := NewPriceLevel(100)
		first := createTestOrder(1, 10, 100, 50, SideSell)
		second := createTestOrder(2, 11, 100, 25, SideSell)
		require.NoError(t, level.Append(first))
		require.NoError(t, level.Append(second))

		removed, err := level.FillFront(50)

		require.NoError(t, err)
		assert.True(t, removed)
		assert.True(t, first.IsFilled())
		assert.Equal(t, second, level.Front())
		assert.Equal(t, uint64(25), level.Volume())
	})

	t.Run("Fill on empty level", func(t *testing.T) {
		level := NewPriceLevel(100)
		_, err := level.FillFront(10)
		assert.ErrorIs(t, err, ErrLevelEmpty)
	})

	t.Run("Fill larger than front order", func(t *testing.T) {
		level := NewPriceLevel(100)
		require.NoError(t, level.Append(createTestOrder(1, 10, 100, 5, SideSell)))

		_, err := level.FillFront(6)

		assert.ErrorIs(t, err, ErrFillExceedsFront)
		assert.Equal(t, uint64(5), level.Volume())
	})
}

func TestPriceLevel_Remove(t *testing.T) {
	t.Run("Remove middle order keeps queue order", func(t *testing.T) {
		level := NewPriceLevel(100)
		first := createTestOrder(1, 10, 100, 10, SideBuy)
		second := createTestOrder(2, 11, 100, 20, SideBuy)
		third := createTestOrder(3, 12, 100, 30, SideBuy)
		require.NoError(t, level.Append(first))
		require.NoError(t, level.Append(second))
		require.NoError(t, level.Append(third))

		err := level.Remove(2)

		require.NoError(t, err)
		assert.Equal(t, 2, level.Len())
		assert.Equal(t, uint64(40), level.Volume())
		assert.Equal(t, []*Order{first, third}, level.Orders())
	})

	t.Run("Remove unknown order", func(t *testing.T) {
		level := NewPriceLevel(100)
		require.NoError(t, level.Append(createTestOrder(1, 10, 100, 10, SideBuy)))

		err := level.Remove(99)

		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.Equal(t, 1, level.Len())
		assert.Equal(t, uint64(10), level.Volume())
	})
}

func TestPriceLevel_Orders(t *testing.T) {
	level := NewPriceLevel(100)
	order := createTestOrder(1, 10, 100, 10, SideBuy)
	require.NoError(t, level.Append(order))

	orders := level.Orders()
	orders[0] = nil

	// Mutating the copy must not touch the queue
	assert.Equal(t, order, level.Front())
}
