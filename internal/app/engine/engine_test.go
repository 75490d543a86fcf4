package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commandreaderv1_mock "github.com/aartoni/orderbook/internal/domain/command-reader/v1/mock"
	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
	outcomewriterv1_mock "github.com/aartoni/orderbook/internal/domain/outcome-writer/v1/mock"
	snapshotv1 "github.com/aartoni/orderbook/internal/domain/snapshot/v1"
	snapshotv1_mock "github.com/aartoni/orderbook/internal/domain/snapshot/v1/mock"
	tradepublisherv1_mock "github.com/aartoni/orderbook/internal/domain/trade-publisher/v1/mock"
	"github.com/aartoni/orderbook/pkg/config"
	"github.com/aartoni/orderbook/pkg/logger"
)

// Test fixtures and helpers
type testFixture struct {
	ctrl          *gomock.Controller
	mockSource    *commandreaderv1_mock.MockCommandReader
	mockSink      *outcomewriterv1_mock.MockOutcomeWriter
	mockSnapshots *snapshotv1_mock.MockStore
	mockTrades    *tradepublisherv1_mock.MockTradePublisher
	logger        *logger.Logger
	config        *config.Config
}

func setupTestFixture(t *testing.T) *testFixture {
	ctrl := gomock.NewController(t)

	log, err := logger.NewLogger()
	require.NoError(t, err)

	return &testFixture{
		ctrl:          ctrl,
		mockSource:    commandreaderv1_mock.NewMockCommandReader(ctrl),
		mockSink:      outcomewriterv1_mock.NewMockOutcomeWriter(ctrl),
		mockSnapshots: snapshotv1_mock.NewMockStore(ctrl),
		mockTrades:    tradepublisherv1_mock.NewMockTradePublisher(ctrl),
		logger:        log,
		config: &config.Config{
			App: config.AppConfig{
				Name:     "matching-engine",
				LogLevel: "info",
			},
			Engine: config.EngineConfig{
				Mode:             "trading",
				OwnershipCheck:   false,
				PublishTopOfBook: true,
			},
		},
	}
}

func (f *testFixture) teardown() {
	f.ctrl.Finish()
}

func newTestCommand(sequence int64, user uint64, symbol string, price, qty uint64, side orderbookv1.Side, orderID uint64) *commandv1.Command {
	cmd := commandv1.NewOrderCommand(user, symbol, price, qty, side, orderID)
	cmd.Sequence = sequence
	return cmd
}

func cancelTestCommand(sequence int64, user, orderID uint64) *commandv1.Command {
	cmd := commandv1.NewCancelCommand(user, orderID)
	cmd.Sequence = sequence
	return cmd
}

func flushTestCommand(sequence int64) *commandv1.Command {
	cmd := commandv1.NewFlushCommand()
	cmd.Sequence = sequence
	return cmd
}

// Helper function to create an engine without snapshots or trade publishing
func createTestEngine(fixture *testFixture) *Engine {
	engine := NewEngine(
		fixture.mockSource,
		fixture.mockSink,
		nil,
		nil,
		fixture.logger,
		fixture.config,
	)

	// Initialize context to prevent nil pointer dereference
	engine.ctx = context.Background()

	return engine
}

func TestNewEngine(t *testing.T) {
	testCases := []struct {
		name             string
		setupMocks       func(*testFixture)
		withSnapshots    bool
		expectedSequence int64
		verify           func(*testing.T, *Engine)
	}{
		{
			name:             "successful engine creation without snapshot store",
			setupMocks:       func(f *testFixture) {},
			withSnapshots:    false,
			expectedSequence: -1,
		},
		{
			name: "successful engine creation with empty snapshot store",
			setupMocks: func(f *testFixture) {
				f.mockSnapshots.EXPECT().
					LoadStore(gomock.Any()).
					Return(nil, nil).
					Times(1)
			},
			withSnapshots:    true,
			expectedSequence: -1,
		},
		{
			name: "engine creation restores books from snapshot",
			setupMocks: func(f *testFixture) {
				snapshot := &snapshotv1.Snapshot{
					Sequence: 100,
					Books: []snapshotv1.BookSnapshot{
						{
							Symbol: "IBM",
							Orders: []snapshotv1.BookOrder{
								{ID: 101, UserID: 1, Price: 99, Qty: 5, Side: "buy"},
								{ID: 102, UserID: 2, Price: 101, Qty: 3, Side: "sell"},
							},
						},
					},
				}
				f.mockSnapshots.EXPECT().
					LoadStore(gomock.Any()).
					Return(snapshot, nil).
					Times(1)
			},
			withSnapshots:    true,
			expectedSequence: 100,
			verify: func(t *testing.T, engine *Engine) {
				require.Contains(t, engine.books, "IBM")
				assert.Equal(t, 2, engine.books["IBM"].Len())
				assert.Equal(t, "IBM", engine.orderSymbols[101])
				assert.Equal(t, "IBM", engine.orderSymbols[102])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := setupTestFixture(t)
			defer fixture.teardown()

			tc.setupMocks(fixture)

			var engine *Engine
			if tc.withSnapshots {
				engine = NewEngine(fixture.mockSource, fixture.mockSink, fixture.mockSnapshots, nil, fixture.logger, fixture.config)
			} else {
				engine = NewEngine(fixture.mockSource, fixture.mockSink, nil, nil, fixture.logger, fixture.config)
			}

			assert.NotNil(t, engine)
			assert.Equal(t, tc.expectedSequence, engine.GetAppliedSequence())
			assert.Equal(t, fixture.mockSource, engine.source)
			assert.Equal(t, fixture.mockSink, engine.sink)

			if tc.verify != nil {
				tc.verify(t, engine)
			}
		})
	}
}

func TestNewEngineWithOptions(t *testing.T) {
	testCases := []struct {
		name                     string
		options                  *Options
		expectedSnapshotInterval time.Duration
		expectedSequenceDelta    int64
	}{
		{
			name: "engine with custom options",
			options: &Options{
				SnapshotInterval:      10 * time.Second,
				SnapshotSequenceDelta: 500,
			},
			expectedSnapshotInterval: 10 * time.Second,
			expectedSequenceDelta:    500,
		},
		{
			name:                     "engine with default options",
			options:                  DefaultEngineOptions(),
			expectedSnapshotInterval: DefaultEngineOptions().SnapshotInterval,
			expectedSequenceDelta:    DefaultEngineOptions().SnapshotSequenceDelta,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := setupTestFixture(t)
			defer fixture.teardown()

			engine := NewEngineWithOptions(
				fixture.mockSource,
				fixture.mockSink,
				nil,
				nil,
				fixture.logger,
				fixture.config,
				tc.options,
			)

			assert.NotNil(t, engine)
			assert.Equal(t, tc.expectedSnapshotInterval, engine.snapshotInterval)
			assert.Equal(t, tc.expectedSequenceDelta, engine.snapshotSequenceDelta)
		})
	}
}

func TestEngine_ProcessCommand(t *testing.T) {
	testCases := []struct {
		name           string
		configure      func(*config.Config)
		setup          []*commandv1.Command
		command        *commandv1.Command
		expectedStatus commandv1.Status
		expectedTrades int
		verify         func(*testing.T, *Engine, *commandv1.Outcome)
	}{
		{
			name:           "new order rests on an empty book",
			command:        newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideBuy, 1),
			expectedStatus: commandv1.StatusAccepted,
			expectedTrades: 0,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				assert.Equal(t, "IBM", engine.orderSymbols[1])
				require.Len(t, outcome.Tops, 1)
				assert.Equal(t, orderbookv1.SideBuy, outcome.Tops[0].Side)
				assert.Equal(t, uint64(100), outcome.Tops[0].Price)
				assert.Equal(t, uint64(10), outcome.Tops[0].Volume)
			},
		},
		{
			name: "crossing order trades against the resting side",
			setup: []*commandv1.Command{
				newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideBuy, 1),
			},
			command:        newTestCommand(1, 2, "IBM", 100, 4, orderbookv1.SideSell, 2),
			expectedStatus: commandv1.StatusAccepted,
			expectedTrades: 1,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				trade := outcome.Trades[0]
				assert.Equal(t, uint64(1), trade.BuyUser)
				assert.Equal(t, uint64(1), trade.BuyOrder)
				assert.Equal(t, uint64(2), trade.SellUser)
				assert.Equal(t, uint64(2), trade.SellOrder)
				assert.Equal(t, uint64(100), trade.Price)
				assert.Equal(t, uint64(4), trade.Qty)

				// Taker fully filled, resting order reduced but still live
				assert.NotContains(t, engine.orderSymbols, uint64(2))
				assert.Equal(t, "IBM", engine.orderSymbols[1])
				assert.Equal(t, int64(1), engine.GetTotalTrades())
			},
		},
		{
			name: "multi level sweep prunes filled resting orders",
			setup: []*commandv1.Command{
				newTestCommand(0, 1, "IBM", 99, 5, orderbookv1.SideSell, 1),
				newTestCommand(1, 2, "IBM", 100, 5, orderbookv1.SideSell, 2),
			},
			command:        newTestCommand(2, 3, "IBM", 100, 8, orderbookv1.SideBuy, 3),
			expectedStatus: commandv1.StatusAccepted,
			expectedTrades: 2,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				assert.NotContains(t, engine.orderSymbols, uint64(1))
				assert.Equal(t, "IBM", engine.orderSymbols[2])
				assert.NotContains(t, engine.orderSymbols, uint64(3))
				assert.Equal(t, 1, engine.books["IBM"].Len())
			},
		},
		{
			name: "order id resting in another book is rejected",
			setup: []*commandv1.Command{
				newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideBuy, 1),
			},
			command:        newTestCommand(1, 2, "AAPL", 50, 5, orderbookv1.SideBuy, 1),
			expectedStatus: commandv1.StatusRejected,
			expectedTrades: 0,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				// Rejection happens before the AAPL book is even created
				assert.Len(t, engine.books, 1)
				assert.Equal(t, "IBM", engine.orderSymbols[1])
			},
		},
		{
			name: "insert only mode rejects crossing orders",
			configure: func(cfg *config.Config) {
				cfg.Engine.Mode = "insert-only"
			},
			setup: []*commandv1.Command{
				newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideBuy, 1),
			},
			command:        newTestCommand(1, 2, "IBM", 100, 5, orderbookv1.SideSell, 2),
			expectedStatus: commandv1.StatusRejected,
			expectedTrades: 0,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				assert.Equal(t, 1, engine.books["IBM"].Len())
				assert.NotContains(t, engine.orderSymbols, uint64(2))
			},
		},
		{
			name: "cancel removes the resting order",
			setup: []*commandv1.Command{
				newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideBuy, 1),
			},
			command:        cancelTestCommand(1, 1, 1),
			expectedStatus: commandv1.StatusAccepted,
			expectedTrades: 0,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				assert.NotContains(t, engine.orderSymbols, uint64(1))
				assert.Equal(t, 0, engine.books["IBM"].Len())
				require.Len(t, outcome.Tops, 1)
				assert.True(t, outcome.Tops[0].Empty)
			},
		},
		{
			name:           "cancel of an unknown id is rejected",
			command:        cancelTestCommand(0, 1, 99),
			expectedStatus: commandv1.StatusRejected,
			expectedTrades: 0,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				assert.Empty(t, engine.books)
			},
		},
		{
			name: "cancel by another user is rejected with the ownership check",
			configure: func(cfg *config.Config) {
				cfg.Engine.OwnershipCheck = true
			},
			setup: []*commandv1.Command{
				newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideBuy, 1),
			},
			command:        cancelTestCommand(1, 2, 1),
			expectedStatus: commandv1.StatusRejected,
			expectedTrades: 0,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				assert.Equal(t, "IBM", engine.orderSymbols[1])
				assert.Equal(t, 1, engine.books["IBM"].Len())
			},
		},
		{
			name: "flush drops every book and the id index",
			setup: []*commandv1.Command{
				newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideBuy, 1),
				newTestCommand(1, 2, "AAPL", 50, 5, orderbookv1.SideSell, 2),
			},
			command:        flushTestCommand(2),
			expectedStatus: commandv1.StatusFlushed,
			expectedTrades: 0,
			verify: func(t *testing.T, engine *Engine, outcome *commandv1.Outcome) {
				assert.Empty(t, engine.books)
				assert.Empty(t, engine.orderSymbols)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := setupTestFixture(t)
			defer fixture.teardown()

			if tc.configure != nil {
				tc.configure(fixture.config)
			}

			engine := createTestEngine(fixture)

			for _, cmd := range tc.setup {
				outcome, err := engine.processCommand(cmd)
				require.NoError(t, err)
				require.Equal(t, commandv1.StatusAccepted, outcome.Status)
			}

			outcome, err := engine.processCommand(tc.command)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedStatus, outcome.Status)
			assert.Len(t, outcome.Trades, tc.expectedTrades)

			if tc.verify != nil {
				tc.verify(t, engine, outcome)
			}
		})
	}
}

func TestEngine_SnapshotManagement(t *testing.T) {
	testCases := []struct {
		name                   string
		appliedSequence        int64
		snapshotSequence       int64
		snapshotSequenceDelta  int64
		setupMocks             func(*testFixture)
		expectedShouldSnapshot bool
		testCreateSnapshot     bool
		expectStoreSuccess     bool
	}{
		{
			name:                  "should create snapshot when sequence delta exceeded",
			appliedSequence:       1000,
			snapshotSequence:      -1,
			snapshotSequenceDelta: 500,
			setupMocks: func(f *testFixture) {
				f.mockSnapshots.EXPECT().
					Store(gomock.Any(), gomock.Any()).
					Return(nil).
					Times(1)
			},
			expectedShouldSnapshot: true,
			testCreateSnapshot:     true,
			expectStoreSuccess:     true,
		},
		{
			name:                   "should not create snapshot when sequence delta not exceeded",
			appliedSequence:        100,
			snapshotSequence:       50,
			snapshotSequenceDelta:  500,
			setupMocks:             func(f *testFixture) {},
			expectedShouldSnapshot: false,
			testCreateSnapshot:     false,
			expectStoreSuccess:     false,
		},
		{
			name:                   "should not create snapshot before any command applied",
			appliedSequence:        -1,
			snapshotSequence:       -1,
			snapshotSequenceDelta:  100,
			setupMocks:             func(f *testFixture) {},
			expectedShouldSnapshot: false,
			testCreateSnapshot:     false,
			expectStoreSuccess:     false,
		},
		{
			name:                  "should keep the last snapshot sequence when store fails",
			appliedSequence:       1000,
			snapshotSequence:      -1,
			snapshotSequenceDelta: 500,
			setupMocks: func(f *testFixture) {
				f.mockSnapshots.EXPECT().
					Store(gomock.Any(), gomock.Any()).
					Return(errors.New("store error")).
					Times(1)
			},
			expectedShouldSnapshot: true,
			testCreateSnapshot:     true,
			expectStoreSuccess:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := setupTestFixture(t)
			defer fixture.teardown()

			// Setup snapshot loading
			fixture.mockSnapshots.EXPECT().
				LoadStore(gomock.Any()).
				Return(nil, nil).
				Times(1)

			// Setup test-specific mocks
			tc.setupMocks(fixture)

			options := &Options{
				SnapshotInterval:      1 * time.Minute,
				SnapshotSequenceDelta: tc.snapshotSequenceDelta,
			}

			engine := NewEngineWithOptions(
				fixture.mockSource,
				fixture.mockSink,
				fixture.mockSnapshots,
				nil,
				fixture.logger,
				fixture.config,
				options,
			)

			// Initialize context for snapshot tests
			engine.ctx = context.Background()

			// Set up engine state
			engine.setAppliedSequence(tc.appliedSequence)
			engine.setSnapshotSequence(tc.snapshotSequence)

			shouldSnapshot := engine.shouldCreateSnapshot()
			assert.Equal(t, tc.expectedShouldSnapshot, shouldSnapshot)

			if tc.testCreateSnapshot {
				initialSequence := engine.GetSnapshotSequence()

				engine.createAndStoreSnapshot(context.Background())

				if tc.expectStoreSuccess {
					assert.Equal(t, tc.appliedSequence, engine.GetSnapshotSequence())
				} else {
					// If store failed, the snapshot sequence should remain unchanged
					assert.Equal(t, initialSequence, engine.GetSnapshotSequence())
				}
			}
		})
	}
}

func TestEngine_CreateAndStoreSnapshot_Content(t *testing.T) {
	fixture := setupTestFixture(t)
	defer fixture.teardown()

	fixture.mockSnapshots.EXPECT().
		LoadStore(gomock.Any()).
		Return(nil, nil).
		Times(1)

	var captured *snapshotv1.Snapshot
	fixture.mockSnapshots.EXPECT().
		Store(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, snapshot *snapshotv1.Snapshot) error {
			captured = snapshot
			return nil
		}).
		Times(1)

	engine := NewEngine(
		fixture.mockSource,
		fixture.mockSink,
		fixture.mockSnapshots,
		nil,
		fixture.logger,
		fixture.config,
	)
	engine.ctx = context.Background()

	// Populate two books so the snapshot carries them in symbol order
	for _, cmd := range []*commandv1.Command{
		newTestCommand(0, 1, "MSFT", 200, 7, orderbookv1.SideSell, 1),
		newTestCommand(1, 2, "AAPL", 100, 10, orderbookv1.SideBuy, 2),
	} {
		outcome, err := engine.processCommand(cmd)
		require.NoError(t, err)
		require.Equal(t, commandv1.StatusAccepted, outcome.Status)
		engine.setAppliedSequence(cmd.Sequence)
	}

	engine.createAndStoreSnapshot(context.Background())

	require.NotNil(t, captured)
	assert.Equal(t, int64(1), captured.Sequence)
	require.Len(t, captured.Books, 2)
	assert.Equal(t, "AAPL", captured.Books[0].Symbol)
	assert.Equal(t, "MSFT", captured.Books[1].Symbol)
	require.Len(t, captured.Books[0].Orders, 1)
	assert.Equal(t, uint64(2), captured.Books[0].Orders[0].ID)
	assert.Equal(t, "buy", captured.Books[0].Orders[0].Side)
}

func TestEngine_GetTotalTrades(t *testing.T) {
	fixture := setupTestFixture(t)
	defer fixture.teardown()

	engine := createTestEngine(fixture)

	// Initially should be 0
	assert.Equal(t, int64(0), engine.GetTotalTrades())

	// Rest a sell order, then cross it
	_, err := engine.processCommand(newTestCommand(0, 1, "IBM", 100, 10, orderbookv1.SideSell, 1))
	require.NoError(t, err)

	outcome, err := engine.processCommand(newTestCommand(1, 2, "IBM", 100, 5, orderbookv1.SideBuy, 2))
	require.NoError(t, err)
	require.Len(t, outcome.Trades, 1)

	assert.Equal(t, int64(1), engine.GetTotalTrades())
}
