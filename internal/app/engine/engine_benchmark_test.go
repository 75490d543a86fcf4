package engine

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"

	commandreaderv1_mock "github.com/aartoni/orderbook/internal/domain/command-reader/v1/mock"
	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
	outcomewriterv1_mock "github.com/aartoni/orderbook/internal/domain/outcome-writer/v1/mock"
	"github.com/aartoni/orderbook/pkg/config"
	"github.com/aartoni/orderbook/pkg/logger"
)

// Benchmark test cases structure
type benchmarkTestCase struct {
	name        string
	setupEngine func(*testing.B) *Engine
	setupData   func(*Engine, *testing.B)
	operation   func(*Engine, int)
}

func setupBenchmarkEngine(b *testing.B) *Engine {
	ctrl := gomock.NewController(b)

	mockSource := commandreaderv1_mock.NewMockCommandReader(ctrl)
	mockSink := outcomewriterv1_mock.NewMockOutcomeWriter(ctrl)

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	if err != nil {
		b.Fatal(err)
	}

	cfg := &config.Config{
		Engine: config.EngineConfig{
			Mode:             "trading",
			PublishTopOfBook: true,
		},
	}

	engine := NewEngine(mockSource, mockSink, nil, nil, log, cfg)

	// Initialize context to avoid nil pointer dereference
	engine.ctx = context.Background()

	return engine
}

func BenchmarkEngine_ProcessCommand(b *testing.B) {
	testCases := []benchmarkTestCase{
		{
			name:        "resting_limit_orders",
			setupEngine: setupBenchmarkEngine,
			setupData:   func(e *Engine, b *testing.B) {},
			operation: func(e *Engine, i int) {
				// Alternate sides in disjoint price bands so nothing crosses
				side := orderbookv1.SideBuy
				price := uint64(100 - i%50)
				if i%2 == 0 {
					side = orderbookv1.SideSell
					price = uint64(151 + i%50)
				}

				cmd := newTestCommand(int64(i), uint64(i%50+1), "IBM", price, 10, side, uint64(i+1))
				_, _ = e.processCommand(cmd)
			},
		},
		{
			name:        "crossing_limit_orders",
			setupEngine: setupBenchmarkEngine,
			setupData: func(e *Engine, b *testing.B) {
				// Pre-populate the ask side with liquidity to sweep
				for i := 0; i < 1000; i++ {
					cmd := newTestCommand(int64(i), 1, "IBM", uint64(101+i), 10, orderbookv1.SideSell, uint64(i+1))
					if _, err := e.processCommand(cmd); err != nil {
						b.Fatal(err)
					}
				}
			},
			operation: func(e *Engine, i int) {
				cmd := newTestCommand(int64(i+1000), 2, "IBM", 2000, 5, orderbookv1.SideBuy, uint64(i+10000))
				_, _ = e.processCommand(cmd)
			},
		},
		{
			name:        "insert_then_cancel",
			setupEngine: setupBenchmarkEngine,
			setupData:   func(e *Engine, b *testing.B) {},
			operation: func(e *Engine, i int) {
				insert := newTestCommand(int64(i*2), 1, "IBM", uint64(100+i%100), 10, orderbookv1.SideBuy, 1)
				_, _ = e.processCommand(insert)

				cancel := cancelTestCommand(int64(i*2+1), 1, 1)
				_, _ = e.processCommand(cancel)
			},
		},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			engine := tc.setupEngine(b)
			tc.setupData(engine, b)

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				tc.operation(engine, i)
			}

			b.StopTimer()
		})
	}
}
