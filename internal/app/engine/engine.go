// Package engine wires the command pipeline: a source stage decoding
// commands, a worker stage applying them to the books and a sink stage
// writing outcome records. Stages hand work over through single slot
// channels with receipt acknowledgments, so each stage may prepare its next
// message while the downstream stage is still busy, without ever reordering
// commands or outcomes.
package engine

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	commandreaderv1 "github.com/aartoni/orderbook/internal/domain/command-reader/v1"
	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
	outcomewriterv1 "github.com/aartoni/orderbook/internal/domain/outcome-writer/v1"
	snapshotv1 "github.com/aartoni/orderbook/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/aartoni/orderbook/internal/domain/trade-publisher/v1"
	"github.com/aartoni/orderbook/internal/usecase/orderbook"
	"github.com/aartoni/orderbook/pkg/config"
	"github.com/aartoni/orderbook/pkg/logger"
)

// Engine is the main engine for processing commands and managing the order
// books. The worker stage is the sole owner of all book state, Source and
// Sink only ever touch the messages flowing through their channels.
type Engine struct {
	// Core components
	source    commandreaderv1.CommandReader
	sink      outcomewriterv1.OutcomeWriter
	trades    tradepublisherv1.TradePublisher
	snapshots snapshotv1.Store
	logger    *logger.Logger

	// Book state, owned exclusively by the worker stage
	books        map[string]*orderbook.OrderBook
	orderSymbols map[uint64]string
	bookOptions  orderbook.Options

	// Pipeline handoff channels, capacity one, plus receipt acknowledgments
	commands   chan *commandv1.Command
	commandAck chan struct{}
	outcomes   chan *commandv1.Outcome
	outcomeAck chan struct{}

	// Simple state management with mutex instead of atomics
	mu          sync.RWMutex
	appliedSeq  int64
	snapshotSeq int64
	runErr      error

	// Simple shutdown coordination
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	failOnce sync.Once

	// Snapshot cadence
	snapshotReq           chan struct{}
	snapshotInterval      time.Duration
	snapshotSequenceDelta int64

	// Trade statistics
	totalTrades int64
	tradesMutex sync.RWMutex
}

// NewEngine creates a new instance of Engine with the provided dependencies.
// The trade publisher and the snapshot store may be nil, disabling trade
// publication and snapshotting respectively.
func NewEngine(
	source commandreaderv1.CommandReader,
	sink outcomewriterv1.OutcomeWriter,
	snapshotStore snapshotv1.Store,
	tradePublisher tradepublisherv1.TradePublisher,
	logger *logger.Logger,
	config *config.Config,
) *Engine {
	return NewEngineWithOptions(source, sink, snapshotStore, tradePublisher, logger, config, DefaultEngineOptions())
}

// NewEngineWithOptions creates a new engine with custom options
func NewEngineWithOptions(
	source commandreaderv1.CommandReader,
	sink outcomewriterv1.OutcomeWriter,
	snapshotStore snapshotv1.Store,
	tradePublisher tradepublisherv1.TradePublisher,
	logger *logger.Logger,
	config *config.Config,
	options *Options,
) *Engine {
	e := &Engine{
		source:    source,
		sink:      sink,
		trades:    tradePublisher,
		snapshots: snapshotStore,
		logger:    logger,

		books:        make(map[string]*orderbook.OrderBook),
		orderSymbols: make(map[uint64]string),
		bookOptions: orderbook.Options{
			Mode:             orderbook.Mode(config.Engine.Mode),
			OwnershipCheck:   config.Engine.OwnershipCheck,
			PublishTopOfBook: config.Engine.PublishTopOfBook,
		},

		commands:   make(chan *commandv1.Command, 1),
		commandAck: make(chan struct{}, 1),
		outcomes:   make(chan *commandv1.Outcome, 1),
		outcomeAck: make(chan struct{}, 1),

		done:        make(chan struct{}),
		snapshotReq: make(chan struct{}, 1),

		snapshotInterval:      options.SnapshotInterval,
		snapshotSequenceDelta: options.SnapshotSequenceDelta,
		appliedSeq:            -1,
		snapshotSeq:           -1,
	}

	if !e.bookOptions.Mode.IsValid() {
		e.logger.GetZap().Fatal("Invalid engine mode", zap.String("mode", config.Engine.Mode))
	}

	// Load snapshot during initialization
	if err := e.loadSnapshot(context.Background()); err != nil {
		e.logger.GetZap().Fatal("Failed to load snapshot", zap.Error(err))
	}

	return e
}

// Start initializes the engine and starts the pipeline stages.
func (e *Engine) Start(ctx context.Context) error {
	// Create cancellable context
	e.ctx, e.cancel = context.WithCancel(ctx)

	stages := 3
	if e.snapshots != nil {
		stages++
	}

	e.wg.Add(stages)
	go e.runSource()
	go e.runWorker()
	go e.runSink()
	if e.snapshots != nil {
		go e.runSnapshotManager()
	}

	go func() {
		e.wg.Wait()
		close(e.done)
	}()

	e.logger.Info("Matching engine started",
		logger.Field{Key: "mode", Value: string(e.bookOptions.Mode)},
		logger.Field{Key: "snapshots", Value: e.snapshots != nil},
	)

	return nil
}

// Stop gracefully shuts down the engine. When snapshots are enabled and
// commands were applied since the last snapshot, a final snapshot is taken
// after the stages have drained.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	// Wait for the stages to finish with timeout
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}

	if e.snapshots != nil && e.appliedSequence() > e.snapshotSequence() {
		e.createAndStoreSnapshot(ctx)
	}

	e.closePorts()
	e.logger.Info("Matching engine stopped gracefully")

	return nil
}

// Done is closed once every pipeline stage has terminated, either because
// the command stream was exhausted or because a stage failed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns the failure that brought the pipeline down, or nil after a
// clean run. Valid once Done is closed.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runErr
}

// fail records the first fatal error and tears the pipeline down.
func (e *Engine) fail(err error) {
	e.failOnce.Do(func() {
		e.mu.Lock()
		e.runErr = err
		e.mu.Unlock()

		e.logger.ErrorContext(e.ctx, err, logger.Field{
			Key:   "action",
			Value: "pipeline_shutdown",
		})
		e.cancel()
	})
}

// runSource reads commands from the command reader and hands them to the
// worker one at a time, reading ahead while the worker processes.
func (e *Engine) runSource() {
	defer e.wg.Done()

	e.logger.Info("Starting command source")

	if seq := e.appliedSequence(); seq >= 0 {
		if err := e.source.Seek(seq); err != nil {
			e.fail(err)
			return
		}
	}

	for {
		cmd, err := e.source.Read(e.ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				close(e.commands)
				e.logger.Info("Command stream exhausted")
				return
			}
			if e.ctx.Err() != nil {
				return
			}
			e.fail(err)
			return
		}

		select {
		case e.commands <- cmd:
		case <-e.ctx.Done():
			return
		}

		select {
		case <-e.commandAck:
		case <-e.ctx.Done():
			return
		}

		if err := e.source.Commit(e.ctx, cmd); err != nil {
			e.logger.ErrorContext(e.ctx, err, logger.Field{
				Key:   "action",
				Value: "commit_command",
			})
		}
	}
}

// runWorker applies commands to the books strictly in arrival order and
// hands each outcome to the sink. Receipt is acknowledged before processing
// so the source can read ahead by one command.
func (e *Engine) runWorker() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.snapshotReq:
			e.createAndStoreSnapshot(e.ctx)
		case cmd, ok := <-e.commands:
			if !ok {
				close(e.outcomes)
				return
			}

			select {
			case e.commandAck <- struct{}{}:
			case <-e.ctx.Done():
				return
			}

			outcome, err := e.processCommand(cmd)
			if err != nil {
				e.fail(err)
				return
			}

			e.setAppliedSequence(cmd.Sequence)

			select {
			case e.outcomes <- outcome:
			case <-e.ctx.Done():
				return
			}

			select {
			case <-e.outcomeAck:
			case <-e.ctx.Done():
				return
			}
		}
	}
}

// runSink writes outcome records in the order the worker produced them and
// forwards executed trades to the trade publisher.
func (e *Engine) runSink() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case outcome, ok := <-e.outcomes:
			if !ok {
				// Stream drained, release the remaining stages.
				e.cancel()
				return
			}

			select {
			case e.outcomeAck <- struct{}{}:
			case <-e.ctx.Done():
				return
			}

			if err := e.sink.Write(e.ctx, outcome); err != nil {
				e.fail(err)
				return
			}

			e.publishTrades(outcome)
		}
	}
}

// runSnapshotManager requests a snapshot from the worker whenever enough
// commands have been applied since the last one. The worker takes the
// snapshot itself, it is the only stage allowed to read book state.
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.snapshotInterval)
	defer ticker.Stop()

	e.logger.Info("Starting snapshot manager")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Snapshot manager shutting down")
			return
		case <-ticker.C:
			if !e.shouldCreateSnapshot() {
				continue
			}

			select {
			case e.snapshotReq <- struct{}{}:
			default:
			}
		}
	}
}

// processCommand applies a single command and builds its outcome.
func (e *Engine) processCommand(cmd *commandv1.Command) (*commandv1.Outcome, error) {
	e.logger.Debug("Processing command",
		logger.Field{Key: "sequence", Value: cmd.Sequence},
		logger.Field{Key: "kind", Value: cmd.Kind},
		logger.Field{Key: "user", Value: cmd.User},
	)

	switch cmd.Kind {
	case commandv1.KindNew:
		return e.processNew(cmd)
	case commandv1.KindCancel:
		return e.processCancel(cmd)
	case commandv1.KindFlush:
		return e.processFlush(cmd)
	}

	return nil, errors.New("unknown command kind " + string(cmd.Kind))
}

// processNew routes a new order to its symbol's book. Order ids are global:
// an id equal to any currently resting order's id is rejected no matter the
// symbol, so the id index can route cancels without one.
func (e *Engine) processNew(cmd *commandv1.Command) (*commandv1.Outcome, error) {
	if _, live := e.orderSymbols[cmd.OrderID]; live {
		return commandv1.Rejected(cmd), nil
	}

	book := e.book(cmd.Symbol)

	result, err := book.Submit(cmd.Order())
	if err != nil {
		return nil, err
	}
	if !result.Accepted {
		return commandv1.Rejected(cmd), nil
	}

	for _, trade := range result.Trades {
		if !book.Has(trade.BuyOrder) {
			delete(e.orderSymbols, trade.BuyOrder)
		}
		if !book.Has(trade.SellOrder) {
			delete(e.orderSymbols, trade.SellOrder)
		}
	}
	if book.Has(cmd.OrderID) {
		e.orderSymbols[cmd.OrderID] = cmd.Symbol
	}

	if len(result.Trades) > 0 {
		e.logTrades(result.Trades)
	}

	outcome := commandv1.Accepted(cmd)
	outcome.Trades = result.Trades
	outcome.Tops = result.Tops
	return outcome, nil
}

// processCancel resolves the order's book through the id index. Cancels
// carry no symbol on the wire, an unknown id is rejected without touching
// any book.
func (e *Engine) processCancel(cmd *commandv1.Command) (*commandv1.Outcome, error) {
	symbol, live := e.orderSymbols[cmd.OrderID]
	if !live {
		return commandv1.Rejected(cmd), nil
	}

	result, err := e.books[symbol].Cancel(cmd.User, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !result.Accepted {
		return commandv1.Rejected(cmd), nil
	}

	delete(e.orderSymbols, cmd.OrderID)

	outcome := commandv1.Accepted(cmd)
	outcome.Tops = result.Tops
	return outcome, nil
}

// processFlush drops every book and the id index.
func (e *Engine) processFlush(cmd *commandv1.Command) (*commandv1.Outcome, error) {
	e.books = make(map[string]*orderbook.OrderBook)
	e.orderSymbols = make(map[uint64]string)

	e.logger.Info("Order books flushed", logger.Field{
		Key:   "sequence",
		Value: cmd.Sequence,
	})

	return commandv1.Flushed(cmd), nil
}

// book returns the order book for symbol, creating it on first use. Books
// are never evicted outside a flush.
func (e *Engine) book(symbol string) *orderbook.OrderBook {
	if book, ok := e.books[symbol]; ok {
		return book
	}

	book := orderbook.NewOrderBook(symbol, e.bookOptions)
	e.books[symbol] = book
	return book
}

// publishTrades forwards an accepted outcome's trades to the trade
// publisher. Publish failures are logged, they never stall the pipeline.
func (e *Engine) publishTrades(outcome *commandv1.Outcome) {
	if e.trades == nil || len(outcome.Trades) == 0 {
		return
	}

	for _, trade := range outcome.Trades {
		event := tradepublisherv1.NewTradeEvent(outcome.Command.Symbol, outcome.Command.Sequence, trade)
		if err := e.trades.Publish(e.ctx, event); err != nil {
			e.logger.ErrorContext(e.ctx, err, logger.Field{
				Key:   "action",
				Value: "publish_trade",
			})
		}
	}
}

// logTrades logs the executed trades and updates statistics
func (e *Engine) logTrades(trades []*orderbookv1.Trade) {
	e.tradesMutex.Lock()
	e.totalTrades += int64(len(trades))
	currentTotal := e.totalTrades
	e.tradesMutex.Unlock()

	e.logger.Debug("Trades executed",
		logger.Field{Key: "tradeCount", Value: len(trades)},
		logger.Field{Key: "totalTrades", Value: currentTotal},
	)

	for i, trade := range trades {
		e.logger.Debug("Trade executed",
			logger.Field{Key: "tradeIndex", Value: i + 1},
			logger.Field{Key: "price", Value: trade.Price},
			logger.Field{Key: "qty", Value: trade.Qty},
			logger.Field{Key: "buyUser", Value: trade.BuyUser},
			logger.Field{Key: "sellUser", Value: trade.SellUser},
			logger.Field{Key: "buyOrder", Value: trade.BuyOrder},
			logger.Field{Key: "sellOrder", Value: trade.SellOrder},
		)
	}
}

// shouldCreateSnapshot checks if a snapshot should be created
func (e *Engine) shouldCreateSnapshot() bool {
	e.mu.RLock()
	applied := e.appliedSeq
	snapshotted := e.snapshotSeq
	e.mu.RUnlock()

	if applied < 0 {
		return false
	}

	return applied-snapshotted >= e.snapshotSequenceDelta
}

// createAndStoreSnapshot captures every book and stores the snapshot. Only
// the worker stage and post-drain Stop may call it.
func (e *Engine) createAndStoreSnapshot(ctx context.Context) {
	sequence := e.appliedSequence()

	e.logger.Info("Creating snapshot", logger.Field{
		Key:   "sequence",
		Value: sequence,
	})

	snapshot := &snapshotv1.Snapshot{
		Sequence: sequence,
		TakenAt:  time.Now().UTC(),
	}
	symbols := make([]string, 0, len(e.books))
	for symbol := range e.books {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)
	for _, symbol := range symbols {
		snapshot.Books = append(snapshot.Books, e.books[symbol].CreateSnapshot())
	}

	if err := e.snapshots.Store(ctx, snapshot); err != nil {
		e.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "store_snapshot",
		})
		return
	}

	e.setSnapshotSequence(sequence)
	e.logger.Info("Snapshot stored successfully", logger.Field{
		Key:   "sequence",
		Value: sequence,
	})
}

// loadSnapshot restores the books and the id index from the latest
// snapshot, if one exists.
func (e *Engine) loadSnapshot(ctx context.Context) error {
	if e.snapshots == nil {
		return nil
	}

	snapshot, err := e.snapshots.LoadStore(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	for i := range snapshot.Books {
		book := snapshot.Books[i]
		if err := e.book(book.Symbol).RestoreSnapshot(&book); err != nil {
			return err
		}
		for _, order := range book.Orders {
			e.orderSymbols[order.ID] = book.Symbol
		}
	}

	e.mu.Lock()
	e.appliedSeq = snapshot.Sequence
	e.snapshotSeq = snapshot.Sequence
	e.mu.Unlock()

	e.logger.Info("Order books restored from snapshot",
		logger.Field{Key: "sequence", Value: snapshot.Sequence},
		logger.Field{Key: "books", Value: len(snapshot.Books)},
	)

	return nil
}

// closePorts closes the source, the sink and the trade publisher.
func (e *Engine) closePorts() {
	if err := e.source.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "close_source"})
	}
	if err := e.sink.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "action", Value: "close_sink"})
	}
	if e.trades != nil {
		if err := e.trades.Close(); err != nil {
			e.logger.Error(err, logger.Field{Key: "action", Value: "close_trade_publisher"})
		}
	}
}

// Thread-safe getters and setters
func (e *Engine) appliedSequence() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.appliedSeq
}

func (e *Engine) setAppliedSequence(sequence int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appliedSeq = sequence
}

func (e *Engine) snapshotSequence() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotSeq
}

func (e *Engine) setSnapshotSequence(sequence int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshotSeq = sequence
}

// GetAppliedSequence returns the sequence of the last applied command.
func (e *Engine) GetAppliedSequence() int64 {
	return e.appliedSequence()
}

// GetSnapshotSequence returns the sequence covered by the last stored
// snapshot.
func (e *Engine) GetSnapshotSequence() int64 {
	return e.snapshotSequence()
}

// GetTotalTrades returns the total number of trades executed
func (e *Engine) GetTotalTrades() int64 {
	e.tradesMutex.RLock()
	defer e.tradesMutex.RUnlock()
	return e.totalTrades
}
