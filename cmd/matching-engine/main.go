package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/aartoni/orderbook/internal/app/engine"
	commandreaderv1 "github.com/aartoni/orderbook/internal/domain/command-reader/v1"
	outcomewriterv1 "github.com/aartoni/orderbook/internal/domain/outcome-writer/v1"
	snapshotv1 "github.com/aartoni/orderbook/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/aartoni/orderbook/internal/domain/trade-publisher/v1"
	"github.com/aartoni/orderbook/internal/usecase/csvfeed"
	"github.com/aartoni/orderbook/internal/usecase/kafkafeed"
	"github.com/aartoni/orderbook/internal/usecase/snapshot"
	"github.com/aartoni/orderbook/pkg/config"
	"github.com/aartoni/orderbook/pkg/logger"
	"github.com/aartoni/orderbook/pkg/redis"
	"github.com/aartoni/orderbook/pkg/util"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic(err)
	}

	// Logs go to stderr, stdout is reserved for outcome records
	logger, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)),
		logger.WithOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		panic(err)
	}

	log = logger
}

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tag the run so every context-aware log line carries the same id
	ctx = util.WithRequestID(ctx, "")

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	source, err := buildSource()
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "open_command_source",
		})
		return
	}

	sink, err := buildSink()
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "open_outcome_sink",
		})
		return
	}

	// Initialize Redis-backed snapshots when enabled
	var rclient redis.Client
	var snapshotStore snapshotv1.Store
	if cfg.Snapshot.Enabled {
		rclient = redis.NewClient(log, &cfg.Redis)
		if err := rclient.Connect(ctx); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "connect_redis",
			})
			return
		}

		snapshotStore = snapshot.NewSnapshotStore(rclient, cfg.Snapshot.Key, log)
	}

	var tradePublisher tradepublisherv1.TradePublisher
	if cfg.Kafka.PublishTrades {
		tradePublisher = kafkafeed.NewPublisher(cfg.Kafka, log)
	}

	engine := app.NewEngineWithOptions(
		source,
		sink,
		snapshotStore,
		tradePublisher,
		log,
		cfg,
		&app.Options{
			SnapshotInterval:      cfg.Snapshot.Interval,
			SnapshotSequenceDelta: cfg.Snapshot.SequenceDelta,
		},
	)

	// Start the engine
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	log.Info("Matching engine started successfully", logger.Field{
		Key:   "feed",
		Value: cfg.Feed.Source,
	})

	// Wait until the command stream drains or a shutdown signal arrives
	select {
	case <-engine.Done():
		log.Info("Command stream drained")
	case sig := <-sigChan:
		log.Info("Received shutdown signal", logger.Field{
			Key:   "signal",
			Value: sig.String(),
		})
		cancel()
	}

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the engine gracefully
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}

	if rclient != nil {
		if err := rclient.Disconnect(shutdownCtx); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "disconnect_redis",
			})
		}
	}

	if err := engine.Err(); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "engine_failed",
		})
		os.Exit(1)
	}

	log.Info("Matching engine shutdown complete")
}

// buildSource picks the command reader the feed configuration asks for.
func buildSource() (commandreaderv1.CommandReader, error) {
	switch cfg.Feed.Source {
	case "stdin":
		return csvfeed.NewSource(os.Stdin, log), nil
	case "file":
		return csvfeed.NewFileSource(cfg.Feed.Path, log)
	case "kafka":
		return kafkafeed.NewSource(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
	}
}

// buildSink picks the outcome writer the output configuration asks for.
func buildSink() (outcomewriterv1.OutcomeWriter, error) {
	switch cfg.Out.Target {
	case "stdout":
		return csvfeed.NewSink(os.Stdout, log), nil
	case "file":
		return csvfeed.NewFileSink(cfg.Out.Path, log)
	default:
		return nil, fmt.Errorf("unknown output target %q", cfg.Out.Target)
	}
}
