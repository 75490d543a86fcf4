package config

import (
	"fmt"
	"time"

	"github.com/aartoni/orderbook/pkg/redis"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	Engine   EngineConfig   `envPrefix:"ENGINE_"`
	Feed     FeedConfig     `envPrefix:"FEED_"`
	Out      OutConfig      `envPrefix:"OUT_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Redis    redis.Config   `envPrefix:"REDIS_"`
	Snapshot SnapshotConfig `envPrefix:"SNAPSHOT_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"matching-engine"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// EngineConfig controls how incoming orders are handled.
type EngineConfig struct {
	Mode             string `env:"MODE" envDefault:"insert-only"`
	OwnershipCheck   bool   `env:"OWNERSHIP_CHECK" envDefault:"false"`
	PublishTopOfBook bool   `env:"PUBLISH_TOP_OF_BOOK" envDefault:"true"`
}

// FeedConfig selects where commands are read from.
type FeedConfig struct {
	Source string `env:"SOURCE" envDefault:"stdin"`
	Path   string `env:"PATH"`
}

// OutConfig selects where outcome records are written to.
type OutConfig struct {
	Target string `env:"TARGET" envDefault:"stdout"`
	Path   string `env:"PATH"`
}

// KafkaConfig represents the Kafka configuration.
type KafkaConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	CommandTopic  string   `env:"COMMAND_TOPIC" envDefault:"commands"`
	TradeTopic    string   `env:"TRADE_TOPIC" envDefault:"trades"`
	Partition     int      `env:"PARTITION" envDefault:"0"`
	PublishTrades bool     `env:"PUBLISH_TRADES" envDefault:"false"`
}

// SnapshotConfig controls periodic order book snapshots.
type SnapshotConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"false"`
	Key           string        `env:"KEY" envDefault:"orderbook:snapshot"`
	Interval      time.Duration `env:"INTERVAL" envDefault:"30s"`
	SequenceDelta int64         `env:"SEQUENCE_DELTA" envDefault:"1000"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads the configuration and panics when parsing fails.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}
