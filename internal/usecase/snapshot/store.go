package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	snapshotv1 "github.com/aartoni/orderbook/internal/domain/snapshot/v1"
	"github.com/aartoni/orderbook/pkg/errors"
	logger "github.com/aartoni/orderbook/pkg/logger"
	"github.com/aartoni/orderbook/pkg/redis"
)

// Store persists order book snapshots in Redis under a fixed key.
type Store struct {
	key         string
	logger      *logger.Logger
	redisclient redis.Client
}

// NewSnapshotStore creates a new Store instance with the given Redis client and key.
func NewSnapshotStore(redisclient redis.Client, key string, logger *logger.Logger) *Store {
	return &Store{
		key:         key,
		redisclient: redisclient,
		logger:      logger,
	}
}

// Store stores the snapshot in Redis.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	// Serialize the snapshot and store it in Redis.
	s.logger.InfoContext(ctx, fmt.Sprintf("Storing snapshot at sequence %d", snapshot.Sequence), logger.Field{
		Key:   "key",
		Value: s.key,
	})

	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "sequence",
			Value: snapshot.Sequence,
		})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	err = s.redisclient.Set(ctx, s.key, buf, 0)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "sequence",
			Value: snapshot.Sequence,
		})

		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}
	s.logger.InfoContext(ctx, fmt.Sprintf("Snapshot stored at sequence %d", snapshot.Sequence), logger.Field{
		Key:   "key",
		Value: s.key,
	}, logger.Field{
		Key:   "action",
		Value: "store snapshot",
	})
	return nil
}

// LoadStore loads the snapshot from Redis.
func (s *Store) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	s.logger.InfoContext(ctx, "Loading snapshot", logger.Field{
		Key:   "key",
		Value: s.key,
	}, logger.Field{
		Key:   "action",
		Value: "load snapshot",
	})
	// Deserialize the snapshot from Redis.
	data, err := s.redisclient.Get(ctx, s.key)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, "No snapshot found", logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	return &snapshot, nil
}
