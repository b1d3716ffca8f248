package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/config"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/tracker"
)

// ErrNoSnapshot means no tracker state has been persisted yet. Expected on
// first start.
var ErrNoSnapshot = errors.New("store: no snapshot")

// Store persists tracker snapshots and fans alerts out to a Redis stream.
// Persistence is best-effort: the engine keeps running if Redis is down.
type Store struct {
	rdb         *redis.Client
	snapshotKey string
	alertStream string
	log         *zap.Logger
}

func New(cfg config.RedisCfg, log *zap.Logger) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	key := cfg.SnapshotKey
	if key == "" {
		key = "apex:tracker:snapshot"
	}
	stream := cfg.AlertStream
	if stream == "" {
		stream = "apex:alerts"
	}
	return &Store{rdb: rdb, snapshotKey: key, alertStream: stream, log: log}
}

// NewWithClient wires an existing client, used by tests.
func NewWithClient(rdb *redis.Client, snapshotKey, alertStream string, log *zap.Logger) *Store {
	return &Store{rdb: rdb, snapshotKey: snapshotKey, alertStream: alertStream, log: log}
}

func (s *Store) Close() error { return s.rdb.Close() }

// SaveSnapshot writes the tracker state as JSON under the snapshot key.
func (s *Store) SaveSnapshot(ctx context.Context, snap tracker.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.snapshotKey, b, 0).Err()
}

// LoadSnapshot returns ErrNoSnapshot when the key is absent.
func (s *Store) LoadSnapshot(ctx context.Context) (tracker.Snapshot, error) {
	b, err := s.rdb.Get(ctx, s.snapshotKey).Bytes()
	if err == redis.Nil {
		return tracker.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return tracker.Snapshot{}, err
	}
	var snap tracker.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return tracker.Snapshot{}, err
	}
	return snap, nil
}

// PublishAlert appends one alert to the alert stream, trimmed to roughly the
// last 1000 entries.
func (s *Store) PublishAlert(ctx context.Context, a tracker.Alert) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.alertStream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"ts":      a.Ts.Format(time.RFC3339Nano),
			"level":   string(a.Level),
			"message": a.Message,
			"data":    string(data),
		},
	}).Err()
}

// SnapshotLoop persists the tracker on every tick until ctx is cancelled,
// with a final save on the way out. Save errors are logged and swallowed.
func (s *Store) SnapshotLoop(ctx context.Context, t *tracker.Tracker, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.SaveSnapshot(saveCtx, t.Snapshot()); err != nil {
				s.log.Warn("final snapshot save failed", zap.Error(err))
			}
			cancel()
			return
		case <-tick.C:
			if err := s.SaveSnapshot(ctx, t.Snapshot()); err != nil {
				s.log.Warn("snapshot save failed", zap.Error(err))
			}
		}
	}
}
