// Package redis keeps the latest opportunity snapshot in Redis for readers
// that serve it without running a scan.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"arbScope/internal/model"
)

const (
	DefaultKey = "arbscope:opportunities"
	DefaultTTL = 2 * time.Minute
)

// Config holds connection and key settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
	// Channel, when set, receives the run id after each write.
	Channel string
}

// OpportunityCache stores the latest snapshot under one key with a TTL.
//
// Key schema:
//
//	{key}      - JSON model.Snapshot
//	{key}:run  - id of the run that wrote {key}
type OpportunityCache struct {
	rdb     *redis.Client
	key     string
	ttl     time.Duration
	channel string
}

// New connects and pings Redis.
func New(ctx context.Context, cfg Config) (*OpportunityCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewWithClient(rdb, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, cfg Config) *OpportunityCache {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &OpportunityCache{rdb: rdb, key: cfg.Key, ttl: cfg.TTL, channel: cfg.Channel}
}

func (c *OpportunityCache) Close() error {
	return c.rdb.Close()
}

// PutOpportunities replaces the cached snapshot.
func (c *OpportunityCache) PutOpportunities(ctx context.Context, run model.ScanRun, opps []model.Opportunity) error {
	if opps == nil {
		opps = []model.Opportunity{}
	}
	data, err := json.Marshal(model.Snapshot{Run: run, Opportunities: opps})
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", run.ID, err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.key, data, c.ttl)
	pipe.Set(ctx, c.key+":run", run.ID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", run.ID, err)
	}
	if c.channel != "" {
		if err := c.rdb.Publish(ctx, c.channel, run.ID).Err(); err != nil {
			return fmt.Errorf("redis: publish run %s: %w", run.ID, err)
		}
	}
	return nil
}

// Latest returns the cached snapshot. ok is false when it expired or was
// never written.
func (c *OpportunityCache) Latest(ctx context.Context) (model.Snapshot, bool, error) {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, fmt.Errorf("redis: get snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}
