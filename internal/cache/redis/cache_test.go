package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbScope/internal/model"
)

func newTestCache(t *testing.T, cfg Config) (*OpportunityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewWithClient(rdb, cfg), mr
}

func TestPutAndLatest(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, Config{TTL: time.Minute})

	_, ok, err := cache.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	run := model.ScanRun{ID: "run-1", PoolsTotal: 3, PoolsFetched: 2, PoolsFailed: 1, Opportunities: 1}
	opps := []model.Opportunity{{Kind: model.KindTwoToken, EffectiveMultiplier: 1.05, Profit: 5}}
	require.NoError(t, cache.PutOpportunities(ctx, run, opps))

	snap, ok, err := cache.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", snap.Run.ID)
	assert.Equal(t, opps, snap.Opportunities)

	runID, err := mr.Get(DefaultKey + ":run")
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, time.Minute, mr.TTL(DefaultKey))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptySnapshotIsArray(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, Config{Key: "custom"})

	require.NoError(t, cache.PutOpportunities(ctx, model.ScanRun{ID: "r"}, nil))
	raw, err := mr.Get("custom")
	require.NoError(t, err)
	assert.Contains(t, raw, `"opportunities":[]`)
	assert.Equal(t, DefaultTTL, mr.TTL("custom"))
}

func TestPublishesRunID(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t, Config{Channel: "arbscope:runs"})

	sub := cache.rdb.Subscribe(ctx, "arbscope:runs")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.PutOpportunities(ctx, model.ScanRun{ID: "run-7"}, nil))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-7", msg.Payload)
}

func TestNewRequiresAddr(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestLatestCorrupt(t *testing.T) {
	cache, mr := newTestCache(t, Config{})
	require.NoError(t, mr.Set(DefaultKey, "{not json"))
	_, _, err := cache.Latest(context.Background())
	assert.Error(t, err)
}
