// Package collector fetches pool state concurrently and normalizes it into
// price records. A failing pool is logged and left out of the snapshot.
package collector

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/dex"
	"arbScope/internal/metrics"
	"arbScope/internal/model"
	"arbScope/internal/pricing"
	"arbScope/internal/registry"
)

// Client is the chain access the collector needs. *chain.Client satisfies it.
type Client interface {
	dex.Caller
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Lookup returns the client for a chain.
type Lookup func(chainID uint64) (Client, bool)

// Config tunes fan-out and retries.
type Config struct {
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
	CallTimeout  time.Duration
}

// Result is one collected snapshot.
type Result struct {
	Records []model.PriceRecord
	// Blocks maps chain id to the block every read on that chain was pinned to.
	Blocks  map[uint64]uint64
	Fetched int
	Failed  int
}

type Collector struct {
	clients Lookup
	cfg     Config
	tokens  *dex.TokenMetaCache
	metrics *metrics.Recorder
	logger  *zap.Logger
}

func New(clients Lookup, cfg Config, rec *metrics.Recorder, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Collector{
		clients: clients,
		cfg:     cfg,
		tokens:  dex.NewTokenMetaCache(),
		metrics: rec,
		logger:  logger,
	}
}

// Collect fetches every target and returns the records that normalized
// cleanly, sorted by chain and pool address. It only fails when ctx is done.
func (c *Collector) Collect(ctx context.Context, targets []registry.Target) (Result, error) {
	blocks := c.pinBlocks(ctx, targets)

	records := make([]*model.PriceRecord, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i := range targets {
		i := i
		target := targets[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			started := time.Now()
			rec, err := c.fetch(gctx, target, blocks)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.metrics.PoolFailed(target.Pool.ChainID, target.Pool.Venue, time.Since(started))
				c.logger.Warn("pool skipped",
					zap.Uint64("chain_id", target.Pool.ChainID),
					zap.String("pool", target.Pool.Address),
					zap.String("venue", target.Pool.Venue),
					zap.Error(err),
				)
				return nil
			}
			c.metrics.PoolFetched(target.Pool.ChainID, target.Pool.Venue, time.Since(started))
			records[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Records: make([]model.PriceRecord, 0, len(targets)), Blocks: make(map[uint64]uint64)}
	for chainID, block := range blocks {
		if block != nil {
			res.Blocks[chainID] = block.Uint64()
		}
	}
	for _, rec := range records {
		if rec == nil {
			res.Failed++
			continue
		}
		res.Fetched++
		res.Records = append(res.Records, *rec)
	}
	sort.SliceStable(res.Records, func(i, j int) bool {
		if res.Records[i].ChainID != res.Records[j].ChainID {
			return res.Records[i].ChainID < res.Records[j].ChainID
		}
		return res.Records[i].PoolAddress < res.Records[j].PoolAddress
	})
	return res, nil
}

// pinBlocks reads the head of every chain once. Chains whose head cannot be
// read fall back to latest state per call.
func (c *Collector) pinBlocks(ctx context.Context, targets []registry.Target) map[uint64]*big.Int {
	blocks := make(map[uint64]*big.Int)
	var ids []uint64
	for _, target := range targets {
		if _, seen := blocks[target.Pool.ChainID]; !seen {
			blocks[target.Pool.ChainID] = nil
			ids = append(ids, target.Pool.ChainID)
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, chainID := range ids {
		client, ok := c.clients(chainID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(chainID uint64, client Client) {
			defer wg.Done()
			var head uint64
			err := c.cfg.Retry(ctx, func(ctx context.Context) error {
				var err error
				head, err = client.LatestBlockNumber(ctx)
				return err
			})
			if err != nil {
				c.logger.Warn("block head unavailable, reading latest state", zap.Uint64("chain_id", chainID), zap.Error(err))
				return
			}
			mu.Lock()
			blocks[chainID] = new(big.Int).SetUint64(head)
			mu.Unlock()
		}(chainID, client)
	}
	wg.Wait()
	return blocks
}

func (c *Collector) fetch(ctx context.Context, target registry.Target, blocks map[uint64]*big.Int) (model.PriceRecord, error) {
	pool := target.Pool
	client, ok := c.clients(pool.ChainID)
	if !ok {
		return model.PriceRecord{}, fmt.Errorf("no rpc client for chain %d", pool.ChainID)
	}

	if target.NeedDecimals0 {
		meta, err := c.tokenMeta(ctx, client, pool.ChainID, pool.Token0)
		if err != nil {
			return model.PriceRecord{}, err
		}
		pool.Token0 = meta
	}
	if target.NeedDecimals1 {
		meta, err := c.tokenMeta(ctx, client, pool.ChainID, pool.Token1)
		if err != nil {
			return model.PriceRecord{}, err
		}
		pool.Token1 = meta
	}

	var state model.PoolState
	err := c.cfg.Retry(ctx, func(ctx context.Context) error {
		var err error
		state, err = dex.FetchPoolState(ctx, client, common.HexToAddress(pool.Address), blocks[pool.ChainID])
		return err
	})
	if err != nil {
		return model.PriceRecord{}, fmt.Errorf("fetch pool state: %w", err)
	}

	rec, err := pricing.Normalize(pool, state)
	if err != nil {
		return model.PriceRecord{}, fmt.Errorf("normalize: %w", err)
	}
	return rec, nil
}

// tokenMeta reads decimals on chain, keeping the registry symbol.
func (c *Collector) tokenMeta(ctx context.Context, client Client, chainID uint64, token model.TokenMeta) (model.TokenMeta, error) {
	var meta model.TokenMeta
	err := c.cfg.Retry(ctx, func(ctx context.Context) error {
		var err error
		meta, err = c.tokens.TokenMeta(ctx, client, chainID, common.HexToAddress(token.Address), c.logger)
		return err
	})
	if err != nil {
		return token, fmt.Errorf("token %s metadata: %w", token.Address, err)
	}
	token.Decimals = meta.Decimals
	if token.Symbol == "" {
		token.Symbol = meta.Symbol
	}
	if token.Name == "" {
		token.Name = meta.Name
	}
	return token, nil
}
