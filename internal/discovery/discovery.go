// Package discovery finds V3 pools for registry token pairs by asking each
// factory for every fee tier.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/collector"
	"arbScope/internal/dex"
	"arbScope/internal/registry"
)

// Lookup returns the caller for a chain.
type Lookup func(chainID uint64) (dex.Caller, bool)

// Stats counts query outcomes.
type Stats struct {
	Queried int
	Found   int
	Empty   int
	Missing int
	Failed  int
}

type query struct {
	chainID uint64
	factory registry.Factory
	token0  registry.Token
	token1  registry.Token
	feeTier uint32
}

type Discoverer struct {
	callers  Lookup
	cfg      collector.Config
	feeTiers []uint32
	logger   *zap.Logger
}

func New(callers Lookup, cfg collector.Config, feeTiers []uint32, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(feeTiers) == 0 {
		feeTiers = dex.DefaultFeeTiers
	}
	return &Discoverer{callers: callers, cfg: cfg, feeTiers: feeTiers, logger: logger}
}

// Discover returns a copy of reg whose pool lists are extended with every
// live pool found. Existing entries are kept; pools are ordered by venue,
// token pair and fee.
func (d *Discoverer) Discover(ctx context.Context, reg *registry.Registry) (*registry.Registry, Stats, error) {
	queries := d.queries(reg)

	var (
		mu    sync.Mutex
		found = make(map[uint64][]registry.Pool)
		stats = Stats{Queried: len(queries)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, p := range queries {
		p := p
		g.Go(func() error {
			pool, result, err := d.query(gctx, p)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			mu.Lock()
			defer mu.Unlock()
			switch result {
			case outcomeFound:
				stats.Found++
				found[p.chainID] = append(found[p.chainID], pool)
			case outcomeMissing:
				stats.Missing++
			case outcomeEmpty:
				stats.Empty++
			case outcomeFailed:
				stats.Failed++
				d.logger.Warn("pool query failed",
					zap.Uint64("chain_id", p.chainID),
					zap.String("venue", p.factory.Venue),
					zap.String("pair", p.token0.Symbol+"/"+p.token1.Symbol),
					zap.Uint32("fee", p.feeTier),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	out := &registry.Registry{Chains: make([]registry.Chain, len(reg.Chains))}
	for i, c := range reg.Chains {
		c.Pools = mergePools(c.Pools, found[c.ChainID])
		out.Chains[i] = c
	}
	return out, stats, nil
}

type outcome int

const (
	outcomeFound outcome = iota
	outcomeMissing
	outcomeEmpty
	outcomeFailed
)

func (d *Discoverer) query(ctx context.Context, p query) (registry.Pool, outcome, error) {
	caller, ok := d.callers(p.chainID)
	if !ok {
		return registry.Pool{}, outcomeFailed, fmt.Errorf("no rpc client for chain %d", p.chainID)
	}

	var addr common.Address
	err := d.cfg.Retry(ctx, func(ctx context.Context) error {
		var err error
		addr, err = dex.GetPool(ctx, caller, common.HexToAddress(p.factory.Address),
			common.HexToAddress(p.token0.Address), common.HexToAddress(p.token1.Address), p.feeTier)
		return err
	})
	if err != nil {
		return registry.Pool{}, outcomeFailed, err
	}
	if addr == (common.Address{}) {
		return registry.Pool{}, outcomeMissing, nil
	}

	var liquidity int
	err = d.cfg.Retry(ctx, func(ctx context.Context) error {
		l, err := dex.FetchLiquidity(ctx, caller, addr)
		if err != nil {
			return err
		}
		liquidity = l.Sign()
		return nil
	})
	if err != nil {
		return registry.Pool{}, outcomeFailed, err
	}
	if liquidity <= 0 {
		return registry.Pool{}, outcomeEmpty, nil
	}

	return registry.Pool{
		Venue:   p.factory.Venue,
		Address: strings.ToLower(addr.Hex()),
		Token0:  p.token0.Symbol,
		Token1:  p.token1.Symbol,
		Fee:     p.feeTier,
	}, outcomeFound, nil
}

// queries lists every factory, unordered token pair and fee tier, using the
// factory's own tiers when it lists them. Tokens are put in V3 pool order:
// token0 has the lower address.
func (d *Discoverer) queries(reg *registry.Registry) []query {
	var out []query
	for _, c := range reg.Chains {
		for _, f := range c.Factories {
			tiers := d.feeTiers
			if len(f.FeeTiers) > 0 {
				tiers = f.FeeTiers
			}
			for i := 0; i < len(c.Tokens); i++ {
				for j := i + 1; j < len(c.Tokens); j++ {
					t0, t1 := sortTokens(c.Tokens[i], c.Tokens[j])
					if t0.Address == "" {
						continue
					}
					for _, fee := range tiers {
						out = append(out, query{chainID: c.ChainID, factory: f, token0: t0, token1: t1, feeTier: fee})
					}
				}
			}
		}
	}
	return out
}

// sortTokens orders a pair by address. Two entries for the same address
// yield an empty token0.
func sortTokens(a, b registry.Token) (registry.Token, registry.Token) {
	addrA := common.HexToAddress(a.Address)
	addrB := common.HexToAddress(b.Address)
	switch bytes.Compare(addrA.Bytes(), addrB.Bytes()) {
	case 0:
		return registry.Token{}, registry.Token{}
	case 1:
		return b, a
	default:
		return a, b
	}
}

func mergePools(existing, found []registry.Pool) []registry.Pool {
	seen := make(map[string]bool, len(existing)+len(found))
	out := make([]registry.Pool, 0, len(existing)+len(found))
	for _, p := range append(append([]registry.Pool{}, existing...), found...) {
		key := strings.ToLower(p.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Venue != out[j].Venue {
			return out[i].Venue < out[j].Venue
		}
		if out[i].Token0 != out[j].Token0 {
			return out[i].Token0 < out[j].Token0
		}
		if out[i].Token1 != out[j].Token1 {
			return out[i].Token1 < out[j].Token1
		}
		return out[i].Fee < out[j].Fee
	})
	return out
}
