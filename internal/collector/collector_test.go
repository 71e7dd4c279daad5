package collector

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbScope/internal/dex"
	"arbScope/internal/metrics"
	"arbScope/internal/model"
	"arbScope/internal/registry"
)

type poolFixture struct {
	sqrt      *big.Int
	liquidity *big.Int
	token0    common.Address
	failures  int // calls to fail before answering
}

type fakeClient struct {
	mu       sync.Mutex
	head     uint64
	pools    map[common.Address]*poolFixture
	decimals map[common.Address]uint8
	blocks   []*big.Int
}

func (f *fakeClient) LatestBlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, block)

	poolABI, _ := dex.V3PoolABI()
	erc20ABI, _ := dex.ERC20ABI()
	selector := msg.Data[:4]

	if dec, ok := f.decimals[*msg.To]; ok {
		m := erc20ABI.Methods["decimals"]
		if string(selector) == string(m.ID) {
			return m.Outputs.Pack(dec)
		}
		return nil, errors.New("execution reverted")
	}

	p, ok := f.pools[*msg.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("rate limited")
	}
	switch string(selector) {
	case string(poolABI.Methods["slot0"].ID):
		out := common.LeftPadBytes(p.sqrt.Bytes(), 32)
		return append(out, make([]byte, 6*32)...), nil
	case string(poolABI.Methods["liquidity"].ID):
		return poolABI.Methods["liquidity"].Outputs.Pack(p.liquidity)
	case string(poolABI.Methods["token0"].ID):
		return poolABI.Methods["token0"].Outputs.Pack(p.token0)
	}
	return nil, errors.New("unknown method")
}

var (
	tokenA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x2000000000000000000000000000000000000002")
	poolOK = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	poolRv = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	poolKO = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func target(pool common.Address, venue string, needDecimals bool) registry.Target {
	return registry.Target{
		Pool: model.Pool{
			Venue:   venue,
			ChainID: 1,
			Address: strings.ToLower(pool.Hex()),
			Token0:  model.TokenMeta{Address: strings.ToLower(tokenA.Hex()), Symbol: "AAA", Decimals: 18},
			Token1:  model.TokenMeta{Address: strings.ToLower(tokenB.Hex()), Symbol: "BBB", Decimals: 18},
			Fee:     500,
		},
		NeedDecimals0: needDecimals,
		NeedDecimals1: needDecimals,
	}
}

func q96() *big.Int { return new(big.Int).Lsh(big.NewInt(1), 96) }

func newFake() *fakeClient {
	return &fakeClient{
		head: 123,
		pools: map[common.Address]*poolFixture{
			poolOK: {sqrt: q96(), liquidity: big.NewInt(1e18), token0: tokenA, failures: 1},
			poolRv: {sqrt: q96(), liquidity: big.NewInt(1e18), token0: tokenB},
		},
		decimals: map[common.Address]uint8{tokenA: 6, tokenB: 6},
	}
}

func lookupFor(client Client) Lookup {
	return func(chainID uint64) (Client, bool) {
		if chainID != 1 {
			return nil, false
		}
		return client, true
	}
}

func TestCollectSkipsFailuresAndRetries(t *testing.T) {
	fake := newFake()
	rec := metrics.New()
	c := New(lookupFor(fake), Config{Concurrency: 2, MaxRetries: 2, RetryBackoff: time.Millisecond, CallTimeout: time.Second}, rec, nil)

	failing := target(poolKO, "Uniswap V3", false)
	otherChain := target(poolOK, "Uniswap V3", false)
	otherChain.Pool.ChainID = 56

	res, err := c.Collect(context.Background(), []registry.Target{
		target(poolOK, "Uniswap V3", false),
		target(poolRv, "PancakeSwap V3", false),
		failing,
		otherChain,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Records, 2)
	assert.Equal(t, map[uint64]uint64{1: 123}, res.Blocks)

	for _, r := range res.Records {
		assert.InDelta(t, 1.0, r.Price, 1e-12)
		assert.Equal(t, uint32(500), r.Fee)
	}
	// The pool reporting tokenB as token0 keeps on-chain order.
	byPool := map[string]model.PriceRecord{}
	for _, r := range res.Records {
		byPool[r.PoolAddress] = r
	}
	assert.Equal(t, "BBB", byPool[strings.ToLower(poolRv.Hex())].BaseSymbol)
	assert.Equal(t, "AAA", byPool[strings.ToLower(poolOK.Hex())].BaseSymbol)

	for _, b := range fake.blocks {
		require.NotNil(t, b)
		assert.Equal(t, uint64(123), b.Uint64())
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.PoolsFetched.WithLabelValues("1", "Uniswap V3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.PoolsFailed.WithLabelValues("1", "Uniswap V3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.PoolsFailed.WithLabelValues("56", "Uniswap V3")))
}

func TestCollectReadsMissingDecimals(t *testing.T) {
	fake := newFake()
	fake.pools[poolOK].failures = 0
	c := New(lookupFor(fake), Config{Concurrency: 1}, nil, nil)

	res, err := c.Collect(context.Background(), []registry.Target{target(poolOK, "Uniswap V3", true)})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	// Decimals read on chain are 6, so depth scales by 1e12 against 18.
	assert.InDelta(t, 5037815259.212075, res.Records[0].TradableAmountBaseToken, 1e-3)
	assert.Equal(t, "AAA", res.Records[0].BaseSymbol)
}

func TestCollectExhaustsRetries(t *testing.T) {
	fake := newFake()
	fake.pools[poolOK].failures = 5
	c := New(lookupFor(fake), Config{Concurrency: 1, MaxRetries: 1, RetryBackoff: time.Millisecond}, nil, nil)

	res, err := c.Collect(context.Background(), []registry.Target{target(poolOK, "Uniswap V3", false)})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Failed)
}

func TestCollectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(lookupFor(newFake()), Config{Concurrency: 1}, nil, nil)
	_, err := c.Collect(ctx, []registry.Target{target(poolOK, "Uniswap V3", false)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 3, calls)
}
