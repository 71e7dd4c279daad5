package discovery

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbScope/internal/collector"
	"arbScope/internal/dex"
	"arbScope/internal/registry"
)

// fakeChain answers calls keyed by target address and full calldata.
type fakeChain struct {
	responses map[string][]byte
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	resp, ok := f.responses[msg.To.Hex()+common.Bytes2Hex(msg.Data)]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

var (
	factory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	usdc    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	dai     = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	live    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	drained = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	known   = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

func (f *fakeChain) pool(t *testing.T, t0, t1 common.Address, fee uint32, pool common.Address) {
	t.Helper()
	f.factoryPool(t, factory, t0, t1, fee, pool)
}

func (f *fakeChain) factoryPool(t *testing.T, factory, t0, t1 common.Address, fee uint32, pool common.Address) {
	t.Helper()
	factoryABI, err := dex.V3FactoryABI()
	require.NoError(t, err)
	data, err := factoryABI.Pack("getPool", t0, t1, new(big.Int).SetUint64(uint64(fee)))
	require.NoError(t, err)
	out, err := factoryABI.Methods["getPool"].Outputs.Pack(pool)
	require.NoError(t, err)
	f.responses[factory.Hex()+common.Bytes2Hex(data)] = out
}

func (f *fakeChain) liquidity(t *testing.T, pool common.Address, l int64) {
	t.Helper()
	poolABI, err := dex.V3PoolABI()
	require.NoError(t, err)
	data, err := poolABI.Pack("liquidity")
	require.NoError(t, err)
	out, err := poolABI.Methods["liquidity"].Outputs.Pack(big.NewInt(l))
	require.NoError(t, err)
	f.responses[pool.Hex()+common.Bytes2Hex(data)] = out
}

func testRegistry() *registry.Registry {
	return &registry.Registry{Chains: []registry.Chain{{
		ChainID: 1,
		Tokens: []registry.Token{
			{Symbol: "WETH", Address: weth.Hex()},
			{Symbol: "USDC", Address: usdc.Hex()},
			{Symbol: "DAI", Address: dai.Hex()},
		},
		Factories: []registry.Factory{{Venue: "Uniswap V3", Address: factory.Hex()}},
		Pools: []registry.Pool{
			{Venue: "Uniswap V3", Address: strings.ToLower(known.Hex()), Token0: "DAI", Token1: "USDC", Fee: 100},
		},
	}}}
}

func TestDiscover(t *testing.T) {
	chain := &fakeChain{responses: map[string][]byte{}}
	// USDC sorts below WETH, so USDC is token0.
	chain.pool(t, usdc, weth, 500, live)
	chain.liquidity(t, live, 1_000_000)
	chain.pool(t, usdc, weth, 3000, drained)
	chain.liquidity(t, drained, 0)
	chain.pool(t, dai, usdc, 100, known)
	chain.liquidity(t, known, 5)
	for _, fee := range []uint32{100, 10000} {
		chain.pool(t, usdc, weth, fee, common.Address{})
	}

	d := New(func(id uint64) (dex.Caller, bool) { return chain, id == 1 },
		collector.Config{Concurrency: 4, RetryBackoff: time.Millisecond}, nil, nil)

	reg := testRegistry()
	out, stats, err := d.Discover(context.Background(), reg)
	require.NoError(t, err)

	// 3 pairs x 4 tiers.
	assert.Equal(t, 12, stats.Queried)
	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 1, stats.Empty)
	assert.Equal(t, 2, stats.Missing)
	assert.Equal(t, 7, stats.Failed)

	pools := out.Chains[0].Pools
	require.Len(t, pools, 2)
	assert.Equal(t, registry.Pool{Venue: "Uniswap V3", Address: strings.ToLower(known.Hex()), Token0: "DAI", Token1: "USDC", Fee: 100}, pools[0])
	assert.Equal(t, registry.Pool{Venue: "Uniswap V3", Address: strings.ToLower(live.Hex()), Token0: "USDC", Token1: "WETH", Fee: 500}, pools[1])

	// The input registry is untouched.
	assert.Len(t, reg.Chains[0].Pools, 1)
	require.NoError(t, out.Validate())
}

func TestDiscoverNoClient(t *testing.T) {
	d := New(func(uint64) (dex.Caller, bool) { return nil, false }, collector.Config{}, []uint32{500}, nil)
	out, stats, err := d.Discover(context.Background(), testRegistry())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Queried)
	assert.Equal(t, 3, stats.Failed)
	assert.Len(t, out.Chains[0].Pools, 1)
}

func TestSortTokens(t *testing.T) {
	a := registry.Token{Symbol: "WETH", Address: weth.Hex()}
	b := registry.Token{Symbol: "USDC", Address: usdc.Hex()}
	t0, t1 := sortTokens(a, b)
	assert.Equal(t, "USDC", t0.Symbol)
	assert.Equal(t, "WETH", t1.Symbol)

	t0, _ = sortTokens(a, a)
	assert.Empty(t, t0.Address)
}

func TestDiscoverUsesFactoryFeeTiers(t *testing.T) {
	pancake := common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865")
	cakePool := common.HexToAddress("0x00000000000000000000000000000000000000b1")

	chain := &fakeChain{responses: map[string][]byte{}}
	// Only the 2500 tier exists; the default tier list would never ask for it.
	chain.factoryPool(t, pancake, usdc, weth, 2500, cakePool)
	chain.liquidity(t, cakePool, 42)

	reg := &registry.Registry{Chains: []registry.Chain{{
		ChainID: 56,
		Tokens: []registry.Token{
			{Symbol: "WETH", Address: weth.Hex()},
			{Symbol: "USDC", Address: usdc.Hex()},
		},
		Factories: []registry.Factory{{Venue: "PancakeSwap V3", Address: pancake.Hex(), FeeTiers: dex.PancakeSwapFeeTiers}},
	}}}

	d := New(func(uint64) (dex.Caller, bool) { return chain, true }, collector.Config{Concurrency: 2, RetryBackoff: time.Millisecond}, nil, nil)
	got, stats, err := d.Discover(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Queried)
	assert.Equal(t, 1, stats.Found)
	require.Len(t, got.Chains[0].Pools, 1)
	assert.Equal(t, registry.Pool{Venue: "PancakeSwap V3", Address: strings.ToLower(cakePool.Hex()), Token0: "USDC", Token1: "WETH", Fee: 2500}, got.Chains[0].Pools[0])
}
