package registry

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
chains:
  - chain_id: 1
    name: Ethereum
    tokens:
      - symbol: USDC
        address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
        decimals: 6
      - symbol: WETH
        address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
    factories:
      - venue: Uniswap V3
        address: "0x1F98431c8aD98523631AE4a59f267346ea31F984"
    pools:
      - venue: Uniswap V3
        address: "0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8"
        token0: USDC
        token1: WETH
        fee: 3000
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, reg.Chains, 1)

	c, ok := reg.Chain(1)
	require.True(t, ok)
	assert.Equal(t, "Ethereum", c.Name)

	usdc, ok := c.Token("USDC")
	require.True(t, ok)
	require.NotNil(t, usdc.Decimals)
	assert.Equal(t, uint8(6), *usdc.Decimals)

	weth, ok := c.Token("WETH")
	require.True(t, ok)
	assert.Nil(t, weth.Decimals)

	_, ok = reg.Chain(56)
	assert.False(t, ok)
}

func TestTargets(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)

	targets := reg.Targets()
	require.Len(t, targets, 1)
	got := targets[0]
	assert.Equal(t, "Uniswap V3", got.Pool.Venue)
	assert.Equal(t, uint64(1), got.Pool.ChainID)
	assert.Equal(t, "0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8", got.Pool.Address)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", got.Pool.Token0.Address)
	assert.Equal(t, uint8(6), got.Pool.Token0.Decimals)
	assert.Equal(t, "WETH", got.Pool.Token1.Symbol)
	assert.False(t, got.NeedDecimals0)
	assert.True(t, got.NeedDecimals1)
	assert.Equal(t, uint32(3000), got.Pool.Fee)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"empty": ``,
		"unknown field": `
chains:
  - chain_id: 1
    tokenz: []
`,
		"missing chain id": `
chains:
  - tokens: []
`,
		"bad token address": `
chains:
  - chain_id: 1
    tokens:
      - symbol: USDC
        address: "0x1234"
`,
		"unknown pool token": `
chains:
  - chain_id: 1
    tokens:
      - symbol: USDC
        address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    pools:
      - venue: Uniswap V3
        address: "0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8"
        token0: USDC
        token1: WETH
        fee: 3000
`,
		"fee out of range": `
chains:
  - chain_id: 1
    tokens:
      - symbol: USDC
        address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
      - symbol: WETH
        address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
    pools:
      - venue: Uniswap V3
        address: "0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8"
        token0: USDC
        token1: WETH
        fee: 1000000
`,
		"duplicate chain": `
chains:
  - chain_id: 1
    tokens: []
  - chain_id: 1
    tokens: []
`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, reg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, reg, loaded)

	var buf bytes.Buffer
	require.NoError(t, loaded.Encode(&buf))
	assert.Contains(t, buf.String(), "chain_id: 1")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFactoryFeeTiers(t *testing.T) {
	reg, err := Parse([]byte(`
chains:
  - chain_id: 56
    tokens: []
    factories:
      - venue: PancakeSwap V3
        address: "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"
        fee_tiers: [100, 500, 2500, 10000]
`))
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 500, 2500, 10000}, reg.Chains[0].Factories[0].FeeTiers)

	_, err = Parse([]byte(`
chains:
  - chain_id: 56
    tokens: []
    factories:
      - venue: PancakeSwap V3
        address: "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"
        fee_tiers: [1000000]
`))
	assert.Error(t, err)
}
