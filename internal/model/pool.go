package model

// Pool is a registry entry for a V3-style pool, tokens in pool order.
type Pool struct {
	Venue   string    `json:"venue" yaml:"venue"`
	ChainID uint64    `json:"chain_id" yaml:"chain_id"`
	Address string    `json:"address" yaml:"address"`
	Token0  TokenMeta `json:"token0" yaml:"-"`
	Token1  TokenMeta `json:"token1" yaml:"-"`
	Fee     uint32    `json:"fee" yaml:"fee"`
}

// PoolState is the raw on-chain state read for a pool.
type PoolState struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Token0       string `json:"token0,omitempty"`
	BlockNumber  uint64 `json:"block_number,omitempty"`
}
