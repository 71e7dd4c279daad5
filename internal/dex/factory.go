package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultFeeTiers are the Uniswap V3 fee tiers in ppm.
var DefaultFeeTiers = []uint32{100, 500, 3000, 10000}

// PancakeSwapFeeTiers are the PancakeSwap V3 fee tiers in ppm.
var PancakeSwapFeeTiers = []uint32{100, 500, 2500, 10000}

// GetPool asks a V3 factory for the pool of a pair and fee tier. The zero
// address means no pool exists.
func GetPool(ctx context.Context, caller Caller, factory, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	if caller == nil {
		return common.Address{}, fmt.Errorf("chain client is nil")
	}
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := callMethod(ctx, caller, factory, factoryABI, "getPool", nil, tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}
