package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/model"
)

// FetchPoolState reads slot0, liquidity and token0 of a V3 pool at a block.
// A nil block reads latest state.
func FetchPoolState(ctx context.Context, caller Caller, pool common.Address, block *big.Int) (model.PoolState, error) {
	if caller == nil {
		return model.PoolState{}, fmt.Errorf("chain client is nil")
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	sqrtPrice, err := fetchSqrtPrice(ctx, caller, pool, poolABI, block)
	if err != nil {
		return model.PoolState{}, err
	}

	values, err := callMethod(ctx, caller, pool, poolABI, "liquidity", block)
	if err != nil {
		return model.PoolState{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("liquidity: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, poolABI, "token0", block)
	if err != nil {
		return model.PoolState{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("token0: %w", err)
	}

	state := model.PoolState{
		SqrtPriceX96: sqrtPrice.String(),
		Liquidity:    liquidity.String(),
		Token0:       strings.ToLower(token0.Hex()),
	}
	if block != nil && block.IsUint64() {
		state.BlockNumber = block.Uint64()
	}
	return state, nil
}

// FetchLiquidity reads the in-range liquidity of a V3 pool.
func FetchLiquidity(ctx context.Context, caller Caller, pool common.Address) (*big.Int, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, caller, pool, poolABI, "liquidity", nil)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// fetchSqrtPrice decodes only the first slot0 word. The trailing fields
// differ between Uniswap (uint8 feeProtocol) and PancakeSwap (uint32) pools.
func fetchSqrtPrice(ctx context.Context, caller Caller, pool common.Address, poolABI abi.ABI, block *big.Int) (*big.Int, error) {
	method := poolABI.Methods["slot0"]
	data, err := poolABI.Pack("slot0")
	if err != nil {
		return nil, fmt.Errorf("pack slot0: %w", err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call slot0: %w", err)
	}
	if len(resp) < 32 {
		return nil, fmt.Errorf("unpack slot0: short response (%d bytes)", len(resp))
	}
	values, err := abi.Arguments{method.Outputs[0]}.Unpack(resp[:32])
	if err != nil {
		return nil, fmt.Errorf("unpack slot0: %w", err)
	}
	return asBigInt(values[0])
}
