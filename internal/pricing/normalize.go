package pricing

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"arbScope/internal/model"
)

// divPrecision is the number of decimal places kept by divisions.
const divPrecision = 48

var (
	q96 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0)

	// sqrt(0.99) and sqrt(1.01): a +/-1% band around the current price.
	sqrtLowerBand = decimal.RequireFromString("0.9949874371066199547344798210012060051781")
	sqrtUpperBand = decimal.RequireFromString("1.004987562112089027021926491275957618695")
)

// Normalize converts raw V3 pool state into a PriceRecord quoting token1 per token0.
//
// pool carries the registry view of the pair. When state.Token0 is known and
// differs from pool.Token0, the registry order is swapped to match the pool.
func Normalize(pool model.Pool, state model.PoolState) (model.PriceRecord, error) {
	token0, token1 := pool.Token0, pool.Token1
	if state.Token0 != "" && !strings.EqualFold(state.Token0, token0.Address) {
		if !strings.EqualFold(state.Token0, token1.Address) {
			return model.PriceRecord{}, fmt.Errorf("pool token0 %s not in registry pair", state.Token0)
		}
		token0, token1 = token1, token0
	}

	if token0.Address == "" || token1.Address == "" {
		return model.PriceRecord{}, fmt.Errorf("missing token address")
	}
	if strings.EqualFold(token0.Address, token1.Address) {
		return model.PriceRecord{}, fmt.Errorf("identical tokens: %s", token0.Address)
	}
	if pool.Fee >= model.FeeDenominator {
		return model.PriceRecord{}, fmt.Errorf("fee out of range: %d", pool.Fee)
	}

	sqrtPrice, err := parseBigInt(state.SqrtPriceX96)
	if err != nil {
		return model.PriceRecord{}, fmt.Errorf("sqrt price: %w", err)
	}
	if sqrtPrice.Sign() <= 0 {
		return model.PriceRecord{}, fmt.Errorf("sqrt price must be positive: %s", sqrtPrice)
	}
	liquidity, err := parseBigInt(state.Liquidity)
	if err != nil {
		return model.PriceRecord{}, fmt.Errorf("liquidity: %w", err)
	}
	if liquidity.Sign() < 0 {
		return model.PriceRecord{}, fmt.Errorf("negative liquidity: %s", liquidity)
	}

	quote := Quote(sqrtPrice, liquidity, token0.Decimals, token1.Decimals)

	return model.PriceRecord{
		Venue:                    pool.Venue,
		ChainID:                  pool.ChainID,
		PoolAddress:              strings.ToLower(pool.Address),
		BaseSymbol:               token0.Symbol,
		QuoteSymbol:              token1.Symbol,
		BaseToken:                strings.ToLower(token0.Address),
		QuoteToken:               strings.ToLower(token1.Address),
		Price:                    quote.Price.InexactFloat64(),
		Fee:                      pool.Fee,
		TradableAmountBaseToken:  quote.TradableBase.InexactFloat64(),
		TradableAmountQuoteToken: quote.TradableQuote.InexactFloat64(),
	}, nil
}

// PoolQuote is the decimal result of Quote, before float conversion.
type PoolQuote struct {
	Price         decimal.Decimal
	TradableBase  decimal.Decimal
	TradableQuote decimal.Decimal
}

// Quote computes the human-scale price and the +/-1% tradable amounts.
func Quote(sqrtPriceX96, liquidity *big.Int, decimals0, decimals1 uint8) PoolQuote {
	s := decimal.NewFromBigInt(sqrtPriceX96, 0).DivRound(q96, divPrecision)
	l := decimal.NewFromBigInt(liquidity, 0)

	adjustment := decimal.New(1, int32(decimals0)-int32(decimals1))
	price := s.Mul(s).Mul(adjustment)

	sLow := s.Mul(sqrtLowerBand)
	sHigh := s.Mul(sqrtUpperBand)

	base := l.Mul(s.Sub(sLow)).DivRound(s.Mul(sLow), divPrecision)
	quote := l.Mul(sHigh.Sub(s))

	return PoolQuote{
		Price:         price,
		TradableBase:  ScaleDown(base, decimals0),
		TradableQuote: ScaleDown(quote, decimals1),
	}
}

// ScaleDown converts a raw token amount into whole-token units.
func ScaleDown(value decimal.Decimal, decimals uint8) decimal.Decimal {
	if decimals == 0 {
		return value
	}
	return value.Shift(-int32(decimals))
}

func parseBigInt(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty value")
	}
	val, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer: %s", input)
	}
	return val, nil
}
