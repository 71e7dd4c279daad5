package model

import (
	"math"
	"strings"
)

// FeeDenominator is the parts-per-million scale of pool fees.
const FeeDenominator = 1_000_000

// PriceRecord is a normalized quote for one pool, expressed as quote per base.
type PriceRecord struct {
	Venue                    string  `json:"dex"`
	ChainID                  uint64  `json:"chainId"`
	PoolAddress              string  `json:"poolAddress"`
	BaseSymbol               string  `json:"baseSymbol"`
	QuoteSymbol              string  `json:"quoteSymbol"`
	BaseToken                string  `json:"baseToken"`
	QuoteToken               string  `json:"quoteToken"`
	Price                    float64 `json:"price"`
	Fee                      uint32  `json:"fee"`
	TradableAmountBaseToken  float64 `json:"tradableAmountBaseToken"`
	TradableAmountQuoteToken float64 `json:"tradableAmountQuoteToken"`
}

// Reverse returns the same quote seen from the quote token's side.
// Fee is kept, tradable amounts follow the token roles.
func (r PriceRecord) Reverse() PriceRecord {
	out := r
	out.BaseSymbol, out.QuoteSymbol = r.QuoteSymbol, r.BaseSymbol
	out.BaseToken, out.QuoteToken = r.QuoteToken, r.BaseToken
	out.TradableAmountBaseToken, out.TradableAmountQuoteToken = r.TradableAmountQuoteToken, r.TradableAmountBaseToken
	if r.Price != 0 {
		out.Price = 1 / r.Price
	}
	return out
}

// Valid reports whether the record can take part in detection.
func (r PriceRecord) Valid() bool {
	if !finitePositive(r.Price) {
		return false
	}
	if r.Fee >= FeeDenominator {
		return false
	}
	if !finiteNonNegative(r.TradableAmountBaseToken) || !finiteNonNegative(r.TradableAmountQuoteToken) {
		return false
	}
	if r.BaseToken == "" || r.QuoteToken == "" {
		return false
	}
	return !strings.EqualFold(r.BaseToken, r.QuoteToken)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
