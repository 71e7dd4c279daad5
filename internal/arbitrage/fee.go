package arbitrage

import (
	"math"

	"arbScope/internal/model"
)

// DefaultMinMultiplier is the return threshold a cycle must beat.
const DefaultMinMultiplier = 1.01

// Options tunes detection.
type Options struct {
	// MinMultiplier is the exclusive return threshold; values <= 1 use DefaultMinMultiplier.
	MinMultiplier float64
}

func (o Options) threshold() float64 {
	if o.MinMultiplier <= 1 || math.IsNaN(o.MinMultiplier) || math.IsInf(o.MinMultiplier, 0) {
		return DefaultMinMultiplier
	}
	return o.MinMultiplier
}

// FeeMultiplier is the share of input left after a ppm fee.
func FeeMultiplier(fee uint32) float64 {
	return 1 - float64(fee)*1e-6
}

// EdgeLimit is the largest input, in base-token units, that respects both
// tradable amounts of the record.
func EdgeLimit(rec model.PriceRecord) float64 {
	return math.Min(rec.TradableAmountBaseToken, rec.TradableAmountQuoteToken/(FeeMultiplier(rec.Fee)*rec.Price))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func legFromRecord(rec model.PriceRecord) model.Leg {
	return model.Leg{
		Venue:       rec.Venue,
		ChainID:     rec.ChainID,
		PoolAddress: rec.PoolAddress,
		FromToken:   rec.BaseToken,
		ToToken:     rec.QuoteToken,
		FromSymbol:  rec.BaseSymbol,
		ToSymbol:    rec.QuoteSymbol,
		Price:       rec.Price,
		Fee:         rec.Fee,
	}
}

func newOpportunity(kind string, legs []model.Leg, input, output float64) model.Opportunity {
	multiplier := output / input
	return model.Opportunity{
		Kind:                kind,
		Legs:                legs,
		StartToken:          legs[0].FromToken,
		StartSymbol:         legs[0].FromSymbol,
		InputAmount:         input,
		OutputAmount:        output,
		Profit:              output - input,
		ProfitPercent:       (multiplier - 1) * 100,
		EffectiveMultiplier: multiplier,
		CrossChain:          crossChain(legs),
	}
}

func crossChain(legs []model.Leg) bool {
	for _, leg := range legs[1:] {
		if leg.ChainID != legs[0].ChainID {
			return true
		}
	}
	return false
}
