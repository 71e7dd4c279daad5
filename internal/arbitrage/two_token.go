package arbitrage

import (
	"math"
	"sort"
	"strconv"

	"arbScope/internal/model"
)

// DetectTwoToken finds buy-low/sell-high cycles between venues quoting the
// same pair, sized by the liquidity of both legs.
func DetectTwoToken(records []model.PriceRecord, opts Options) []model.Opportunity {
	index := BuildPairIndex(records)
	threshold := opts.threshold()

	var out []model.Opportunity
	for _, key := range index.Keys() {
		entries := index[key]
		if len(entries) < 2 {
			continue
		}
		low, high := priceExtremes(entries)
		if opp, ok := evaluateTwoToken(low, high, threshold); ok {
			out = append(out, opp)
		}
	}
	return out
}

// priceExtremes returns the cheapest and most expensive entries. Ties are
// broken by venue identity so the choice does not depend on input order.
func priceExtremes(entries []model.PriceRecord) (model.PriceRecord, model.PriceRecord) {
	sorted := make([]model.PriceRecord, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Price != sorted[j].Price {
			return sorted[i].Price < sorted[j].Price
		}
		return venueKey(sorted[i]) < venueKey(sorted[j])
	})
	return sorted[0], sorted[len(sorted)-1]
}

// TwoTokenSizing holds the intermediate amounts of a two-token cycle.
type TwoTokenSizing struct {
	BuyCapacity    float64
	SellCapacity   float64
	Quote          float64
	BaseAcquired   float64
	QuoteRecovered float64
}

// SizeTwoToken spends quote token on low and sells the acquired base on high.
func SizeTwoToken(low, high model.PriceRecord) TwoTokenSizing {
	lowFee := FeeMultiplier(low.Fee)
	highFee := FeeMultiplier(high.Fee)

	buyCap := math.Min(low.TradableAmountQuoteToken, low.TradableAmountBaseToken*low.Price/lowFee)
	sellCap := math.Min(high.TradableAmountBaseToken, high.TradableAmountQuoteToken/(highFee*high.Price))
	q := math.Min(buyCap, sellCap*low.Price/lowFee)

	sizing := TwoTokenSizing{BuyCapacity: buyCap, SellCapacity: sellCap, Quote: q}
	if !positive(q) {
		return sizing
	}
	sizing.BaseAcquired = q * lowFee / low.Price
	sizing.QuoteRecovered = sizing.BaseAcquired * highFee * high.Price
	return sizing
}

func evaluateTwoToken(low, high model.PriceRecord, threshold float64) (model.Opportunity, bool) {
	sizing := SizeTwoToken(low, high)
	if !positive(sizing.Quote) {
		return model.Opportunity{}, false
	}

	profit := sizing.QuoteRecovered - sizing.Quote
	multiplier := sizing.QuoteRecovered / sizing.Quote
	if !(multiplier > threshold) || !(profit > 0) {
		return model.Opportunity{}, false
	}

	legs := []model.Leg{
		legFromRecord(low.Reverse()),
		legFromRecord(high),
	}
	return newOpportunity(model.KindTwoToken, legs, sizing.Quote, sizing.QuoteRecovered), true
}

func venueKey(rec model.PriceRecord) string {
	return rec.Venue + "|" + rec.PoolAddress + "|" + strconv.FormatUint(rec.ChainID, 10)
}
