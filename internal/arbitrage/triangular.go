package arbitrage

import (
	"math"

	"arbScope/internal/model"
)

// CycleSizing holds the bounds and amounts of a three-leg cycle.
type CycleSizing struct {
	Bounds      [3]float64
	XMax        float64
	FinalAmount float64
}

// SizeCycle finds the largest start amount that keeps every leg inside its
// tradable limit and returns what the cycle yields for it.
func SizeCycle(ab, bc, ca model.PriceRecord) CycleSizing {
	rateAB := FeeMultiplier(ab.Fee) * ab.Price
	rateBC := FeeMultiplier(bc.Fee) * bc.Price
	rateCA := FeeMultiplier(ca.Fee) * ca.Price

	var sizing CycleSizing
	sizing.Bounds[0] = EdgeLimit(ab)
	sizing.Bounds[1] = EdgeLimit(bc) / rateAB
	sizing.Bounds[2] = EdgeLimit(ca) / (rateAB * rateBC)
	sizing.XMax = math.Min(sizing.Bounds[0], math.Min(sizing.Bounds[1], sizing.Bounds[2]))
	if !positive(sizing.XMax) {
		return sizing
	}
	sizing.FinalAmount = sizing.XMax * rateAB * rateBC * rateCA
	return sizing
}

// DetectTriangular enumerates A->B->C->A cycles over distinct tokens.
// Every rotation of a cycle is reported, each sized in its own start token.
func DetectTriangular(records []model.PriceRecord, opts Options) []model.Opportunity {
	g := BuildGraph(records)
	tokens := g.Tokens()
	if len(tokens) < 3 {
		return nil
	}
	threshold := opts.threshold()

	var out []model.Opportunity
	for _, a := range tokens {
		for _, ab := range g.Edges(a) {
			b := ab.QuoteToken
			if b == a {
				continue
			}
			for _, bc := range g.Edges(b) {
				c := bc.QuoteToken
				if c == a || c == b {
					continue
				}
				for _, ca := range g.EdgesBetween(c, a) {
					if opp, ok := evaluateCycle(ab, bc, ca, threshold); ok {
						out = append(out, opp)
					}
				}
			}
		}
	}
	return out
}

func evaluateCycle(ab, bc, ca model.PriceRecord, threshold float64) (model.Opportunity, bool) {
	sizing := SizeCycle(ab, bc, ca)
	if !positive(sizing.XMax) {
		return model.Opportunity{}, false
	}

	profit := sizing.FinalAmount - sizing.XMax
	multiplier := sizing.FinalAmount / sizing.XMax
	if !(multiplier > threshold) || !(profit > 0) {
		return model.Opportunity{}, false
	}

	legs := []model.Leg{legFromRecord(ab), legFromRecord(bc), legFromRecord(ca)}
	return newOpportunity(model.KindThreeToken, legs, sizing.XMax, sizing.FinalAmount), true
}
