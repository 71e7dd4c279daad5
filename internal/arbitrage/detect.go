package arbitrage

import (
	"sort"
	"strings"

	"arbScope/internal/model"
)

// Detect runs both detectors over one snapshot and returns a single ranked
// list. It never fails; degenerate input yields an empty slice.
func Detect(records []model.PriceRecord, opts Options) []model.Opportunity {
	out := make([]model.Opportunity, 0)
	out = append(out, DetectTwoToken(records, opts)...)
	out = append(out, DetectTriangular(records, opts)...)
	Rank(out)
	return out
}

// Rank orders opportunities by effective multiplier, best first.
func Rank(opps []model.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].EffectiveMultiplier != opps[j].EffectiveMultiplier {
			return opps[i].EffectiveMultiplier > opps[j].EffectiveMultiplier
		}
		if opps[i].Kind != opps[j].Kind {
			return opps[i].Kind < opps[j].Kind
		}
		return routeKey(opps[i]) < routeKey(opps[j])
	})
}

func routeKey(opp model.Opportunity) string {
	parts := make([]string, 0, len(opp.Legs))
	for _, leg := range opp.Legs {
		parts = append(parts, leg.PoolAddress+":"+leg.FromToken+">"+leg.ToToken)
	}
	return strings.Join(parts, ",")
}
