package arbitrage

import (
	"sort"
	"strings"

	"arbScope/internal/model"
)

// PairKey identifies an unordered token pair; TokenA sorts before TokenB.
type PairKey struct {
	TokenA string
	TokenB string
}

func (k PairKey) String() string {
	return k.TokenA + "/" + k.TokenB
}

// NewPairKey builds the canonical key for two token addresses.
func NewPairKey(x, y string) PairKey {
	x, y = strings.ToLower(x), strings.ToLower(y)
	if y < x {
		x, y = y, x
	}
	return PairKey{TokenA: x, TokenB: y}
}

// PairIndex groups price records by pair. Every record under a key quotes
// TokenB per TokenA.
type PairIndex map[PairKey][]model.PriceRecord

// BuildPairIndex groups valid records by canonical pair, flipping records
// that quote the other direction.
func BuildPairIndex(records []model.PriceRecord) PairIndex {
	index := make(PairIndex)
	for _, rec := range records {
		rec = canonicalTokens(rec)
		if !rec.Valid() {
			continue
		}
		key := NewPairKey(rec.BaseToken, rec.QuoteToken)
		if rec.BaseToken != key.TokenA {
			rec = rec.Reverse()
		}
		index[key] = append(index[key], rec)
	}
	return index
}

// Keys returns the pair keys in sorted order.
func (idx PairIndex) Keys() []PairKey {
	keys := make([]PairKey, 0, len(idx))
	for key := range idx {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TokenA != keys[j].TokenA {
			return keys[i].TokenA < keys[j].TokenA
		}
		return keys[i].TokenB < keys[j].TokenB
	})
	return keys
}

func canonicalTokens(rec model.PriceRecord) model.PriceRecord {
	rec.BaseToken = strings.ToLower(rec.BaseToken)
	rec.QuoteToken = strings.ToLower(rec.QuoteToken)
	rec.PoolAddress = strings.ToLower(rec.PoolAddress)
	return rec
}
