package model

// Opportunity kinds.
const (
	KindTwoToken   = "two-token"
	KindThreeToken = "three-token"
)

// Leg is one swap inside an arbitrage cycle.
type Leg struct {
	Venue       string  `json:"dex"`
	ChainID     uint64  `json:"chainId"`
	PoolAddress string  `json:"poolAddress"`
	FromToken   string  `json:"fromToken"`
	ToToken     string  `json:"toToken"`
	FromSymbol  string  `json:"fromSymbol"`
	ToSymbol    string  `json:"toSymbol"`
	Price       float64 `json:"price"`
	Fee         uint32  `json:"fee"`
}

// Opportunity is a liquidity-bounded arbitrage cycle.
//
// Profit is absolute, in units of the start token. ProfitPercent is the
// unbounded diagnostic figure (EffectiveMultiplier - 1, as a percentage).
type Opportunity struct {
	Kind                string  `json:"kind"`
	Legs                []Leg   `json:"legs"`
	StartToken          string  `json:"startToken"`
	StartSymbol         string  `json:"startSymbol"`
	InputAmount         float64 `json:"inputAmount"`
	OutputAmount        float64 `json:"outputAmount"`
	Profit              float64 `json:"profit"`
	ProfitPercent       float64 `json:"profitPercent"`
	EffectiveMultiplier float64 `json:"effectiveMultiplier"`
	// CrossChain is set when legs run on different chains; such a route
	// needs a bridge between legs.
	CrossChain          bool    `json:"crossChain"`
}
