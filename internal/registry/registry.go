package registry

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"arbScope/internal/model"
)

// Registry lists the tokens, factories and pools to scan, grouped by chain.
type Registry struct {
	Chains []Chain `yaml:"chains"`
}

// Chain is the registry section of one network.
type Chain struct {
	ChainID   uint64    `yaml:"chain_id"`
	Name      string    `yaml:"name,omitempty"`
	Tokens    []Token   `yaml:"tokens"`
	Factories []Factory `yaml:"factories,omitempty"`
	Pools     []Pool    `yaml:"pools,omitempty"`
}

// Token is a tradable token. Decimals are read on chain when omitted.
type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals *uint8 `yaml:"decimals,omitempty"`
	Name     string `yaml:"name,omitempty"`
}

// Factory is a V3 factory used for pool discovery. FeeTiers overrides the
// discovery tier list for venues with their own tiers, e.g. PancakeSwap's 2500.
type Factory struct {
	Venue    string   `yaml:"venue"`
	Address  string   `yaml:"address"`
	FeeTiers []uint32 `yaml:"fee_tiers,omitempty"`
}

// Pool references its tokens by symbol, in pool token0/token1 order.
type Pool struct {
	Venue   string `yaml:"venue"`
	Address string `yaml:"address"`
	Token0  string `yaml:"token0"`
	Token1  string `yaml:"token1"`
	Fee     uint32 `yaml:"fee"`
}

// Target is a resolved pool ready to fetch.
type Target struct {
	Pool model.Pool
	// NeedDecimals reports tokens whose decimals must be read on chain.
	NeedDecimals0 bool
	NeedDecimals1 bool
}

// Load reads and validates a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes and validates registry YAML.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&reg); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("registry is empty")
		}
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks addresses, symbol references and duplicates.
func (r *Registry) Validate() error {
	seenChains := make(map[uint64]bool, len(r.Chains))
	for _, c := range r.Chains {
		if c.ChainID == 0 {
			return fmt.Errorf("chain id is required")
		}
		if seenChains[c.ChainID] {
			return fmt.Errorf("chain %d listed twice", c.ChainID)
		}
		seenChains[c.ChainID] = true

		symbols := make(map[string]bool, len(c.Tokens))
		for _, t := range c.Tokens {
			if strings.TrimSpace(t.Symbol) == "" {
				return fmt.Errorf("chain %d: token %s has no symbol", c.ChainID, t.Address)
			}
			if symbols[t.Symbol] {
				return fmt.Errorf("chain %d: token %s listed twice", c.ChainID, t.Symbol)
			}
			symbols[t.Symbol] = true
			if err := checkAddress(t.Address); err != nil {
				return fmt.Errorf("chain %d: token %s: %w", c.ChainID, t.Symbol, err)
			}
		}
		for _, f := range c.Factories {
			if err := checkAddress(f.Address); err != nil {
				return fmt.Errorf("chain %d: factory %s: %w", c.ChainID, f.Venue, err)
			}
			for _, fee := range f.FeeTiers {
				if fee >= model.FeeDenominator {
					return fmt.Errorf("chain %d: factory %s fee tier %d out of range", c.ChainID, f.Venue, fee)
				}
			}
		}
		pools := make(map[string]bool, len(c.Pools))
		for _, p := range c.Pools {
			if err := checkAddress(p.Address); err != nil {
				return fmt.Errorf("chain %d: pool %s/%s: %w", c.ChainID, p.Token0, p.Token1, err)
			}
			key := strings.ToLower(p.Address)
			if pools[key] {
				return fmt.Errorf("chain %d: pool %s listed twice", c.ChainID, p.Address)
			}
			pools[key] = true
			if !symbols[p.Token0] || !symbols[p.Token1] {
				return fmt.Errorf("chain %d: pool %s references unknown token %s/%s", c.ChainID, p.Address, p.Token0, p.Token1)
			}
			if p.Token0 == p.Token1 {
				return fmt.Errorf("chain %d: pool %s has identical tokens", c.ChainID, p.Address)
			}
			if p.Fee >= model.FeeDenominator {
				return fmt.Errorf("chain %d: pool %s fee %d out of range", c.ChainID, p.Address, p.Fee)
			}
			if strings.TrimSpace(p.Venue) == "" {
				return fmt.Errorf("chain %d: pool %s has no venue", c.ChainID, p.Address)
			}
		}
	}
	return nil
}

// Chain returns the section for a chain id.
func (r *Registry) Chain(chainID uint64) (*Chain, bool) {
	for i := range r.Chains {
		if r.Chains[i].ChainID == chainID {
			return &r.Chains[i], true
		}
	}
	return nil, false
}

// ChainIDs returns the registered chain ids in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.Chains))
	for _, c := range r.Chains {
		ids = append(ids, c.ChainID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Token looks up a token by symbol.
func (c *Chain) Token(symbol string) (Token, bool) {
	for _, t := range c.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}

// Meta converts a registry token into token metadata.
func (t Token) Meta() model.TokenMeta {
	meta := model.TokenMeta{
		Address: strings.ToLower(t.Address),
		Symbol:  t.Symbol,
		Name:    t.Name,
	}
	if t.Decimals != nil {
		meta.Decimals = *t.Decimals
	}
	return meta
}

// Targets resolves every registered pool into a fetch target.
func (r *Registry) Targets() []Target {
	var out []Target
	for i := range r.Chains {
		c := &r.Chains[i]
		for _, p := range c.Pools {
			t0, _ := c.Token(p.Token0)
			t1, _ := c.Token(p.Token1)
			out = append(out, Target{
				Pool: model.Pool{
					Venue:   p.Venue,
					ChainID: c.ChainID,
					Address: strings.ToLower(p.Address),
					Token0:  t0.Meta(),
					Token1:  t1.Meta(),
					Fee:     p.Fee,
				},
				NeedDecimals0: t0.Decimals == nil,
				NeedDecimals1: t1.Decimals == nil,
			})
		}
	}
	return out
}

// Encode writes the registry as YAML.
func (r *Registry) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	return enc.Close()
}

// Save writes the registry to path.
func (r *Registry) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func checkAddress(addr string) error {
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid address %q", addr)
	}
	if common.HexToAddress(addr) == (common.Address{}) {
		return fmt.Errorf("zero address")
	}
	return nil
}
