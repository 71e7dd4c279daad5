package arbitrage

import (
	"sort"

	"arbScope/internal/model"
)

// Graph is a directed token graph. Each edge is a PriceRecord read as a swap
// from BaseToken to QuoteToken.
type Graph struct {
	adjacency map[string][]model.PriceRecord
	byDest    map[string]map[string][]model.PriceRecord
}

// BuildGraph adds a forward and a reverse edge for every valid record.
func BuildGraph(records []model.PriceRecord) *Graph {
	g := &Graph{
		adjacency: make(map[string][]model.PriceRecord),
		byDest:    make(map[string]map[string][]model.PriceRecord),
	}
	for _, rec := range records {
		rec = canonicalTokens(rec)
		if !rec.Valid() {
			continue
		}
		g.addEdge(rec)
		g.addEdge(rec.Reverse())
	}
	return g
}

func (g *Graph) addEdge(edge model.PriceRecord) {
	g.adjacency[edge.BaseToken] = append(g.adjacency[edge.BaseToken], edge)
	dest := g.byDest[edge.BaseToken]
	if dest == nil {
		dest = make(map[string][]model.PriceRecord)
		g.byDest[edge.BaseToken] = dest
	}
	dest[edge.QuoteToken] = append(dest[edge.QuoteToken], edge)
}

// Tokens returns every node in sorted order.
func (g *Graph) Tokens() []string {
	tokens := make([]string, 0, len(g.adjacency))
	for token := range g.adjacency {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Edges returns the outgoing edges of a token.
func (g *Graph) Edges(from string) []model.PriceRecord {
	return g.adjacency[from]
}

// EdgesBetween returns the edges from one token to another.
func (g *Graph) EdgesBetween(from, to string) []model.PriceRecord {
	return g.byDest[from][to]
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.adjacency {
		n += len(edges)
	}
	return n
}
