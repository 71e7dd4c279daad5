package chain

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Set holds one client per chain.
type Set struct {
	clients map[uint64]*Client
}

// Dial connects to every configured endpoint. Chains whose RPC cannot be
// reached are logged and left out so the rest of the batch can proceed.
func Dial(ctx context.Context, endpoints map[uint64]string, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no rpc endpoints configured")
	}

	ids := make([]uint64, 0, len(endpoints))
	for id := range endpoints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	set := &Set{clients: make(map[uint64]*Client, len(endpoints))}
	for _, id := range ids {
		client, err := NewClient(ctx, endpoints[id], id)
		if err != nil {
			logger.Warn("rpc dial failed", zap.Uint64("chain_id", id), zap.Error(err))
			continue
		}
		set.clients[id] = client
	}
	if len(set.clients) == 0 {
		return nil, fmt.Errorf("no rpc endpoint reachable")
	}
	return set, nil
}

// Get returns the client for a chain.
func (s *Set) Get(chainID uint64) (*Client, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.clients[chainID]
	return c, ok
}

// Close closes every client.
func (s *Set) Close() {
	if s == nil {
		return
	}
	for _, c := range s.clients {
		c.Close()
	}
}
