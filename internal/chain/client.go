package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC for one chain.
type Client struct {
	chainID   uint64
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewClient dials the RPC URL and checks that it serves the expected chain.
// A zero expectedChainID accepts whatever the node reports.
func NewClient(ctx context.Context, rpcURL string, expectedChainID uint64) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	ethClient := ethclient.NewClient(rpcClient)

	id, err := ethClient.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !id.IsUint64() {
		rpcClient.Close()
		return nil, fmt.Errorf("chain id does not fit in uint64: %s", id)
	}
	if expectedChainID != 0 && id.Uint64() != expectedChainID {
		rpcClient.Close()
		return nil, fmt.Errorf("rpc serves chain %d, expected %d", id.Uint64(), expectedChainID)
	}

	return &Client{
		chainID:   id.Uint64(),
		rpcClient: rpcClient,
		ethClient: ethClient,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID reported at dial time.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
