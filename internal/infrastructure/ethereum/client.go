package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrentCalls limits concurrent eth_call requests of a Multicall
const DefaultMaxConcurrentCalls = 10

// Client wraps the go-ethereum client with additional functionality
type Client struct {
	client             *ethclient.Client
	chainID            *big.Int
	maxConcurrentCalls int
	mu                 sync.RWMutex
}

// NewClient dials rpcURL and reads the chain ID
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}

	return newClient(ctx, client)
}

// NewClientFromRPC wraps an existing RPC connection, e.g. an in-process one
func NewClientFromRPC(ctx context.Context, c *rpc.Client) (*Client, error) {
	return newClient(ctx, ethclient.NewClient(c))
}

func newClient(ctx context.Context, client *ethclient.Client) (*Client, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	return &Client{
		client:             client,
		chainID:            chainID,
		maxConcurrentCalls: DefaultMaxConcurrentCalls,
	}, nil
}

// SetMaxConcurrentCalls changes the Multicall concurrency limit
func (c *Client) SetMaxConcurrentCalls(n int) {
	if n > 0 {
		c.maxConcurrentCalls = n
	}
}

// Close closes the underlying client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.Close()
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// CallContract executes a contract call against the latest block
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client.CallContract(ctx, msg, nil)
}

// BlockNumber returns the current block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client.BlockNumber(ctx)
}

// CallResult is the outcome of one call of a Multicall
type CallResult struct {
	Data []byte
	Err  error
}

// Multicall performs multiple contract calls concurrently, at most
// maxConcurrentCalls at a time. Failures are reported per call.
func (c *Client) Multicall(ctx context.Context, calls []ethereum.CallMsg) []CallResult {
	results := make([]CallResult, len(calls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrentCalls)

	for i, call := range calls {
		g.Go(func() error {
			data, err := c.CallContract(ctx, call)
			results[i] = CallResult{Data: data, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
