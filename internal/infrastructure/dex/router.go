package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	ethclient "github.com/bimakw/swap-router/internal/infrastructure/ethereum"
)

// RouterClient reads from the swap router contract the front-end submits swaps to
type RouterClient struct {
	ethClient *ethclient.Client
	router    common.Address
}

// NewRouterClient creates a router client
func NewRouterClient(ethClient *ethclient.Client, router common.Address) *RouterClient {
	return &RouterClient{
		ethClient: ethClient,
		router:    router,
	}
}

// Address returns the router contract address
func (c *RouterClient) Address() common.Address {
	return c.router
}

// FactoryAddress returns the factory the router is bound to. Routers of this
// deployment expose getFactoryAddress(); stock Uniswap V2 routers expose factory().
func (c *RouterClient) FactoryAddress(ctx context.Context) (common.Address, error) {
	addr, err := c.callAddress(ctx, "getFactoryAddress")
	if err == nil {
		return addr, nil
	}

	addr, fallbackErr := c.callAddress(ctx, "factory")
	if fallbackErr != nil {
		return common.Address{}, fmt.Errorf("failed to read factory address: %w", err)
	}
	return addr, nil
}

func (c *RouterClient) callAddress(ctx context.Context, method string) (common.Address, error) {
	data, err := routerABI.Pack(method)
	if err != nil {
		return common.Address{}, err
	}

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &c.router, Data: data})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call %s: %w", method, err)
	}

	return unpackAddress(routerABI.Unpack, method, result)
}

// AmountsOut asks the router to price amountIn along path, one amount per token
func (c *RouterClient) AmountsOut(ctx context.Context, amountIn *big.Int, path []string) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path needs at least two tokens, got %d", len(path))
	}

	addresses := make([]common.Address, len(path))
	for i, token := range path {
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("invalid token address %q in path", token)
		}
		addresses[i] = common.HexToAddress(token)
	}

	data, err := routerABI.Pack("getAmountsOut", amountIn, addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode getAmountsOut: %w", err)
	}

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &c.router, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to call getAmountsOut: %w", err)
	}

	out, err := routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode getAmountsOut: %w", err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getAmountsOut output type %T", out[0])
	}

	return amounts, nil
}
