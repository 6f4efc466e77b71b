package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	ethclient "github.com/bimakw/swap-router/internal/infrastructure/ethereum"
)

// PairClient reads reserves and tokens from constant-product pair contracts
type PairClient struct {
	ethClient     *ethclient.Client
	reserveMethod string
	reserveData   []byte
}

// NewPairClient creates a pair client that reads reserves with reserveMethod
// (MethodGetReserves or MethodGetReserve). An empty method selects getReserves.
func NewPairClient(ethClient *ethclient.Client, reserveMethod string) (*PairClient, error) {
	if reserveMethod == "" {
		reserveMethod = MethodGetReserves
	}
	if reserveMethod != MethodGetReserves && reserveMethod != MethodGetReserve {
		return nil, fmt.Errorf("unsupported reserve method %q", reserveMethod)
	}

	data, err := pairABI.Pack(reserveMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", reserveMethod, err)
	}

	return &PairClient{
		ethClient:     ethClient,
		reserveMethod: reserveMethod,
		reserveData:   data,
	}, nil
}

// GetReserves fetches the current reserves of a pair. Both getter layouts
// start with the two reserves as 32-byte words, so only those are decoded.
func (c *PairClient) GetReserves(ctx context.Context, poolAddress string) (*big.Int, *big.Int, error) {
	if !common.IsHexAddress(poolAddress) {
		return nil, nil, fmt.Errorf("invalid pool address %q", poolAddress)
	}
	pair := common.HexToAddress(poolAddress)

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &pair,
		Data: c.reserveData,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get reserves of %s: %w", pair.Hex(), err)
	}

	if len(result) < 64 {
		return nil, nil, fmt.Errorf("%s of %s: %w", c.reserveMethod, pair.Hex(), ErrShortResponse)
	}

	reserve0 := new(big.Int).SetBytes(result[0:32])
	reserve1 := new(big.Int).SetBytes(result[32:64])

	return reserve0, reserve1, nil
}

// Tokens returns the checksummed token0 and token1 addresses of a pair
func (c *PairClient) Tokens(ctx context.Context, poolAddress string) (string, string, error) {
	if !common.IsHexAddress(poolAddress) {
		return "", "", fmt.Errorf("invalid pool address %q", poolAddress)
	}
	pair := common.HexToAddress(poolAddress)

	token0, err := c.callAddress(ctx, pair, "token0")
	if err != nil {
		return "", "", err
	}
	token1, err := c.callAddress(ctx, pair, "token1")
	if err != nil {
		return "", "", err
	}
	return token0.Hex(), token1.Hex(), nil
}

func (c *PairClient) callAddress(ctx context.Context, pair common.Address, method string) (common.Address, error) {
	data, err := pairABI.Pack(method)
	if err != nil {
		return common.Address{}, err
	}

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call %s on %s: %w", method, pair.Hex(), err)
	}

	return unpackAddress(pairABI.Unpack, method, result)
}

// unpackAddress decodes a single address output
func unpackAddress(unpack func(string, []byte) ([]interface{}, error), method string, result []byte) (common.Address, error) {
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("%s: %w", method, ErrShortResponse)
	}
	out, err := unpack(method, result)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s output type %T", method, out[0])
	}
	return addr, nil
}
