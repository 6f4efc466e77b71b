package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/bimakw/swap-router/internal/domain/entities"
	ethclient "github.com/bimakw/swap-router/internal/infrastructure/ethereum"
)

// FactoryClient discovers the pairs created by a Uniswap V2 style factory
type FactoryClient struct {
	ethClient *ethclient.Client
	factory   common.Address
	maxPairs  int
	logger    zerolog.Logger
}

// NewFactoryClient creates a factory client. maxPairs caps discovery, 0 reads every pair.
func NewFactoryClient(ethClient *ethclient.Client, factory common.Address, maxPairs int, logger zerolog.Logger) *FactoryClient {
	return &FactoryClient{
		ethClient: ethClient,
		factory:   factory,
		maxPairs:  maxPairs,
		logger:    logger,
	}
}

// Address returns the factory contract address
func (c *FactoryClient) Address() common.Address {
	return c.factory
}

// PairCount returns allPairsLength()
func (c *FactoryClient) PairCount(ctx context.Context) (int, error) {
	data, err := factoryABI.Pack("allPairsLength")
	if err != nil {
		return 0, err
	}

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &c.factory, Data: data})
	if err != nil {
		return 0, fmt.Errorf("failed to call allPairsLength: %w", err)
	}
	if len(result) < 32 {
		return 0, fmt.Errorf("allPairsLength: %w", ErrShortResponse)
	}

	n := new(big.Int).SetBytes(result[:32])
	if !n.IsInt64() {
		return 0, fmt.Errorf("allPairsLength out of range: %s", n)
	}
	return int(n.Int64()), nil
}

// DiscoverPools lists the factory's pairs as pools, in creation order. Pairs
// whose token reads fail are skipped; token names fall back to the address
// when symbol() cannot be decoded.
func (c *FactoryClient) DiscoverPools(ctx context.Context) ([]entities.Pool, error) {
	count, err := c.PairCount(ctx)
	if err != nil {
		return nil, err
	}
	if c.maxPairs > 0 && count > c.maxPairs {
		c.logger.Warn().Int("pairs", count).Int("max", c.maxPairs).Msg("Factory has more pairs than the discovery limit")
		count = c.maxPairs
	}

	pairs, err := c.pairAddresses(ctx, count)
	if err != nil {
		return nil, err
	}

	// token0/token1 for every pair, interleaved
	token0Data, _ := pairABI.Pack("token0")
	token1Data, _ := pairABI.Pack("token1")
	calls := make([]ethereum.CallMsg, 0, len(pairs)*2)
	for i := range pairs {
		calls = append(calls,
			ethereum.CallMsg{To: &pairs[i], Data: token0Data},
			ethereum.CallMsg{To: &pairs[i], Data: token1Data},
		)
	}
	tokenResults := c.ethClient.Multicall(ctx, calls)

	type pairTokens struct {
		pair           common.Address
		token0, token1 common.Address
	}
	resolved := make([]pairTokens, 0, len(pairs))
	symbols := make(map[common.Address]string)
	for i, pair := range pairs {
		t0, err0 := decodeAddressResult(pairABI.Unpack, "token0", tokenResults[2*i])
		t1, err1 := decodeAddressResult(pairABI.Unpack, "token1", tokenResults[2*i+1])
		if err0 != nil || err1 != nil {
			c.logger.Warn().
				Str("pair", pair.Hex()).
				AnErr("token0_err", err0).
				AnErr("token1_err", err1).
				Msg("Skipping pair with unreadable tokens")
			continue
		}
		resolved = append(resolved, pairTokens{pair: pair, token0: t0, token1: t1})
		symbols[t0] = ""
		symbols[t1] = ""
	}

	c.resolveSymbols(ctx, symbols)

	pools := make([]entities.Pool, 0, len(resolved))
	for _, p := range resolved {
		pools = append(pools, entities.Pool{
			Address:       p.pair.Hex(),
			Token0Address: p.token0.Hex(),
			Token1Address: p.token1.Hex(),
			Token0Name:    symbols[p.token0],
			Token1Name:    symbols[p.token1],
		})
	}

	c.logger.Info().
		Str("factory", c.factory.Hex()).
		Int("pairs", count).
		Int("pools", len(pools)).
		Msg("Discovered pools")

	return pools, nil
}

func (c *FactoryClient) pairAddresses(ctx context.Context, count int) ([]common.Address, error) {
	calls := make([]ethereum.CallMsg, count)
	for i := 0; i < count; i++ {
		data, err := factoryABI.Pack("allPairs", big.NewInt(int64(i)))
		if err != nil {
			return nil, fmt.Errorf("failed to encode allPairs(%d): %w", i, err)
		}
		calls[i] = ethereum.CallMsg{To: &c.factory, Data: data}
	}

	results := c.ethClient.Multicall(ctx, calls)
	pairs := make([]common.Address, 0, count)
	for i, res := range results {
		addr, err := decodeAddressResult(factoryABI.Unpack, "allPairs", res)
		if err != nil {
			c.logger.Warn().Int("index", i).Err(err).Msg("Skipping unreadable pair index")
			continue
		}
		pairs = append(pairs, addr)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return pairs, nil
}

func (c *FactoryClient) resolveSymbols(ctx context.Context, symbols map[common.Address]string) {
	tokens := make([]common.Address, 0, len(symbols))
	for token := range symbols {
		tokens = append(tokens, token)
	}

	symbolData, _ := erc20ABI.Pack("symbol")
	calls := make([]ethereum.CallMsg, len(tokens))
	for i := range tokens {
		calls[i] = ethereum.CallMsg{To: &tokens[i], Data: symbolData}
	}

	for i, res := range c.ethClient.Multicall(ctx, calls) {
		symbols[tokens[i]] = tokens[i].Hex()
		if res.Err != nil {
			continue
		}
		out, err := erc20ABI.Unpack("symbol", res.Data)
		if err != nil || len(out) == 0 {
			continue
		}
		if s, ok := out[0].(string); ok && s != "" {
			symbols[tokens[i]] = s
		}
	}
}

func decodeAddressResult(unpack func(string, []byte) ([]interface{}, error), method string, res ethclient.CallResult) (common.Address, error) {
	if res.Err != nil {
		return common.Address{}, res.Err
	}
	return unpackAddress(unpack, method, res.Data)
}
