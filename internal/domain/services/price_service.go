package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bimakw/swap-router/internal/domain/entities"
	"github.com/bimakw/swap-router/internal/infrastructure/dex"
)

// PriceService prices token paths hop by hop against fresh pool reserves
type PriceService struct {
	reserves dex.ReserveSource
	fee      entities.FeeSchedule
}

func NewPriceService(reserves dex.ReserveSource, fee entities.FeeSchedule) *PriceService {
	return &PriceService{
		reserves: reserves,
		fee:      fee,
	}
}

// Fee returns the fee schedule every hop is priced with
func (s *PriceService) Fee() entities.FeeSchedule {
	return s.fee
}

// PricePath reads the reserves of every hop's pool along path, then swaps
// amountIn through them. A hop without a pool in the graph prices the whole
// path at zero. A failed reserve read is returned as an error.
func (s *PriceService) PricePath(ctx context.Context, graph *TokenGraph, path []string, amountIn *big.Int) (*entities.Route, error) {
	route := &entities.Route{
		Path:        renderPath(graph, path),
		Hops:        make([]entities.Hop, 0, max(len(path)-1, 0)),
		AmountIn:    new(big.Int).Set(amountIn),
		PriceImpact: big.NewInt(0),
		Fee:         s.fee,
	}

	for i := 0; i+1 < len(path); i++ {
		pool, ok := graph.Pool(path[i], path[i+1])
		if !ok {
			route.Hops = nil
			route.AmountOut = big.NewInt(0)
			return route, nil
		}

		reserve0, reserve1, err := s.reserves.GetReserves(ctx, pool.Address)
		if err != nil {
			return nil, fmt.Errorf("reserves of pool %s: %w", pool.Address, err)
		}

		reserveIn, reserveOut := reserve0, reserve1
		if !pool.IsToken0(path[i]) {
			reserveIn, reserveOut = reserve1, reserve0
		}

		tokenIn, _ := pool.Original(path[i])
		tokenOut, _ := pool.Original(path[i+1])
		route.Hops = append(route.Hops, entities.Hop{
			Pool:       pool,
			TokenIn:    tokenIn,
			TokenOut:   tokenOut,
			ReserveIn:  reserveIn,
			ReserveOut: reserveOut,
		})
	}

	// a single-token path swaps nothing
	if len(route.Hops) == 0 {
		route.AmountOut = new(big.Int).Set(amountIn)
		return route, nil
	}
	route.AmountOut = route.CalculateAmountOut()
	return route, nil
}

// renderPath spells every token the way the pool records along the path do.
// Tokens without a pool keep their normalized form.
func renderPath(graph *TokenGraph, path []string) []string {
	out := make([]string, len(path))
	copy(out, path)

	for i := 0; i+1 < len(path); i++ {
		pool, ok := graph.Pool(path[i], path[i+1])
		if !ok {
			continue
		}
		if name, ok := pool.Original(path[i]); ok {
			out[i] = name
		}
		if name, ok := pool.Original(path[i+1]); ok {
			out[i+1] = name
		}
	}

	return out
}
