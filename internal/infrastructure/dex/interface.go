package dex

import (
	"context"
	"math/big"
)

// ReserveSource reads the current reserves of a constant-product pool.
// The reserves are returned in the pool's token0/token1 order.
type ReserveSource interface {
	GetReserves(ctx context.Context, poolAddress string) (reserve0, reserve1 *big.Int, err error)
}

// ReserveSourceFunc adapts a function to a ReserveSource
type ReserveSourceFunc func(ctx context.Context, poolAddress string) (*big.Int, *big.Int, error)

// GetReserves calls f
func (f ReserveSourceFunc) GetReserves(ctx context.Context, poolAddress string) (*big.Int, *big.Int, error) {
	return f(ctx, poolAddress)
}
