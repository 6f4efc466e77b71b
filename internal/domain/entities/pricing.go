package entities

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidFee is returned for a fee schedule that cannot price a swap
var ErrInvalidFee = errors.New("invalid fee schedule")

// FeeSchedule is the proportional trading fee of a constant-product pool,
// expressed as the share of the input kept after the fee (Numerator/Denominator).
type FeeSchedule struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultFeeSchedule is the 0.3% fee of Uniswap V2 style pools
var DefaultFeeSchedule = FeeSchedule{Numerator: 997, Denominator: 1000}

// NewFeeSchedule creates a validated fee schedule
func NewFeeSchedule(numerator, denominator uint64) (FeeSchedule, error) {
	f := FeeSchedule{Numerator: numerator, Denominator: denominator}
	if err := f.Validate(); err != nil {
		return FeeSchedule{}, err
	}
	return f, nil
}

// Validate checks that the fee keeps a positive share of the input, never more than all of it
func (f FeeSchedule) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("%w: denominator must be positive", ErrInvalidFee)
	}
	if f.Numerator == 0 || f.Numerator > f.Denominator {
		return fmt.Errorf("%w: numerator %d must be in (0, %d]", ErrInvalidFee, f.Numerator, f.Denominator)
	}
	return nil
}

// FeeBps returns the fee in basis points, truncated
func (f FeeSchedule) FeeBps() uint64 {
	if f.Denominator == 0 {
		return 0
	}
	return (f.Denominator - f.Numerator) * 10000 / f.Denominator
}

// AmountOut calculates the output of a single hop using the constant-product
// formula with the fee applied to the input:
//
//	amountInWithFee = amountIn * numerator
//	amountOut       = amountInWithFee * reserveOut / (reserveIn * denominator + amountInWithFee)
//
// Division truncates toward zero, matching the on-chain router.
func (f FeeSchedule) AmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if !positive(amountIn) || !positive(reserveIn) || !positive(reserveOut) {
		return big.NewInt(0)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, new(big.Int).SetUint64(f.Numerator))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)

	denominator := new(big.Int).Mul(reserveIn, new(big.Int).SetUint64(f.Denominator))
	denominator.Add(denominator, amountInWithFee)
	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}

	return numerator.Quo(numerator, denominator)
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
