package entities

import (
	"math/big"
)

// MaxBps is 100% in basis points
const MaxBps = 10000

// Hop represents a single swap step in a route, together with the reserves
// that were read when the route was priced
type Hop struct {
	Pool       Pool     `json:"pool"`
	TokenIn    string   `json:"tokenIn"`
	TokenOut   string   `json:"tokenOut"`
	ReserveIn  *big.Int `json:"reserveIn"`
	ReserveOut *big.Int `json:"reserveOut"`
	AmountIn   *big.Int `json:"amountIn"`
	AmountOut  *big.Int `json:"amountOut"`
}

// Route represents a swap path from the first token of Path to the last one
type Route struct {
	Path         []string    `json:"path"`
	Hops         []Hop       `json:"hops"`
	AmountIn     *big.Int    `json:"amountIn"`
	AmountOut    *big.Int    `json:"amountOut"`
	PriceImpact  *big.Int    `json:"priceImpact"` // In basis points (e.g., 50 = 0.5%)
	MinAmountOut *big.Int    `json:"minAmountOut,omitempty"`
	SlippageBps  uint64      `json:"slippageBps,omitempty"`
	Fee          FeeSchedule `json:"-"`
}

// NoRoute returns the zero-output route used when no path connects the two tokens
func NoRoute(fromToken, toToken string, amountIn *big.Int) *Route {
	return &Route{
		Path:         []string{fromToken, toToken},
		AmountIn:     copyInt(amountIn),
		AmountOut:    big.NewInt(0),
		PriceImpact:  big.NewInt(0),
		MinAmountOut: big.NewInt(0),
	}
}

// Viable reports whether swapping along the route yields any output.
// A non-viable route must not be offered as a swap.
func (r *Route) Viable() bool {
	return r != nil && r.AmountOut != nil && r.AmountOut.Sign() > 0
}

// CalculateAmountOut swaps AmountIn through the recorded hop reserves,
// filling in each hop's amounts, and returns the final output. Once a hop
// yields nothing the remaining hops carry zero.
func (r *Route) CalculateAmountOut() *big.Int {
	if len(r.Hops) == 0 || r.AmountIn == nil {
		return big.NewInt(0)
	}

	currentAmount := new(big.Int).Set(r.AmountIn)
	for i := range r.Hops {
		hop := &r.Hops[i]
		hop.AmountIn = currentAmount
		hop.AmountOut = r.Fee.AmountOut(currentAmount, hop.ReserveIn, hop.ReserveOut)
		currentAmount = hop.AmountOut
	}

	return new(big.Int).Set(currentAmount)
}

// CalculatePriceImpact calculates the price impact in basis points
// Price impact = (spotAmount - actualAmount) / spotAmount * 10000
func (r *Route) CalculatePriceImpact() *big.Int {
	if len(r.Hops) == 0 || r.AmountIn == nil || r.AmountIn.Sign() == 0 {
		return big.NewInt(0)
	}

	spotAmount := r.calculateSpotAmount()
	if spotAmount.Sign() == 0 {
		return big.NewInt(0)
	}

	actualAmount := r.AmountOut
	if actualAmount == nil || actualAmount.Sign() == 0 {
		return big.NewInt(MaxBps) // 100% price impact if no output
	}

	diff := new(big.Int).Sub(spotAmount, actualAmount)
	if diff.Sign() <= 0 {
		return big.NewInt(0)
	}

	impactScaled := new(big.Int).Mul(diff, big.NewInt(MaxBps))
	return impactScaled.Quo(impactScaled, spotAmount)
}

// calculateSpotAmount is the output at the marginal price of every hop, fee
// included, so that the impact only measures the reserve movement
func (r *Route) calculateSpotAmount() *big.Int {
	num := new(big.Int).Set(r.AmountIn)
	den := big.NewInt(1)
	feeNum := new(big.Int).SetUint64(r.Fee.Numerator)
	feeDen := new(big.Int).SetUint64(r.Fee.Denominator)

	for _, hop := range r.Hops {
		if !positive(hop.ReserveIn) || !positive(hop.ReserveOut) {
			return big.NewInt(0)
		}
		num.Mul(num, hop.ReserveOut)
		num.Mul(num, feeNum)
		den.Mul(den, hop.ReserveIn)
		den.Mul(den, feeDen)
	}
	if den.Sign() == 0 {
		return big.NewInt(0)
	}

	return num.Quo(num, den)
}

// ApplySlippage sets MinAmountOut to AmountOut reduced by slippageBps,
// the minimum a swap along this route should accept
func (r *Route) ApplySlippage(slippageBps uint64) {
	if slippageBps > MaxBps {
		slippageBps = MaxBps
	}
	r.SlippageBps = slippageBps

	if r.AmountOut == nil {
		r.MinAmountOut = big.NewInt(0)
		return
	}
	minOut := new(big.Int).Mul(r.AmountOut, new(big.Int).SetUint64(MaxBps-slippageBps))
	r.MinAmountOut = minOut.Quo(minOut, big.NewInt(MaxBps))
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
