package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPool is returned when a pool record cannot be used for routing
var ErrInvalidPool = errors.New("invalid pool")

// Pool represents a constant-product liquidity pool between two tokens.
// Reserves are not part of the record, they are read from chain whenever a
// route through the pool is priced.
type Pool struct {
	Address       string `json:"address" toml:"address"`
	Token0Address string `json:"token0Address" toml:"token0Address"`
	Token1Address string `json:"token1Address" toml:"token1Address"`
	Token0Name    string `json:"token0Name" toml:"token0Name"`
	Token1Name    string `json:"token1Name" toml:"token1Name"`
}

// NormalizeToken returns the canonical form used to compare token identifiers
func NormalizeToken(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Validate checks that the pool has an address and two distinct token identifiers
func (p Pool) Validate() error {
	t0 := NormalizeToken(p.Token0Address)
	t1 := NormalizeToken(p.Token1Address)

	switch {
	case strings.TrimSpace(p.Address) == "":
		return fmt.Errorf("%w: missing pool address", ErrInvalidPool)
	case t0 == "":
		return fmt.Errorf("%w: pool %s has no token0 address", ErrInvalidPool, p.Address)
	case t1 == "":
		return fmt.Errorf("%w: pool %s has no token1 address", ErrInvalidPool, p.Address)
	case t0 == t1:
		return fmt.Errorf("%w: pool %s pairs token %s with itself", ErrInvalidPool, p.Address, p.Token0Address)
	}
	return nil
}

// Token0Key returns the normalized token0 identifier
func (p Pool) Token0Key() string {
	return NormalizeToken(p.Token0Address)
}

// Token1Key returns the normalized token1 identifier
func (p Pool) Token1Key() string {
	return NormalizeToken(p.Token1Address)
}

// Connects reports whether the pool trades tokenA against tokenB in either direction
func (p Pool) Connects(tokenA, tokenB string) bool {
	a, b := NormalizeToken(tokenA), NormalizeToken(tokenB)
	return (a == p.Token0Key() && b == p.Token1Key()) || (a == p.Token1Key() && b == p.Token0Key())
}

// Original returns the identifier exactly as the pool record spells it.
// The second result is false when token is not part of the pool.
func (p Pool) Original(token string) (string, bool) {
	switch NormalizeToken(token) {
	case p.Token0Key():
		return p.Token0Address, true
	case p.Token1Key():
		return p.Token1Address, true
	}
	return "", false
}

// Counterpart returns the other token of the pool and its display name
func (p Pool) Counterpart(token string) (address, name string, ok bool) {
	switch NormalizeToken(token) {
	case p.Token0Key():
		return p.Token1Address, p.Token1Name, true
	case p.Token1Key():
		return p.Token0Address, p.Token0Name, true
	}
	return "", "", false
}

// IsToken0 reports whether token is the pool's token0, which decides the
// orientation of the (reserve0, reserve1) pair returned by the contract.
func (p Pool) IsToken0(token string) bool {
	return NormalizeToken(token) == p.Token0Key()
}
