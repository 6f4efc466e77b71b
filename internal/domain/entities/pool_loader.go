package entities

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// PoolsConfig represents the pools file structure (JSON or TOML)
type PoolsConfig struct {
	Pools []Pool `json:"pools" toml:"pools"`
}

// PoolRegistry holds the pools a deployment can route through, in load order
type PoolRegistry struct {
	mu            sync.RWMutex
	pools         []Pool
	wrappedNative string
}

// NewPoolRegistry creates a registry. wrappedNative is the token address the
// native coin is routed as; it may be empty when the chain has no wrapper.
func NewPoolRegistry(wrappedNative string) *PoolRegistry {
	return &PoolRegistry{
		pools:         make([]Pool, 0),
		wrappedNative: wrappedNative,
	}
}

// LoadFromFile replaces the registry contents with the pools of a JSON or
// TOML file, picked by extension
func (r *PoolRegistry) LoadFromFile(path string) error {
	pools, err := LoadPoolsFile(path)
	if err != nil {
		return err
	}
	return r.Replace(pools)
}

// LoadPoolsFile reads the pools of a JSON or TOML file without validating them
func LoadPoolsFile(path string) ([]Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pools file: %w", err)
	}

	var config PoolsConfig
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON pools file: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML pools file: %w", err)
		}
	}

	if len(config.Pools) == 0 {
		return nil, fmt.Errorf("no pools in %s", path)
	}
	return config.Pools, nil
}

// Replace swaps the registry contents for pools, validating all of them first
func (r *PoolRegistry) Replace(pools []Pool) error {
	for i, pool := range pools {
		if err := pool.Validate(); err != nil {
			return fmt.Errorf("pool #%d: %w", i, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools = append(make([]Pool, 0, len(pools)), pools...)
	return nil
}

// Pools returns a copy of the registered pools in load order
func (r *PoolRegistry) Pools() []Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Pool(nil), r.pools...)
}

// Count returns the number of registered pools
func (r *PoolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// ResolveToken maps the native coin symbol to the wrapped native token and
// returns any other identifier unchanged
func (r *PoolRegistry) ResolveToken(id string) string {
	if IsNative(id) && r.wrappedNative != "" {
		return r.wrappedNative
	}
	return id
}

// AvailableTokens lists every token held by a registered pool, in first-seen
// order, followed by the native coin. A later pool's name wins for a token.
func (r *PoolRegistry) AvailableTokens() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index := make(map[string]int)
	tokens := make([]Token, 0, len(r.pools)*2+1)
	add := func(address, name string) {
		key := NormalizeToken(address)
		if i, ok := index[key]; ok {
			tokens[i].Name = name
			return
		}
		index[key] = len(tokens)
		tokens = append(tokens, Token{Address: address, Name: name})
	}

	for _, pool := range r.pools {
		add(pool.Token0Address, pool.Token0Name)
		add(pool.Token1Address, pool.Token1Name)
	}
	add(NativeToken, NativeToken)

	return tokens
}

// CounterpartTokens lists the tokens that share a pool with token
func (r *PoolRegistry) CounterpartTokens(token string) []Token {
	effective := r.ResolveToken(token)

	r.mu.RLock()
	defer r.mu.RUnlock()

	index := make(map[string]int)
	tokens := make([]Token, 0)
	for _, pool := range r.pools {
		address, name, ok := pool.Counterpart(effective)
		if !ok {
			continue
		}
		key := NormalizeToken(address)
		if i, seen := index[key]; seen {
			tokens[i].Name = name
			continue
		}
		index[key] = len(tokens)
		tokens = append(tokens, Token{Address: address, Name: name})
	}

	return tokens
}

// FindPoolByTokens returns the first pool trading tokenA against tokenB
func (r *PoolRegistry) FindPoolByTokens(tokenA, tokenB string) (Pool, bool) {
	if strings.TrimSpace(tokenA) == "" || strings.TrimSpace(tokenB) == "" {
		return Pool{}, false
	}
	a, b := r.ResolveToken(tokenA), r.ResolveToken(tokenB)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pool := range r.pools {
		if pool.Connects(a, b) {
			return pool, true
		}
	}
	return Pool{}, false
}
