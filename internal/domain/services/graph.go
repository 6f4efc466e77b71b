package services

import (
	"fmt"

	"github.com/bimakw/swap-router/internal/domain/entities"
)

// TokenGraph is the undirected token adjacency derived from a pool list.
// Tokens get dense ids in first-seen order; neighbors keep insertion order.
type TokenGraph struct {
	ids       map[string]uint
	tokens    []string
	neighbors [][]uint
	edges     []map[uint]entities.Pool
}

// BuildTokenGraph validates every pool and indexes it under both of its
// tokens. When several pools connect the same pair the last one wins, the
// neighbor keeping the position of the first.
func BuildTokenGraph(pools []entities.Pool) (*TokenGraph, error) {
	g := &TokenGraph{
		ids: make(map[string]uint, len(pools)*2),
	}

	for i, pool := range pools {
		if err := pool.Validate(); err != nil {
			return nil, fmt.Errorf("pool #%d (%s): %w", i, pool.Address, err)
		}

		a := g.intern(pool.Token0Key())
		b := g.intern(pool.Token1Key())
		g.addEdge(a, b, pool)
		g.addEdge(b, a, pool)
	}

	return g, nil
}

func (g *TokenGraph) intern(token string) uint {
	if id, ok := g.ids[token]; ok {
		return id
	}
	id := uint(len(g.tokens))
	g.ids[token] = id
	g.tokens = append(g.tokens, token)
	g.neighbors = append(g.neighbors, nil)
	g.edges = append(g.edges, make(map[uint]entities.Pool))
	return id
}

func (g *TokenGraph) addEdge(from, to uint, pool entities.Pool) {
	if _, ok := g.edges[from][to]; !ok {
		g.neighbors[from] = append(g.neighbors[from], to)
	}
	g.edges[from][to] = pool
}

func (g *TokenGraph) id(token string) (uint, bool) {
	id, ok := g.ids[entities.NormalizeToken(token)]
	return id, ok
}

// Pool returns the pool connecting tokenA and tokenB
func (g *TokenGraph) Pool(tokenA, tokenB string) (entities.Pool, bool) {
	a, ok := g.id(tokenA)
	if !ok {
		return entities.Pool{}, false
	}
	b, ok := g.id(tokenB)
	if !ok {
		return entities.Pool{}, false
	}
	pool, ok := g.edges[a][b]
	return pool, ok
}

// Neighbors returns the normalized tokens adjacent to token, in insertion order
func (g *TokenGraph) Neighbors(token string) []string {
	id, ok := g.id(token)
	if !ok {
		return nil
	}
	out := make([]string, len(g.neighbors[id]))
	for i, n := range g.neighbors[id] {
		out[i] = g.tokens[n]
	}
	return out
}

// Tokens returns every normalized token in first-seen order
func (g *TokenGraph) Tokens() []string {
	out := make([]string, len(g.tokens))
	copy(out, g.tokens)
	return out
}

// Len returns the number of distinct tokens
func (g *TokenGraph) Len() int {
	return len(g.tokens)
}
