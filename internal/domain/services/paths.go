package services

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/bimakw/swap-router/internal/domain/entities"
)

// FindPaths returns every simple path from one token to another, in
// depth-first order over neighbor insertion order. A token routed to itself
// yields the single path [from]; unknown or disconnected tokens yield none.
func (g *TokenGraph) FindPaths(from, to string) [][]string {
	return g.FindPathsWithin(from, to, 0)
}

// FindPathsWithin is FindPaths limited to paths of at most maxHops pools.
// A maxHops of 0 means no limit.
func (g *TokenGraph) FindPathsWithin(from, to string, maxHops int) [][]string {
	if entities.NormalizeToken(from) == entities.NormalizeToken(to) {
		return [][]string{{entities.NormalizeToken(from)}}
	}

	src, ok := g.id(from)
	if !ok {
		return nil
	}
	dst, ok := g.id(to)
	if !ok {
		return nil
	}

	type frame struct {
		node    uint
		path    []uint
		visited *bitset.BitSet
	}

	visited := bitset.New(uint(len(g.tokens)))
	visited.Set(src)
	stack := []frame{{node: src, path: []uint{src}, visited: visited}}

	var paths [][]string
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node == dst {
			paths = append(paths, g.names(f.path))
			continue
		}
		if maxHops > 0 && len(f.path)-1 >= maxHops {
			continue
		}

		// reverse push so the first neighbor is explored first
		neighbors := g.neighbors[f.node]
		for i := len(neighbors) - 1; i >= 0; i-- {
			n := neighbors[i]
			if f.visited.Test(n) {
				continue
			}
			branch := f.visited.Clone()
			branch.Set(n)

			path := make([]uint, len(f.path)+1)
			copy(path, f.path)
			path[len(f.path)] = n

			stack = append(stack, frame{node: n, path: path, visited: branch})
		}
	}

	return paths
}

func (g *TokenGraph) names(ids []uint) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.tokens[id]
	}
	return out
}
