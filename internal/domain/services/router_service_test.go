package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/assert"

	"github.com/bimakw/swap-router/internal/domain/entities"
)

// fakeReserves is a ReserveSource backed by a map, keyed by pool address
type fakeReserves struct {
	mu          sync.Mutex
	reserves    map[string][2]*big.Int
	failing     map[string]error
	delay       time.Duration
	calls       int
	inFlight    int
	maxInFlight int
}

func newFakeReserves() *fakeReserves {
	return &fakeReserves{
		reserves: make(map[string][2]*big.Int),
		failing:  make(map[string]error),
	}
}

func (f *fakeReserves) set(pool string, reserve0, reserve1 int64) {
	f.reserves[pool] = [2]*big.Int{big.NewInt(reserve0), big.NewInt(reserve1)}
}

func (f *fakeReserves) GetReserves(ctx context.Context, pool string) (*big.Int, *big.Int, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if err, ok := f.failing[pool]; ok {
		return nil, nil, err
	}
	r, ok := f.reserves[pool]
	if !ok {
		return nil, nil, fmt.Errorf("unknown pool %s", pool)
	}
	return r[0], r[1], nil
}

func pool(address, token0, token1 string) entities.Pool {
	return entities.Pool{Address: address, Token0Address: token0, Token1Address: token1}
}

func newTestRouter(reserves *fakeReserves, opts Options) *RouterService {
	return NewRouterService(NewPriceService(reserves, entities.DefaultFeeSchedule), opts, zerolog.Nop())
}

const (
	tokA = "0xAAAA"
	tokB = "0xBBBB"
	tokC = "0xCCCC"
	tokD = "0xDDDD"
)

// diamondPools connects a-b, a-c, b-d, c-d and b-c
func diamondPools() []entities.Pool {
	return []entities.Pool{
		pool("0xP1", tokA, tokB),
		pool("0xP2", tokA, tokC),
		pool("0xP3", tokB, tokD),
		pool("0xP4", tokC, tokD),
		pool("0xP5", tokB, tokC),
	}
}

func TestBuildTokenGraphSymmetry(t *testing.T) {
	pools := diamondPools()
	g, err := BuildTokenGraph(pools)
	assert.NoError(t, err)
	assert.Equal(t, g.Len(), 4)

	for _, p := range pools {
		ab, ok := g.Pool(p.Token0Address, p.Token1Address)
		assert.True(t, ok)
		ba, ok := g.Pool(p.Token1Address, p.Token0Address)
		assert.True(t, ok)
		assert.Equal(t, ab.Address, p.Address)
		assert.Equal(t, ba.Address, p.Address)
	}

	_, ok := g.Pool(tokA, tokD)
	assert.False(t, ok)
	assert.DeepEqual(t, g.Tokens(), []string{"0xaaaa", "0xbbbb", "0xcccc", "0xdddd"})
}

func TestBuildTokenGraphLastWriteWins(t *testing.T) {
	g, err := BuildTokenGraph([]entities.Pool{
		pool("0xP1", tokA, tokB),
		pool("0xP2", tokA, tokC),
		pool("0xP3", "0xbbbb", "0xaaaa"),
	})
	assert.NoError(t, err)

	p, ok := g.Pool(tokA, tokB)
	assert.True(t, ok)
	assert.Equal(t, p.Address, "0xP3")

	// b keeps its first insertion position
	assert.DeepEqual(t, g.Neighbors(tokA), []string{"0xbbbb", "0xcccc"})
	assert.DeepEqual(t, g.Neighbors(tokB), []string{"0xaaaa"})
}

func TestBuildTokenGraphInvalidPool(t *testing.T) {
	tests := []struct {
		name string
		pool entities.Pool
	}{
		{"missing token1", pool("0xP1", tokA, "")},
		{"missing token0", pool("0xP1", " ", tokB)},
		{"same token", pool("0xP1", tokA, "0xaaaa")},
		{"missing address", pool("", tokA, tokB)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTokenGraph([]entities.Pool{pool("0xP0", tokC, tokD), tt.pool})
			assert.Error(t, err)
			assert.True(t, errors.Is(err, entities.ErrInvalidPool))
		})
	}
}

func TestFindPathsOrder(t *testing.T) {
	g, err := BuildTokenGraph(diamondPools())
	assert.NoError(t, err)

	want := [][]string{
		{"0xaaaa", "0xbbbb", "0xdddd"},
		{"0xaaaa", "0xbbbb", "0xcccc", "0xdddd"},
		{"0xaaaa", "0xcccc", "0xdddd"},
		{"0xaaaa", "0xcccc", "0xbbbb", "0xdddd"},
	}
	assert.DeepEqual(t, g.FindPaths("0xAaAa", tokD), want)
}

func TestFindPathsSimple(t *testing.T) {
	// complete graph on five tokens, full of cycles
	tokens := []string{tokA, tokB, tokC, tokD, "0xEEEE"}
	var pools []entities.Pool
	for i := range tokens {
		for j := i + 1; j < len(tokens); j++ {
			pools = append(pools, pool(fmt.Sprintf("0xP%d%d", i, j), tokens[i], tokens[j]))
		}
	}
	g, err := BuildTokenGraph(pools)
	assert.NoError(t, err)

	paths := g.FindPaths(tokA, "0xEEEE")
	// 1 + 3 + 3*2 + 3*2*1 simple paths through the three middle tokens
	assert.Equal(t, len(paths), 16)
	for _, path := range paths {
		seen := make(map[string]bool)
		for _, token := range path {
			assert.False(t, seen[token])
			seen[token] = true
		}
		assert.Equal(t, path[0], "0xaaaa")
		assert.Equal(t, path[len(path)-1], "0xeeee")
	}
}

func TestFindPathsEdgeCases(t *testing.T) {
	g, err := BuildTokenGraph([]entities.Pool{pool("0xP1", tokA, tokB), pool("0xP2", tokC, tokD)})
	assert.NoError(t, err)

	assert.DeepEqual(t, g.FindPaths(tokA, "0xaaaa"), [][]string{{"0xaaaa"}})
	assert.Equal(t, len(g.FindPaths(tokA, tokD)), 0)
	assert.Equal(t, len(g.FindPaths(tokA, "0xFFFF")), 0)
	assert.Equal(t, len(g.FindPaths("0xFFFF", tokA)), 0)
}

func TestFindPathsWithin(t *testing.T) {
	g, err := BuildTokenGraph(diamondPools())
	assert.NoError(t, err)

	assert.DeepEqual(t, g.FindPathsWithin(tokA, tokD, 2), [][]string{
		{"0xaaaa", "0xbbbb", "0xdddd"},
		{"0xaaaa", "0xcccc", "0xdddd"},
	})
	assert.Equal(t, len(g.FindPathsWithin(tokA, tokD, 1)), 0)
	assert.Equal(t, len(g.FindPathsWithin(tokA, tokD, 0)), 4)
}

func TestPricePathOrientation(t *testing.T) {
	reserves := newFakeReserves()
	// token0 is b: 2000 b against 1000 a
	reserves.set("0xP1", 2000, 1000)
	g, err := BuildTokenGraph([]entities.Pool{pool("0xP1", tokB, tokA)})
	assert.NoError(t, err)

	ps := NewPriceService(reserves, entities.DefaultFeeSchedule)
	route, err := ps.PricePath(context.Background(), g, []string{"0xaaaa", "0xbbbb"}, big.NewInt(100))
	assert.NoError(t, err)

	// 99700 * 2000 / (1000 * 1000 + 99700)
	assert.Equal(t, route.AmountOut.Int64(), int64(181))
	assert.Equal(t, route.Hops[0].ReserveIn.Int64(), int64(1000))
	assert.Equal(t, route.Hops[0].ReserveOut.Int64(), int64(2000))
	assert.DeepEqual(t, route.Path, []string{tokA, tokB})
}

func TestPricePathMissingPool(t *testing.T) {
	g, err := BuildTokenGraph([]entities.Pool{pool("0xP1", tokA, tokB)})
	assert.NoError(t, err)

	ps := NewPriceService(newFakeReserves(), entities.DefaultFeeSchedule)
	route, err := ps.PricePath(context.Background(), g, []string{"0xaaaa", "0xdddd"}, big.NewInt(100))
	assert.NoError(t, err)
	assert.Equal(t, route.AmountOut.Sign(), 0)
}

// indirectPools has a direct a-b pool and a deeper a-c-b route
func indirectPools() ([]entities.Pool, *fakeReserves) {
	reserves := newFakeReserves()
	reserves.set("0xDirect", 1000, 1000)
	reserves.set("0xAC", 1000, 10000)
	reserves.set("0xCB", 10000, 10000)
	return []entities.Pool{
		pool("0xDirect", tokA, tokB),
		pool("0xAC", tokA, tokC),
		pool("0xCB", tokC, tokB),
	}, reserves
}

func TestFindOptimalPathPrefersBetterIndirectRoute(t *testing.T) {
	pools, reserves := indirectPools()
	router := newTestRouter(reserves, Options{})

	route, err := router.FindOptimalPath(context.Background(), pools, "0xaaaa", "0xbbbb", big.NewInt(100))
	assert.NoError(t, err)

	// a->c: 99700*10000/1099700 = 906, c->b: 903282*10000/10903282 = 828
	assert.DeepEqual(t, route.Path, []string{tokA, tokC, tokB})
	assert.Equal(t, route.AmountOut.Int64(), int64(828))
	assert.Equal(t, len(route.Hops), 2)
	assert.True(t, route.Viable())

	// every hop of every path reads its reserves: 1 + 2
	assert.Equal(t, reserves.calls, 3)
}

func TestFindOptimalPathDirect(t *testing.T) {
	reserves := newFakeReserves()
	reserves.set("0xP1", 1000, 1000)
	router := newTestRouter(reserves, Options{})

	route, err := router.FindOptimalPath(context.Background(), []entities.Pool{pool("0xP1", tokA, tokB)}, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.Equal(t, route.AmountOut.Int64(), int64(90))
	assert.Equal(t, route.PriceImpact.Int64(), int64(909))
}

func TestFindOptimalPathFailureIsolation(t *testing.T) {
	pools, reserves := indirectPools()
	// the direct pool would win if it could be read
	reserves.set("0xDirect", 1000, 1_000_000)
	reserves.failing["0xDirect"] = errors.New("rpc unavailable")
	router := newTestRouter(reserves, Options{})

	route, err := router.FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.DeepEqual(t, route.Path, []string{tokA, tokC, tokB})
	assert.Equal(t, route.AmountOut.Int64(), int64(828))
}

func TestFindOptimalPathNoRoute(t *testing.T) {
	router := newTestRouter(newFakeReserves(), Options{})
	pools := []entities.Pool{pool("0xP1", tokA, tokB), pool("0xP2", tokC, tokD)}

	route, err := router.FindOptimalPath(context.Background(), pools, "0xaaaa", "0xDdDd", big.NewInt(100))
	assert.NoError(t, err)
	assert.DeepEqual(t, route.Path, []string{"0xaaaa", "0xDdDd"})
	assert.Equal(t, route.AmountOut.Sign(), 0)
	assert.False(t, route.Viable())

	route, err = router.FindOptimalPath(context.Background(), nil, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.DeepEqual(t, route.Path, []string{tokA, tokB})
	assert.False(t, route.Viable())
}

func TestFindOptimalPathSameToken(t *testing.T) {
	router := newTestRouter(newFakeReserves(), Options{})

	route, err := router.FindOptimalPath(context.Background(), diamondPools(), tokA, "0xaaaa", big.NewInt(100))
	assert.NoError(t, err)
	assert.DeepEqual(t, route.Path, []string{tokA})
	assert.Equal(t, route.AmountOut.Int64(), int64(100))
}

func TestFindOptimalPathAllZero(t *testing.T) {
	pools, reserves := indirectPools()
	reserves.set("0xDirect", 0, 0)
	reserves.set("0xAC", 0, 1000)
	router := newTestRouter(reserves, Options{})

	route, err := router.FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	// first enumerated path with zero output
	assert.DeepEqual(t, route.Path, []string{tokA, tokB})
	assert.Equal(t, route.AmountOut.Sign(), 0)
	assert.False(t, route.Viable())
}

func TestFindOptimalPathTieKeepsFirst(t *testing.T) {
	reserves := newFakeReserves()
	for _, p := range []string{"0xAC", "0xCB", "0xAD", "0xDB"} {
		reserves.set(p, 5000, 5000)
	}
	pools := []entities.Pool{
		pool("0xAC", tokA, tokC),
		pool("0xAD", tokA, tokD),
		pool("0xCB", tokC, tokB),
		pool("0xDB", tokD, tokB),
	}
	router := newTestRouter(reserves, Options{MaxConcurrentReads: 4})

	route, err := router.FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.DeepEqual(t, route.Path, []string{tokA, tokC, tokB})
}

func TestFindOptimalPathAllReservesFailed(t *testing.T) {
	pools, reserves := indirectPools()
	rpcErr := errors.New("rpc unavailable")
	for _, p := range pools {
		reserves.failing[p.Address] = rpcErr
	}

	route, err := newTestRouter(reserves, Options{}).FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.False(t, route.Viable())
	assert.DeepEqual(t, route.Path, []string{tokA, tokB})

	_, err = newTestRouter(reserves, Options{RequireRoute: true}).FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllReservesFailed))
	assert.True(t, errors.Is(err, rpcErr))
}

func TestFindOptimalPathAllReservesFailedIndirectOnly(t *testing.T) {
	reserves := newFakeReserves()
	reserves.failing["0xAC"] = errors.New("rpc unavailable")
	reserves.failing["0xCB"] = errors.New("rpc unavailable")
	pools := []entities.Pool{pool("0xAC", tokA, tokC), pool("0xCB", tokC, tokB)}

	// the zero-output route names only the endpoints, not the unpriced path
	route, err := newTestRouter(reserves, Options{}).FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.False(t, route.Viable())
	assert.DeepEqual(t, route.Path, []string{tokA, tokB})
	assert.Equal(t, len(route.Hops), 0)
}

func TestFindOptimalPathStrictModeToleratesPartialFailure(t *testing.T) {
	pools, reserves := indirectPools()
	reserves.failing["0xDirect"] = errors.New("rpc unavailable")

	route, err := newTestRouter(reserves, Options{RequireRoute: true}).FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.True(t, route.Viable())
}

func TestFindOptimalPathTimeout(t *testing.T) {
	pools, reserves := indirectPools()
	reserves.delay = time.Second
	router := newTestRouter(reserves, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	route, err := router.FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.True(t, time.Since(start) < 500*time.Millisecond)
	assert.DeepEqual(t, route.Path, []string{tokA, tokB})
	assert.False(t, route.Viable())
}

func TestFindOptimalPathCallerDeadline(t *testing.T) {
	pools, reserves := indirectPools()
	reserves.delay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	route, err := newTestRouter(reserves, Options{}).FindOptimalPath(ctx, pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.False(t, route.Viable())
}

func TestFindOptimalPathBoundedConcurrency(t *testing.T) {
	tokens := []string{tokA, tokB, tokC, tokD, "0xEEEE"}
	reserves := newFakeReserves()
	reserves.delay = 2 * time.Millisecond
	var pools []entities.Pool
	for i := range tokens {
		for j := i + 1; j < len(tokens); j++ {
			addr := fmt.Sprintf("0xP%d%d", i, j)
			reserves.set(addr, 10000, 10000)
			pools = append(pools, pool(addr, tokens[i], tokens[j]))
		}
	}

	route, err := newTestRouter(reserves, Options{MaxConcurrentReads: 2}).FindOptimalPath(context.Background(), pools, tokA, "0xEEEE", big.NewInt(100))
	assert.NoError(t, err)
	assert.True(t, route.Viable())
	assert.True(t, reserves.maxInFlight <= 2)
}

func TestFindOptimalPathMaxHops(t *testing.T) {
	pools, reserves := indirectPools()
	router := newTestRouter(reserves, Options{MaxHops: 1})

	route, err := router.FindOptimalPath(context.Background(), pools, tokA, tokB, big.NewInt(100))
	assert.NoError(t, err)
	assert.DeepEqual(t, route.Path, []string{tokA, tokB})
	assert.Equal(t, route.AmountOut.Int64(), int64(90))
}

func TestFindOptimalPathInvalidInput(t *testing.T) {
	router := newTestRouter(newFakeReserves(), Options{})

	_, err := router.FindOptimalPath(context.Background(), diamondPools(), tokA, tokB, big.NewInt(0))
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	_, err = router.FindOptimalPath(context.Background(), diamondPools(), tokA, tokB, nil)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = router.FindOptimalPath(context.Background(), []entities.Pool{pool("0xP1", tokA, "")}, tokA, tokB, big.NewInt(1))
	assert.True(t, errors.Is(err, entities.ErrInvalidPool))
}

func TestQuoteAppliesSlippage(t *testing.T) {
	reserves := newFakeReserves()
	reserves.set("0xP1", 1000, 1000)
	router := newTestRouter(reserves, Options{})

	route, err := router.Quote(context.Background(), []entities.Pool{pool("0xP1", tokA, tokB)}, tokA, tokB, big.NewInt(100), 50)
	assert.NoError(t, err)
	assert.Equal(t, route.AmountOut.Int64(), int64(90))
	assert.Equal(t, route.MinAmountOut.Int64(), int64(89))
	assert.Equal(t, route.SlippageBps, uint64(50))
}
