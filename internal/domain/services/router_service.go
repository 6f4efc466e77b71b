package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/swap-router/internal/domain/entities"
	"github.com/bimakw/swap-router/internal/infrastructure/metrics"
)

// DefaultMaxConcurrentReads bounds the paths priced at the same time
const DefaultMaxConcurrentReads = 10

var (
	// ErrInvalidAmount is returned for a missing or non-positive input amount
	ErrInvalidAmount = errors.New("amountIn must be positive")

	// ErrAllReservesFailed is returned in strict mode when no candidate path could be priced
	ErrAllReservesFailed = errors.New("reserve reads failed for every candidate path")
)

// Options tune a RouterService
type Options struct {
	// MaxConcurrentReads bounds concurrent path evaluations, DefaultMaxConcurrentReads when 0
	MaxConcurrentReads int
	// MaxHops limits the pools per path, 0 for no limit
	MaxHops int
	// Timeout bounds one route search, none when 0
	Timeout time.Duration
	// RequireRoute turns "every reserve read failed" into ErrAllReservesFailed
	RequireRoute bool
}

// RouterService finds the path with the highest output for a trade
type RouterService struct {
	priceService *PriceService
	opts         Options
	logger       zerolog.Logger
}

// NewRouterService creates a new router service
func NewRouterService(priceService *PriceService, opts Options, logger zerolog.Logger) *RouterService {
	if opts.MaxConcurrentReads <= 0 {
		opts.MaxConcurrentReads = DefaultMaxConcurrentReads
	}
	return &RouterService{
		priceService: priceService,
		opts:         opts,
		logger:       logger,
	}
}

// FindOptimalPath builds the token graph of pools, prices every simple path
// from fromToken to toToken and returns the one with the strictly highest
// output, the first found on ties. When no path exists, or the search runs
// out of time, or no path's reserves could be read, it returns the
// zero-output route [fromToken, toToken]. When paths were priced but none
// yields output, the first path is returned with zero output. Only invalid input, or strict mode, produce an error.
func (s *RouterService) FindOptimalPath(ctx context.Context, pools []entities.Pool, fromToken, toToken string, amountIn *big.Int) (*entities.Route, error) {
	start := time.Now()
	defer func() { metrics.RouteSearchDuration.Observe(time.Since(start).Seconds()) }()

	if amountIn == nil || amountIn.Sign() <= 0 {
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, ErrInvalidAmount
	}

	graph, err := BuildTokenGraph(pools)
	if err != nil {
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	if entities.NormalizeToken(fromToken) == entities.NormalizeToken(toToken) {
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeRouted).Inc()
		return &entities.Route{
			Path:        []string{fromToken},
			AmountIn:    new(big.Int).Set(amountIn),
			AmountOut:   new(big.Int).Set(amountIn),
			PriceImpact: big.NewInt(0),
			Fee:         s.priceService.Fee(),
		}, nil
	}

	paths := graph.FindPathsWithin(fromToken, toToken, s.opts.MaxHops)
	metrics.RouteCandidatePaths.Observe(float64(len(paths)))

	log := s.logger.With().Str("from", fromToken).Str("to", toToken).Logger()
	if len(paths) == 0 {
		log.Debug().Int("tokens", graph.Len()).Msg("No path between tokens")
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeNoRoute).Inc()
		return s.noRoute(fromToken, toToken, amountIn), nil
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	routes, errs, ok := s.evaluate(ctx, graph, paths, amountIn)
	if !ok {
		log.Warn().Int("paths", len(paths)).Err(ctx.Err()).Msg("Route search abandoned before all paths were priced")
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeTimeout).Inc()
		return s.noRoute(fromToken, toToken, amountIn), nil
	}

	best := -1
	failures := 0
	for i, route := range routes {
		if errs[i] != nil {
			failures++
			metrics.ReserveFetchFailuresTotal.Inc()
			log.Warn().Err(errs[i]).Strs("path", paths[i]).Msg("Skipping path, reserve read failed")
			continue
		}
		if route.AmountOut.Sign() <= 0 {
			continue
		}
		if best < 0 || route.AmountOut.Cmp(routes[best].AmountOut) > 0 {
			best = i
		}
	}

	if failures == len(paths) && s.opts.RequireRoute {
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%d paths from %s to %s: %w", len(paths), fromToken, toToken,
			errors.Join(append([]error{ErrAllReservesFailed}, errs...)...))
	}

	if failures == len(paths) {
		log.Warn().Int("paths", len(paths)).Msg("No path could be priced")
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeNoRoute).Inc()
		return s.noRoute(fromToken, toToken, amountIn), nil
	}

	if best < 0 {
		log.Info().Int("paths", len(paths)).Int("failures", failures).Msg("No path yields output")
		metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeNoRoute).Inc()
		return &entities.Route{
			Path:         renderPath(graph, paths[0]),
			AmountIn:     new(big.Int).Set(amountIn),
			AmountOut:    big.NewInt(0),
			PriceImpact:  big.NewInt(0),
			MinAmountOut: big.NewInt(0),
			Fee:          s.priceService.Fee(),
		}, nil
	}

	route := routes[best]
	route.PriceImpact = route.CalculatePriceImpact()

	log.Debug().
		Strs("path", route.Path).
		Str("amountOut", route.AmountOut.String()).
		Int("paths", len(paths)).
		Int("failures", failures).
		Msg("Found route")
	metrics.RouteRequestsTotal.WithLabelValues(metrics.OutcomeRouted).Inc()

	return route, nil
}

func (s *RouterService) noRoute(fromToken, toToken string, amountIn *big.Int) *entities.Route {
	route := entities.NoRoute(fromToken, toToken, amountIn)
	route.Fee = s.priceService.Fee()
	return route
}

// evaluate prices every path with at most MaxConcurrentReads in flight.
// Results are indexed like paths. ok is false when ctx ended first.
func (s *RouterService) evaluate(ctx context.Context, graph *TokenGraph, paths [][]string, amountIn *big.Int) ([]*entities.Route, []error, bool) {
	routes := make([]*entities.Route, len(paths))
	errs := make([]error, len(paths))

	done := make(chan struct{})
	go func() {
		defer close(done)

		var g errgroup.Group
		g.SetLimit(s.opts.MaxConcurrentReads)
		for i, path := range paths {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				routes[i], errs[i] = s.priceService.PricePath(ctx, graph, path, amountIn)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, nil, false
	}

	if ctx.Err() != nil {
		return nil, nil, false
	}
	return routes, errs, true
}

// Quote finds the optimal route and sets the minimum output accepted under slippageBps
func (s *RouterService) Quote(ctx context.Context, pools []entities.Pool, fromToken, toToken string, amountIn *big.Int, slippageBps uint64) (*entities.Route, error) {
	route, err := s.FindOptimalPath(ctx, pools, fromToken, toToken, amountIn)
	if err != nil {
		return nil, err
	}
	route.ApplySlippage(slippageBps)
	return route, nil
}
