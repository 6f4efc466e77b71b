package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bimakw/swap-router/internal/domain/entities"
	"github.com/bimakw/swap-router/internal/infrastructure/cache"
	"github.com/bimakw/swap-router/internal/infrastructure/metrics"
)

// Pool list sources, as reported in metrics
const (
	SourceFile      = "file"
	SourceCache     = "cache"
	SourceDiscovery = "discovery"
)

// PoolDiscoverer lists the pools deployed on chain
type PoolDiscoverer interface {
	DiscoverPools(ctx context.Context) ([]entities.Pool, error)
}

// PoolTokenReader reads the token0 and token1 a pool contract reports
type PoolTokenReader interface {
	Tokens(ctx context.Context, poolAddress string) (string, string, error)
}

// PoolSource keeps a PoolRegistry filled, either from a pools file or from
// on-chain discovery with the result cached under cacheKey
type PoolSource struct {
	registry   *entities.PoolRegistry
	poolsFile  string
	tokens     PoolTokenReader
	discoverer PoolDiscoverer
	cache      cache.Cache
	cacheKey   string
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewFilePoolSource loads pools from a JSON or TOML file. When tokens is not
// nil every pool's token order is checked against the contract.
func NewFilePoolSource(registry *entities.PoolRegistry, poolsFile string, tokens PoolTokenReader, logger zerolog.Logger) *PoolSource {
	return &PoolSource{
		registry:  registry,
		poolsFile: poolsFile,
		tokens:    tokens,
		logger:    logger,
	}
}

// NewDiscoveryPoolSource loads pools through discoverer, caching snapshots in c
func NewDiscoveryPoolSource(registry *entities.PoolRegistry, discoverer PoolDiscoverer, c cache.Cache, cacheKey string, ttl time.Duration, logger zerolog.Logger) *PoolSource {
	return &PoolSource{
		registry:   registry,
		discoverer: discoverer,
		cache:      c,
		cacheKey:   cacheKey,
		cacheTTL:   ttl,
		logger:     logger,
	}
}

// Refresh loads the registry at startup, preferring a cached snapshot over
// discovery. On failure the registry keeps its previous pools.
func (s *PoolSource) Refresh(ctx context.Context) error {
	if s.poolsFile != "" {
		return s.loadFile(ctx)
	}

	if s.cache != nil {
		pools, err := s.cache.GetPools(ctx, s.cacheKey)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", s.cacheKey).Msg("Pool cache read failed")
		}
		if len(pools) > 0 {
			if err := s.registry.Replace(pools); err == nil {
				s.loaded(SourceCache)
				return nil
			}
			s.logger.Warn().Str("key", s.cacheKey).Msg("Dropping invalid cached pools")
			if err := s.cache.Delete(ctx, s.cacheKey); err != nil {
				s.logger.Warn().Err(err).Str("key", s.cacheKey).Msg("Pool cache delete failed")
			}
		}
	}

	return s.discover(ctx)
}

// reload is the periodic refresh. It never reads the cache, which still
// holds the snapshot this source wrote on the previous tick.
func (s *PoolSource) reload(ctx context.Context) error {
	if s.poolsFile != "" {
		return s.loadFile(ctx)
	}
	return s.discover(ctx)
}

func (s *PoolSource) loadFile(ctx context.Context) error {
	pools, err := entities.LoadPoolsFile(s.poolsFile)
	if err != nil {
		return err
	}
	if s.tokens != nil {
		if pools, err = s.checkTokenOrder(ctx, pools); err != nil {
			return err
		}
	}
	if err := s.registry.Replace(pools); err != nil {
		return err
	}
	s.loaded(SourceFile)
	return nil
}

// checkTokenOrder compares every pool's token0/token1 with the contract.
// Records listing the tokens in reverse are swapped, since reserves are
// oriented by token0. Pools whose tokens cannot be read are kept as listed.
func (s *PoolSource) checkTokenOrder(ctx context.Context, pools []entities.Pool) ([]entities.Pool, error) {
	checked := make([]entities.Pool, len(pools))
	copy(checked, pools)

	for i, pool := range checked {
		token0, token1, err := s.tokens.Tokens(ctx, pool.Address)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("pool", pool.Address).Msg("Could not read pool tokens, keeping listed order")
			continue
		}

		t0, t1 := entities.NormalizeToken(token0), entities.NormalizeToken(token1)
		switch {
		case pool.Token0Key() == t0 && pool.Token1Key() == t1:
		case pool.Token0Key() == t1 && pool.Token1Key() == t0:
			s.logger.Warn().Str("pool", pool.Address).Msg("Pool lists its tokens in reverse order, swapping")
			checked[i].Token0Address, checked[i].Token1Address = pool.Token1Address, pool.Token0Address
			checked[i].Token0Name, checked[i].Token1Name = pool.Token1Name, pool.Token0Name
		default:
			return nil, fmt.Errorf("%w: pool %s trades %s/%s on chain, not %s/%s",
				entities.ErrInvalidPool, pool.Address, token0, token1, pool.Token0Address, pool.Token1Address)
		}
	}

	return checked, nil
}

func (s *PoolSource) discover(ctx context.Context) error {
	pools, err := s.discoverer.DiscoverPools(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover pools: %w", err)
	}
	if err := s.registry.Replace(pools); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.SetPools(ctx, s.cacheKey, pools, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", s.cacheKey).Msg("Pool cache write failed")
		}
	}
	s.loaded(SourceDiscovery)
	return nil
}

func (s *PoolSource) loaded(source string) {
	metrics.PoolDiscoveryTotal.WithLabelValues(source).Inc()
	s.logger.Info().Str("source", source).Int("pools", s.registry.Count()).Msg("Pools loaded")
}

// Run reloads the registry every interval until ctx is done. Discovery
// sources always go back to the chain.
func (s *PoolSource) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.reload(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Pool refresh failed")
			}
		}
	}
}
