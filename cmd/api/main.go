package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/bimakw/swap-router/internal/config"
	"github.com/bimakw/swap-router/internal/domain/entities"
	"github.com/bimakw/swap-router/internal/domain/services"
	"github.com/bimakw/swap-router/internal/infrastructure/cache"
	"github.com/bimakw/swap-router/internal/infrastructure/dex"
	"github.com/bimakw/swap-router/internal/infrastructure/ethereum"
	"github.com/bimakw/swap-router/internal/infrastructure/metrics"
	"github.com/bimakw/swap-router/internal/logging"
	"github.com/bimakw/swap-router/internal/presentation/handlers"
)

const (
	version = "0.3.0"
)

func main() {
	configPath := pflag.String("config", "", "path to a TOML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := logging.New("info", false)
		bootLogger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Ethereum client
	ethClient, err := ethereum.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Ethereum")
	}
	defer ethClient.Close()
	ethClient.SetMaxConcurrentCalls(cfg.MaxConcurrentReads)
	logger.Info().Str("chain_id", ethClient.ChainID().String()).Msg("Connected to Ethereum")

	pairClient, err := dex.NewPairClient(ethClient, cfg.ReserveMethod)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create pair client")
	}
	routerClient := dex.NewRouterClient(ethClient, common.HexToAddress(cfg.RouterAddress))
	logger.Info().Str("router", routerClient.Address().Hex()).Msg("Using swap router")

	// Load pools
	registry := entities.NewPoolRegistry(cfg.WETHAddress)
	poolSource, closeCache := newPoolSource(ctx, cfg, logger, ethClient, pairClient, routerClient, registry)
	defer closeCache()
	if err := poolSource.Refresh(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load pools")
	}
	if cfg.PoolsFile == "" {
		go poolSource.Run(ctx, cfg.PoolCacheTTL)
	}

	// Initialize services
	fee, err := entities.NewFeeSchedule(cfg.FeeNumerator, cfg.FeeDenominator)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid fee schedule")
	}
	priceService := services.NewPriceService(pairClient, fee)
	routerService := services.NewRouterService(priceService, services.Options{
		MaxConcurrentReads: cfg.MaxConcurrentReads,
		MaxHops:            cfg.MaxHops,
		Timeout:            cfg.QuoteTimeout,
		RequireRoute:       cfg.RequireRoute,
	}, logger)

	// Initialize handlers
	opts := handlers.ServerOptions{
		RatePerMinute:  cfg.RatePerMinute,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.QuoteTimeout + 5*time.Second,
	}
	if cfg.EnableMetrics {
		opts.Metrics = metrics.Handler(metrics.Init(logger))
	}
	handler := handlers.NewRouter(opts,
		logger,
		handlers.NewHealthHandler(version, registry, ethClient),
		handlers.NewQuoteHandler(routerService, registry, routerClient, cfg.DefaultSlippageBps, logger),
		handlers.NewTokensHandler(registry),
	)

	// Start server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.QuoteTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("version", version).Msg("Starting swap router API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		os.Exit(1)
	}
	logger.Info().Msg("Server stopped")
}

// newPoolSource reads pools from the configured file, or discovers them from
// the factory the router is bound to. The returned func closes the pool cache.
func newPoolSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger, ethClient *ethereum.Client, pairClient *dex.PairClient, routerClient *dex.RouterClient, registry *entities.PoolRegistry) (*services.PoolSource, func()) {
	if cfg.PoolsFile != "" {
		return services.NewFilePoolSource(registry, cfg.PoolsFile, pairClient, logger), func() {}
	}

	factory, err := routerClient.FactoryAddress(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("factory", cfg.FactoryAddress).Msg("Router did not report its factory, using configured address")
		factory = common.HexToAddress(cfg.FactoryAddress)
	}

	// Initialize cache
	var cacheClient cache.Cache
	closeCache := func() {}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis, using in-memory cache")
			cacheClient = cache.NewInMemoryCache(cfg.PoolCacheTTL)
		} else {
			cacheClient = redisCache
			closeCache = func() {
				if err := redisCache.Close(); err != nil {
					logger.Warn().Err(err).Msg("Failed to close Redis connection")
				}
			}
			logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		}
	} else {
		cacheClient = cache.NewInMemoryCache(cfg.PoolCacheTTL)
		logger.Info().Msg("Using in-memory cache")
	}

	discoverer := dex.NewFactoryClient(ethClient, factory, cfg.MaxPairs, logger)
	key := cache.PoolsCacheKey(discoverer.Address().Hex())
	logger.Info().Str("factory", discoverer.Address().Hex()).Str("key", key).Msg("Discovering pools from factory")
	return services.NewDiscoveryPoolSource(registry, discoverer, cacheClient, key, cfg.PoolCacheTTL, logger), closeCache
}
