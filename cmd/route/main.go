package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/bimakw/swap-router/internal/domain/entities"
	"github.com/bimakw/swap-router/internal/domain/services"
	"github.com/bimakw/swap-router/internal/infrastructure/dex"
	"github.com/bimakw/swap-router/internal/infrastructure/ethereum"
	"github.com/bimakw/swap-router/internal/logging"
)

type options struct {
	poolsFile      string
	rpcURL         string
	from           string
	to             string
	amount         string
	feeNumerator   uint64
	feeDenominator uint64
	maxHops        int
	maxReads       int
	timeout        time.Duration
	strict         bool
	reserveMethod  string
	slippageBps    uint64
	logLevel       string
}

func main() {
	var opts options
	pflag.StringVar(&opts.poolsFile, "pools", "", "JSON or TOML pools file (required)")
	pflag.StringVar(&opts.rpcURL, "rpc", os.Getenv("ROUTER_RPC_URL"), "Ethereum RPC endpoint")
	pflag.StringVar(&opts.from, "from", "", "token to sell")
	pflag.StringVar(&opts.to, "to", "", "token to buy")
	pflag.StringVar(&opts.amount, "amount", "", "amount to sell, in base units")
	pflag.Uint64Var(&opts.feeNumerator, "fee-numerator", entities.DefaultFeeSchedule.Numerator, "fee numerator")
	pflag.Uint64Var(&opts.feeDenominator, "fee-denominator", entities.DefaultFeeSchedule.Denominator, "fee denominator")
	pflag.IntVar(&opts.maxHops, "max-hops", 0, "maximum pools per path, 0 for no limit")
	pflag.IntVar(&opts.maxReads, "max-concurrent-reads", services.DefaultMaxConcurrentReads, "paths priced concurrently")
	pflag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "route search timeout")
	pflag.BoolVar(&opts.strict, "strict", false, "fail when no pool reserves can be read")
	pflag.StringVar(&opts.reserveMethod, "reserve-method", dex.MethodGetReserves, "pair reserve getter: getReserves or getReserve")
	pflag.Uint64Var(&opts.slippageBps, "slippage", 50, "slippage tolerance in basis points")
	pflag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	pflag.Parse()

	logger := logging.New(opts.logLevel, true)
	if err := run(context.Background(), opts, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger zerolog.Logger) error {
	if opts.poolsFile == "" || opts.rpcURL == "" || opts.from == "" || opts.to == "" || opts.amount == "" {
		pflag.Usage()
		return fmt.Errorf("--pools, --rpc, --from, --to and --amount are required")
	}

	amountIn, ok := new(big.Int).SetString(opts.amount, 10)
	if !ok || amountIn.Sign() <= 0 {
		return fmt.Errorf("--amount must be a positive integer, got %q", opts.amount)
	}

	fee, err := entities.NewFeeSchedule(opts.feeNumerator, opts.feeDenominator)
	if err != nil {
		return err
	}

	registry := entities.NewPoolRegistry("")
	if err := registry.LoadFromFile(opts.poolsFile); err != nil {
		return err
	}

	ethClient, err := ethereum.NewClient(ctx, opts.rpcURL)
	if err != nil {
		return err
	}
	defer ethClient.Close()

	pairClient, err := dex.NewPairClient(ethClient, opts.reserveMethod)
	if err != nil {
		return err
	}

	router := services.NewRouterService(services.NewPriceService(pairClient, fee), services.Options{
		MaxConcurrentReads: opts.maxReads,
		MaxHops:            opts.maxHops,
		Timeout:            opts.timeout,
		RequireRoute:       opts.strict,
	}, logger)

	route, err := router.Quote(ctx, registry.Pools(), opts.from, opts.to, amountIn, opts.slippageBps)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(route); err != nil {
		return err
	}
	if !route.Viable() {
		return fmt.Errorf("no viable route from %s to %s", opts.from, opts.to)
	}
	return nil
}
