package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingRPCEndpoint is returned when no RPC URL is configured
var ErrMissingRPCEndpoint = errors.New("rpc_url is required")

// Sepolia deployment the service was first built against
const (
	DefaultRouterAddress  = "0x2c60bCCD6D20eaBce3C74956D3c08438D603762B"
	DefaultFactoryAddress = "0x99440BF07a7c23FD15fCFAa96b2957c905b8A6f5"
	DefaultWETHAddress    = "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"
)

var keys = []string{
	"host", "port",
	"rpc_url", "factory_address", "router_address", "weth_address", "reserve_method",
	"pools_file", "pool_cache_ttl", "max_pairs",
	"redis_addr", "redis_password", "redis_db",
	"fee_numerator", "fee_denominator", "max_hops", "max_concurrent_reads",
	"quote_timeout", "default_slippage_bps", "require_route",
	"rate_per_minute", "allowed_origins", "enable_metrics",
	"log_level", "log_pretty",
}

// Load reads the configuration from the environment (ROUTER_ prefix, .env
// honoured) and, when configPath is set, from a TOML file. Environment values
// override the file.
func Load(configPath string) (*Config, error) {
	// .env is optional, env can come from docker or systemd
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if configPath != "" {
		if !strings.HasSuffix(configPath, ".toml") {
			return nil, fmt.Errorf("config file must be a toml file")
		}
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verify(&cfg); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("factory_address", DefaultFactoryAddress)
	v.SetDefault("router_address", DefaultRouterAddress)
	v.SetDefault("weth_address", DefaultWETHAddress)
	v.SetDefault("reserve_method", "getReserves")
	v.SetDefault("pool_cache_ttl", 5*time.Minute)
	v.SetDefault("max_pairs", 0)
	v.SetDefault("redis_db", 0)
	v.SetDefault("fee_numerator", 997)
	v.SetDefault("fee_denominator", 1000)
	v.SetDefault("max_hops", 0)
	v.SetDefault("max_concurrent_reads", 10)
	v.SetDefault("quote_timeout", 10*time.Second)
	v.SetDefault("default_slippage_bps", 50)
	v.SetDefault("require_route", false)
	v.SetDefault("rate_per_minute", 0)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("enable_metrics", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
}

func verify(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("host is required")
	}
	if cfg.RPCURL == "" {
		return ErrMissingRPCEndpoint
	}

	for name, addr := range map[string]string{
		"router_address": cfg.RouterAddress,
		"weth_address":   cfg.WETHAddress,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s %q is not an address", name, addr)
		}
	}
	if cfg.PoolsFile == "" && !common.IsHexAddress(cfg.FactoryAddress) {
		return fmt.Errorf("factory_address %q is not an address", cfg.FactoryAddress)
	}

	if cfg.FeeDenominator == 0 || cfg.FeeNumerator == 0 || cfg.FeeNumerator > cfg.FeeDenominator {
		return fmt.Errorf("fee %d/%d must satisfy 0 < numerator <= denominator", cfg.FeeNumerator, cfg.FeeDenominator)
	}
	if cfg.MaxHops < 0 {
		return fmt.Errorf("max_hops must not be negative")
	}
	if cfg.MaxConcurrentReads <= 0 {
		return fmt.Errorf("max_concurrent_reads must be positive")
	}
	if cfg.QuoteTimeout <= 0 {
		return fmt.Errorf("quote_timeout must be positive")
	}
	if cfg.PoolCacheTTL <= 0 {
		return fmt.Errorf("pool_cache_ttl must be positive")
	}
	if cfg.DefaultSlippageBps > 10000 {
		return fmt.Errorf("default_slippage_bps must be at most 10000")
	}
	if cfg.ReserveMethod != "getReserves" && cfg.ReserveMethod != "getReserve" {
		return fmt.Errorf("reserve_method must be getReserves or getReserve")
	}

	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
