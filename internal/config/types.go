package config

import "time"

// Config holds the router service settings
type Config struct {
	// http server
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// chain
	RPCURL         string `mapstructure:"rpc_url"`
	FactoryAddress string `mapstructure:"factory_address"`
	RouterAddress  string `mapstructure:"router_address"`
	WETHAddress    string `mapstructure:"weth_address"`
	ReserveMethod  string `mapstructure:"reserve_method"`

	// pool sources; a pools file takes precedence over factory discovery
	PoolsFile    string        `mapstructure:"pools_file"`
	PoolCacheTTL time.Duration `mapstructure:"pool_cache_ttl"`
	MaxPairs     int           `mapstructure:"max_pairs"`

	// redis, in-memory cache when empty
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// routing
	FeeNumerator       uint64        `mapstructure:"fee_numerator"`
	FeeDenominator     uint64        `mapstructure:"fee_denominator"`
	MaxHops            int           `mapstructure:"max_hops"`
	MaxConcurrentReads int           `mapstructure:"max_concurrent_reads"`
	QuoteTimeout       time.Duration `mapstructure:"quote_timeout"`
	DefaultSlippageBps uint64        `mapstructure:"default_slippage_bps"`
	// RequireRoute fails a quote when no candidate path's reserves could be read
	RequireRoute bool `mapstructure:"require_route"`

	// http middleware
	RatePerMinute  int      `mapstructure:"rate_per_minute"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	EnableMetrics  bool     `mapstructure:"enable_metrics"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}
