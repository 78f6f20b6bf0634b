package config

import "time"

// Environment variables read by ApplyEnv. HOST, PORT and APIKEY keep the
// names the service has always used.
const (
	EnvAPIKey          = "APIKEY"
	EnvHost            = "HOST"
	EnvPort            = "PORT"
	EnvChain           = "CHAIN"
	EnvExplorerURL     = "EXPLORER_URL"
	EnvUpstreamTimeout = "UPSTREAM_TIMEOUT"
	EnvUpstreamRetries = "UPSTREAM_RETRIES"
	EnvUpstreamRPS     = "UPSTREAM_RPS"
	EnvTxPageSize      = "TX_PAGE_SIZE"
	EnvTxMaxPages      = "TX_MAX_PAGES"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvCacheTTL        = "CACHE_TTL"
	EnvLogLevel        = "LOG_LEVEL"
	EnvStage           = "STAGE"
	EnvCORSOrigins     = "CORS_ORIGINS"
	EnvLenientPeriods  = "LENIENT_PERIODS"
	EnvPriceURL        = "PRICE_URL"

	// EnvConfigDir overrides the --config flag default.
	EnvConfigDir = "W3GAS_CONFIG_DIR"
)

// Server timeouts. RequestTimeout bounds one calculation and stays below
// WriteTimeout so a slow upstream still gets a JSON error back.
const (
	ReadHeaderTimeout = 5 * time.Second
	WriteTimeout      = 60 * time.Second
	RequestTimeout    = 50 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

// Stages.
const (
	StageDev  = "dev"
	StageProd = "prod"
)
