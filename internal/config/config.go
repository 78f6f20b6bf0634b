package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/explorer"
	"github.com/Mohsinsiddi/w3gas/internal/price"
	"github.com/Mohsinsiddi/w3gas/internal/secrets"
)

const (
	defaultChain    = chain.DefaultChain
	defaultCurrency = "usd"
	defaultLogLevel = "info"
	defaultCacheTTL = 30 * time.Second

	configFile = "config.json"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.w3gas.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3gas")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	return cfg, nil
}

// Save writes the persisted fields to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables read through lookup
// (os.LookupEnv in production). Every unparsable value is reported.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := parseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	if v, ok := lookup(EnvAPIKey); ok && strings.TrimSpace(v) != "" {
		c.APIKey = strings.TrimSpace(v)
		c.APIKeySource = "env"
	}
	str(EnvHost, &c.Host)
	str(EnvPort, &c.Port)
	str(EnvChain, &c.Chain)
	str(EnvExplorerURL, &c.ExplorerURL)
	str(EnvPriceURL, &c.PriceURL)
	str(EnvRedisAddr, &c.RedisAddr)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvStage, &c.Stage)
	duration(EnvUpstreamTimeout, &c.UpstreamTimeout)
	duration(EnvCacheTTL, &c.CacheTTL)
	integer(EnvUpstreamRetries, &c.UpstreamRetries)
	integer(EnvTxPageSize, &c.TxPageSize)
	integer(EnvTxMaxPages, &c.TxMaxPages)

	if v, ok := lookup(EnvUpstreamRPS); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a number", EnvUpstreamRPS, v))
		} else {
			c.UpstreamRPS = f
		}
	}
	if v, ok := lookup(EnvLenientPeriods); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", EnvLenientPeriods, v))
		} else {
			c.LenientPeriods = b
		}
	}
	if v, ok := lookup(EnvCORSOrigins); ok && strings.TrimSpace(v) != "" {
		c.CORSOrigins = splitList(v)
	}
	return errors.Join(errs...)
}

// ResolveAPIKey fills APIKey from the keychain when no other source set it.
func (c *Config) ResolveAPIKey(store secrets.Store) error {
	if c.APIKey != "" || store == nil {
		return nil
	}
	key, err := store.Get(secrets.APIKeyName)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil
		}
		return err
	}
	c.APIKey = key
	c.APIKeySource = "keychain"
	return nil
}

// Validate checks the settings needed to reach the explorer, and with
// server set also those needed to listen. All problems are returned at once.
func (c *Config) Validate(server bool) error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s is required (or run `w3gas key set`)", EnvAPIKey))
	}
	if server {
		if c.Host == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvHost))
		}
		if c.Port == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvPort))
		} else if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("%s: %q is not a valid port", EnvPort, c.Port))
		}
	}
	if _, err := chain.NewRegistry().GetByName(c.Chain); err != nil {
		errs = append(errs, fmt.Errorf("%s: unknown chain %q", EnvChain, c.Chain))
	}
	if c.ExplorerURL != "" {
		if u, err := url.Parse(c.ExplorerURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: %q is not an absolute URL", EnvExplorerURL, c.ExplorerURL))
		}
	}
	if c.UpstreamTimeout < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvUpstreamTimeout))
	}
	if c.UpstreamRetries < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvUpstreamRetries))
	}
	if c.TxPageSize < 0 || c.TxPageSize > 10000 {
		errs = append(errs, fmt.Errorf("%s must be between 1 and 10000", EnvTxPageSize))
	}
	if c.TxMaxPages < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvTxMaxPages))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvCacheTTL))
	}
	if c.Stage != StageDev && c.Stage != StageProd {
		errs = append(errs, fmt.Errorf("%s: %q must be %q or %q", EnvStage, c.Stage, StageDev, StageProd))
	}
	return errors.Join(errs...)
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Explorer returns the explorer client settings for the configured chain.
func (c *Config) Explorer() explorer.Config {
	ec := explorer.DefaultConfig()
	ec.APIKey = c.APIKey
	if c.ExplorerURL != "" {
		ec.BaseURL = c.ExplorerURL
	}
	if ch, err := chain.NewRegistry().GetByName(c.Chain); err == nil {
		ec.ChainID = ch.ChainID
	}
	if c.UpstreamTimeout > 0 {
		ec.Timeout = c.UpstreamTimeout.Std()
	}
	ec.MaxRetries = c.UpstreamRetries
	ec.RequestsPerSecond = c.UpstreamRPS
	if c.TxPageSize > 0 {
		ec.PageSize = c.TxPageSize
	}
	if c.TxMaxPages > 0 {
		ec.MaxPages = c.TxMaxPages
	}
	return ec
}

// settable maps `w3gas config set` keys to setters.
var settable = map[string]func(c *Config, v string) error{
	"host":  func(c *Config, v string) error { c.Host = v; return nil },
	"port":  func(c *Config, v string) error { c.Port = v; return nil },
	"stage": func(c *Config, v string) error { c.Stage = v; return nil },
	"chain": func(c *Config, v string) error {
		ch, err := chain.NewRegistry().GetByName(v)
		if err != nil {
			return fmt.Errorf("unknown chain %q", v)
		}
		c.Chain = ch.Name
		return nil
	},
	"explorer_url": func(c *Config, v string) error { c.ExplorerURL = v; return nil },
	"price_url":    func(c *Config, v string) error { c.PriceURL = v; return nil },
	"currency":     func(c *Config, v string) error { c.Currency = strings.ToLower(v); return nil },
	"redis_addr":   func(c *Config, v string) error { c.RedisAddr = v; return nil },
	"log_level":    func(c *Config, v string) error { c.LogLevel = strings.ToLower(v); return nil },
	"cors_origins": func(c *Config, v string) error { c.CORSOrigins = splitList(v); return nil },
	"upstream_timeout": func(c *Config, v string) error {
		d, err := parseDuration(v)
		c.UpstreamTimeout = Duration(d)
		return err
	},
	"cache_ttl": func(c *Config, v string) error {
		d, err := parseDuration(v)
		c.CacheTTL = Duration(d)
		return err
	},
	"upstream_retries": func(c *Config, v string) (err error) { c.UpstreamRetries, err = strconv.Atoi(v); return },
	"tx_page_size":     func(c *Config, v string) (err error) { c.TxPageSize, err = strconv.Atoi(v); return },
	"tx_max_pages":     func(c *Config, v string) (err error) { c.TxMaxPages, err = strconv.Atoi(v); return },
	"upstream_rps": func(c *Config, v string) (err error) {
		c.UpstreamRPS, err = strconv.ParseFloat(v, 64)
		return
	},
	"lenient_periods": func(c *Config, v string) (err error) {
		c.LenientPeriods, err = strconv.ParseBool(v)
		return
	},
}

// Set updates one persisted field by its config.json key.
func (c *Config) Set(key, value string) error {
	set, ok := settable[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := set(c, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Keys lists the keys accepted by Set.
func Keys() []string {
	keys := make([]string, 0, len(settable))
	for k := range settable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- helpers ---

func defaults(dir string) *Config {
	ec := explorer.DefaultConfig()
	return &Config{
		Stage:           StageDev,
		Chain:           defaultChain,
		ExplorerURL:     explorer.DefaultBaseURL,
		PriceURL:        price.DefaultBaseURL,
		Currency:        defaultCurrency,
		UpstreamTimeout: Duration(ec.Timeout),
		UpstreamRetries: ec.MaxRetries,
		UpstreamRPS:     ec.RequestsPerSecond,
		TxPageSize:      ec.PageSize,
		TxMaxPages:      ec.MaxPages,
		CacheTTL:        Duration(defaultCacheTTL),
		LogLevel:        defaultLogLevel,
		configDir:       dir,
	}
}

// parseDuration accepts Go durations ("30s") and bare seconds ("30").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
