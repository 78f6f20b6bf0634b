package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config holds all w3gas configuration. Fields with a json tag are
// persisted to config.json; the API key never is.
type Config struct {
	APIKey string `json:"-"`
	// APIKeySource records where APIKey came from: "env", "keychain" or "".
	APIKeySource string `json:"-"`

	Host  string `json:"host"`
	Port  string `json:"port"`
	Stage string `json:"stage"` // "dev" | "prod"

	Chain       string `json:"chain"`
	ExplorerURL string `json:"explorer_url"`
	PriceURL    string `json:"price_url"`
	Currency    string `json:"currency"`

	UpstreamTimeout Duration `json:"upstream_timeout"`
	UpstreamRetries int      `json:"upstream_retries"`
	UpstreamRPS     float64  `json:"upstream_rps"`
	TxPageSize      int      `json:"tx_page_size"`
	TxMaxPages      int      `json:"tx_max_pages"`

	RedisAddr string   `json:"redis_addr"`
	CacheTTL  Duration `json:"cache_ttl"`

	LogLevel       string   `json:"log_level"`
	CORSOrigins    []string `json:"cors_origins"`
	LenientPeriods bool     `json:"lenient_periods"`

	// internal: config dir path used for Save()
	configDir string
}

// Duration is a time.Duration stored as a Go duration string ("10s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}
