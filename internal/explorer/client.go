package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultBaseURL is the Etherscan V2 unified endpoint. A chainid query
// parameter selects the chain.
const DefaultBaseURL = "https://api.etherscan.io/v2/api"

const (
	actionBlockByTime = "getblocknobytime"
	actionTxList      = "txlist"

	maxBodyBytes = 32 << 20
)

// Config holds the explorer connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	// ChainID is sent as the chainid parameter when non-zero.
	ChainID int64

	Timeout           time.Duration // per upstream call
	MaxRetries        int
	RetryInterval     time.Duration // initial backoff interval
	RequestsPerSecond float64       // <= 0 disables rate limiting

	PageSize int
	MaxPages int
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		ChainID:           1,
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryInterval:     500 * time.Millisecond,
		RequestsPerSecond: 5,
		PageSize:          1000,
		MaxPages:          10,
	}
}

// MetricsCollector receives one observation per upstream call.
type MetricsCollector interface {
	RecordRequestDuration(method, path string, statusCode int, duration time.Duration)
	RecordRequestCount(method, path string, statusCode int)
	RecordRequestError(method, path string)
}

type noopMetrics struct{}

func (noopMetrics) RecordRequestDuration(string, string, int, time.Duration) {}
func (noopMetrics) RecordRequestCount(string, string, int)                   {}
func (noopMetrics) RecordRequestError(string, string)                        {}

// Client talks to an Etherscan-compatible block explorer.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	metrics MetricsCollector
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.Named("explorer")
		}
	}
}

// New creates a Client. Zero fields in cfg fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if b := int(cfg.RequestsPerSecond); b > 1 {
			burst = b
		}
	}

	c := &Client{
		cfg: cfg,
		http: &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     60 * time.Second,
		}},
		limiter: rate.NewLimiter(limit, burst),
		metrics: noopMetrics{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForChain returns a client for another chain ID that shares this client's
// connection pool, rate limiter and metrics.
func (c *Client) ForChain(chainID int64) *Client {
	cp := *c
	cp.cfg.ChainID = chainID
	return &cp
}

// ChainID returns the chain this client queries.
func (c *Client) ChainID() int64 { return c.cfg.ChainID }

// BlockNumberByTime returns the number of the last block mined at or before
// the given UNIX timestamp.
func (c *Client) BlockNumberByTime(ctx context.Context, timestamp int64) (uint64, error) {
	params := url.Values{}
	params.Set("module", "block")
	params.Set("action", actionBlockByTime)
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))
	params.Set("closest", "before")

	env, err := c.call(ctx, actionBlockByTime, params)
	if err != nil {
		return 0, err
	}
	// Some compatible explorers answer with a bare {"result": "<block>"}.
	if env.Status != "" && env.Status != "1" {
		return 0, env.apiError(actionBlockByTime)
	}

	raw := resultString(env.Result)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q at timestamp %d", ErrInvalidBlockNumber, raw, timestamp)
	}
	return n, nil
}

// Transactions fetches the normal transactions of address between two
// blocks (inclusive), oldest first, following pages until a short page or
// the configured page limit.
func (c *Client) Transactions(ctx context.Context, address string, startBlock, endBlock uint64) (*TxList, error) {
	list := &TxList{}
	for page := 1; page <= c.cfg.MaxPages; page++ {
		params := url.Values{}
		params.Set("module", "account")
		params.Set("action", actionTxList)
		params.Set("address", address)
		params.Set("startblock", strconv.FormatUint(startBlock, 10))
		params.Set("endblock", strconv.FormatUint(endBlock, 10))
		params.Set("page", strconv.Itoa(page))
		params.Set("offset", strconv.Itoa(c.cfg.PageSize))
		params.Set("sort", "asc")

		env, err := c.call(ctx, actionTxList, params)
		if err != nil {
			return nil, err
		}
		list.Pages = page

		if env.Status != "1" {
			if env.noRecords() {
				return list, nil
			}
			return nil, env.apiError(actionTxList)
		}

		var rows []Transaction
		if err := jsonAPI.Unmarshal(env.Result, &rows); err != nil {
			return nil, fmt.Errorf("%w: tx list: %v", ErrMalformedResponse, err)
		}
		list.Transactions = append(list.Transactions, rows...)

		if len(rows) < c.cfg.PageSize {
			return list, nil
		}
	}

	list.Truncated = true
	c.log.Warn("tx list truncated at page limit",
		zap.String("address", address),
		zap.Int("pages", list.Pages),
		zap.Int("rows", len(list.Transactions)))
	return list, nil
}

// envelope is the Etherscan response wrapper. Result is raw because it is a
// JSON array or string on success and a plain error string on failure.
type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

func (e *envelope) apiError(action string) *APIError {
	return &APIError{Action: action, Message: e.Message, Result: resultString(e.Result)}
}

func (e *envelope) noRecords() bool {
	if !strings.EqualFold(e.Message, noRecordsMessage) {
		return false
	}
	var rows []jsoniter.RawMessage
	return len(e.Result) == 0 || jsonAPI.Unmarshal(e.Result, &rows) == nil
}

// resultString decodes a JSON string result, falling back to the raw text
// for bare numbers.
func resultString(raw jsoniter.RawMessage) string {
	var s string
	if err := jsonAPI.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// call performs one logical explorer request with rate limiting, a per-call
// timeout and retries on transient failures.
func (c *Client) call(ctx context.Context, action string, params url.Values) (*envelope, error) {
	endpoint, err := c.endpoint(params)
	if err != nil {
		return nil, err
	}

	var env *envelope
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				// The limiter refuses waits that would outlive the deadline.
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return backoff.Permanent(err)
		}
		e, err := c.once(ctx, action, endpoint)
		if err != nil {
			if retryable(ctx, err) {
				c.log.Warn("explorer call failed, retrying",
					zap.String("action", action),
					zap.Int("attempt", attempt),
					zap.Error(err))
				return err
			}
			return backoff.Permanent(err)
		}
		env = e
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.RetryInterval
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) endpoint(params url.Values) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid explorer base URL %q: %w", c.cfg.BaseURL, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	if c.cfg.ChainID != 0 {
		q.Set("chainid", strconv.FormatInt(c.cfg.ChainID, 10))
	}
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// once performs a single HTTP round trip and decodes the envelope.
// Rate-limit responses come back as retryable errors.
func (c *Client) once(ctx context.Context, action, endpoint string) (*envelope, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building explorer request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRequestError(http.MethodGet, action)
		return nil, fmt.Errorf("explorer %s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	duration := time.Since(start)
	c.metrics.RecordRequestDuration(http.MethodGet, action, resp.StatusCode, duration)
	c.metrics.RecordRequestCount(http.MethodGet, action, resp.StatusCode)
	if err != nil {
		c.metrics.RecordRequestError(http.MethodGet, action)
		return nil, fmt.Errorf("reading explorer %s response: %w", action, err)
	}

	c.log.Debug("explorer call",
		zap.String("action", action),
		zap.Int64("chain_id", c.cfg.ChainID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordRequestError(http.MethodGet, action)
		return nil, &StatusError{Action: action, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var env envelope
	if err := jsonAPI.Unmarshal(body, &env); err != nil {
		c.metrics.RecordRequestError(http.MethodGet, action)
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, action, err)
	}
	if env.Status == "" && len(env.Result) == 0 {
		c.metrics.RecordRequestError(http.MethodGet, action)
		return nil, fmt.Errorf("%w: %s: missing status and result", ErrMalformedResponse, action)
	}
	if env.Status != "1" {
		if apiErr := env.apiError(action); apiErr.RateLimited() {
			return nil, apiErr
		}
	}
	return &env, nil
}

// retryable decides whether a failed attempt should be repeated. The inbound
// context being done is never retryable; a per-call timeout is.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RateLimited()
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	return true
}
