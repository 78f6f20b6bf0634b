package gas

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	addr "github.com/Mohsinsiddi/w3gas/internal/address"
	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/explorer"
	"github.com/Mohsinsiddi/w3gas/internal/period"
)

// Explorer is the block explorer surface the calculator needs.
// *explorer.Client satisfies it.
type Explorer interface {
	BlockNumberByTime(ctx context.Context, timestamp int64) (uint64, error)
	Transactions(ctx context.Context, address string, startBlock, endBlock uint64) (*explorer.TxList, error)
}

// ResultCache stores finished reports between requests.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Report, bool, error)
	Set(ctx context.Context, key string, r *Report, ttl time.Duration) error
	Name() string
}

// Pricer returns the price of a coin in a fiat currency.
type Pricer interface {
	Price(ctx context.Context, coinID, currency string) (float64, error)
}

// CacheMetrics counts cache hits and misses.
type CacheMetrics interface {
	RecordCache(hit bool)
}

// Request is one gas calculation request.
type Request struct {
	Address  string
	Period   string
	Chain    string
	Currency string
}

// Report is the outcome of a calculation.
type Report struct {
	Address    string    `json:"address" msgpack:"address"`
	Chain      string    `json:"chain" msgpack:"chain"`
	Period     string    `json:"time_period" msgpack:"period"`
	GasUsed    uint64    `json:"gas_used" msgpack:"gas_used"`
	TxCount    int       `json:"tx_count" msgpack:"tx_count"`
	FailedTxs  int       `json:"failed_txs" msgpack:"failed_txs"`
	StartBlock uint64    `json:"start_block" msgpack:"start_block"`
	EndBlock   uint64    `json:"end_block" msgpack:"end_block"`
	FeeWei     string    `json:"fee_wei" msgpack:"fee_wei"`
	FeeNative  string    `json:"fee_native" msgpack:"fee_native"`
	Symbol     string    `json:"symbol" msgpack:"symbol"`
	Truncated  bool      `json:"truncated,omitempty" msgpack:"truncated"`
	At         time.Time `json:"calculated_at" msgpack:"at"`

	FeeFiat  *float64 `json:"fee_fiat,omitempty" msgpack:"-"`
	Currency string   `json:"currency,omitempty" msgpack:"-"`
	Warnings []string `json:"warnings,omitempty" msgpack:"-"`
	Cached   bool     `json:"-" msgpack:"-"`
}

// Calculator runs the block lookup, fetch and sum pipeline for one chain.
type Calculator struct {
	explorer Explorer
	chain    chain.Chain
	now      func() time.Time
	lenient  bool

	cache    ResultCache
	cacheTTL time.Duration
	pricer   Pricer
	metrics  CacheMetrics
	log      *zap.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithChain sets the chain the explorer queries. It only affects report
// labels, cache keys and pricing.
func WithChain(c chain.Chain) Option {
	return func(calc *Calculator) { calc.chain = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLenientPeriods makes unknown period names resolve to a zero-length
// window ending now instead of failing with ErrUnknownPeriod.
func WithLenientPeriods(lenient bool) Option {
	return func(c *Calculator) { c.lenient = lenient }
}

// WithCache enables result caching. A nil cache or a non-positive ttl
// leaves caching off.
func WithCache(cache ResultCache, ttl time.Duration) Option {
	return func(c *Calculator) {
		if cache != nil && ttl > 0 {
			c.cache = cache
			c.cacheTTL = ttl
		}
	}
}

// WithPricer enables fiat valuation of the fee.
func WithPricer(p Pricer) Option {
	return func(c *Calculator) { c.pricer = p }
}

// WithMetrics sets the cache metrics sink.
func WithMetrics(m CacheMetrics) Option {
	return func(c *Calculator) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l.Named("gas")
		}
	}
}

// NewCalculator returns a Calculator reading from exp. Without WithChain it
// labels reports with the chain exp queries when exp reports a known chain
// ID, and as the default chain otherwise.
func NewCalculator(exp Explorer, opts ...Option) *Calculator {
	c := &Calculator{
		explorer: exp,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	c.chain = defaultChainFor(exp)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultChainFor(exp Explorer) chain.Chain {
	registry := chain.NewRegistry()
	if withID, ok := exp.(interface{ ChainID() int64 }); ok {
		if c, err := registry.GetByChainID(withID.ChainID()); err == nil {
			return *c
		}
	}
	if def, err := registry.GetByName(chain.DefaultChain); err == nil {
		return *def
	}
	return chain.Chain{}
}

// CacheKey is the key a report is cached under.
func CacheKey(chainName, address, periodName string) string {
	return fmt.Sprintf("w3gas:calc:%s:%s:%s", chainName, addr.Normalize(address), periodName)
}

// Calculate returns the gas used by req.Address over req.Period.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Report, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, ErrInvalidAddress
	}
	name := strings.TrimSpace(req.Period)
	if !period.Known(name) && !c.lenient {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, req.Period)
	}

	key := CacheKey(c.chain.Name, address, name)
	report := c.cached(ctx, key)
	if report == nil {
		var err error
		report, err = c.compute(ctx, address, name)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, report)
	}

	if req.Currency != "" {
		c.price(ctx, report, strings.ToLower(strings.TrimSpace(req.Currency)))
	}
	return report, nil
}

func (c *Calculator) compute(ctx context.Context, address, name string) (*Report, error) {
	now := c.now()

	end, err := c.explorer.BlockNumberByTime(ctx, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("resolving end block: %w", err)
	}

	var start uint64
	if !period.IsAllTime(name) {
		start, err = c.explorer.BlockNumberByTime(ctx, period.Start(now, name))
		if err != nil {
			return nil, fmt.Errorf("resolving start block: %w", err)
		}
	}

	list, err := c.explorer.Transactions(ctx, address, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}

	totals, err := Sum(address, list.Transactions)
	if err != nil {
		return nil, err
	}

	c.log.Debug("gas calculated",
		zap.String("chain", c.chain.Name),
		zap.String("address", address),
		zap.String("period", name),
		zap.Uint64("start_block", start),
		zap.Uint64("end_block", end),
		zap.Int("txs", len(list.Transactions)),
		zap.Uint64("gas_used", totals.GasUsed))

	return &Report{
		Address:    address,
		Chain:      c.chain.Name,
		Period:     name,
		GasUsed:    totals.GasUsed,
		TxCount:    totals.TxCount,
		FailedTxs:  totals.Failed,
		StartBlock: start,
		EndBlock:   end,
		FeeWei:     totals.FeeWei.String(),
		FeeNative:  FormatWei(totals.FeeWei),
		Symbol:     c.chain.NativeCurrency,
		Truncated:  list.Truncated,
		At:         now.UTC(),
	}, nil
}

func (c *Calculator) cached(ctx context.Context, key string) *Report {
	if c.cache == nil {
		return nil
	}
	r, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("cache", c.cache.Name()), zap.Error(err))
		return nil
	}
	if c.metrics != nil {
		c.metrics.RecordCache(ok)
	}
	if !ok || r == nil {
		return nil
	}
	cp := *r
	cp.Cached = true
	cp.FeeFiat, cp.Currency, cp.Warnings = nil, "", nil
	return &cp
}

func (c *Calculator) store(ctx context.Context, key string, r *Report) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, r, c.cacheTTL); err != nil {
		c.log.Warn("cache write failed", zap.String("cache", c.cache.Name()), zap.Error(err))
	}
}

// price fills the fiat fee. Failures become warnings on the report.
func (c *Calculator) price(ctx context.Context, r *Report, currency string) {
	r.Currency = currency
	if c.pricer == nil {
		r.Warnings = append(r.Warnings, "price lookup is not configured")
		return
	}
	if c.chain.CoinGeckoID == "" {
		r.Warnings = append(r.Warnings, fmt.Sprintf("no price source for chain %s", c.chain.Name))
		return
	}
	p, err := c.pricer.Price(ctx, c.chain.CoinGeckoID, currency)
	if err != nil {
		c.log.Warn("price lookup failed", zap.String("coin", c.chain.CoinGeckoID), zap.Error(err))
		r.Warnings = append(r.Warnings, fmt.Sprintf("price lookup failed: %v", err))
		return
	}

	native, err := decimal.NewFromString(r.FeeNative)
	if err != nil {
		r.Warnings = append(r.Warnings, fmt.Sprintf("invalid fee amount %q", r.FeeNative))
		return
	}
	fiat, _ := native.Mul(decimal.NewFromFloat(p)).Round(2).Float64()
	r.FeeFiat = &fiat
}

// Factory builds a Calculator for a chain slug.
type Factory struct {
	registry     *chain.Registry
	explorer     *explorer.Client
	defaultChain string
	opts         []Option
}

// NewFactory returns a Factory that derives per-chain explorers from base.
// opts are applied to every Calculator it builds.
func NewFactory(registry *chain.Registry, base *explorer.Client, defaultChain string, opts ...Option) *Factory {
	return &Factory{registry: registry, explorer: base, defaultChain: defaultChain, opts: opts}
}

// For returns a Calculator for the named chain; an empty name selects the
// default chain. Unknown names fail with chain.ErrChainNotFound.
func (f *Factory) For(name string) (*Calculator, error) {
	if strings.TrimSpace(name) == "" {
		name = f.defaultChain
	}
	ch, err := f.registry.GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}
	opts := append([]Option{WithChain(*ch)}, f.opts...)
	return NewCalculator(f.explorer.ForChain(ch.ChainID), opts...), nil
}

// Calculate dispatches req to the calculator for req.Chain.
func (f *Factory) Calculate(ctx context.Context, req Request) (*Report, error) {
	calc, err := f.For(req.Chain)
	if err != nil {
		return nil, err
	}
	return calc.Calculate(ctx, req)
}
