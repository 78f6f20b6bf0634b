package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultBaseURL is the public CoinGecko API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Fetcher retrieves token prices from CoinGecko's simple/price endpoint.
// Prices are remembered for ttl so bursts of requests cost one upstream call.
type Fetcher struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration

	mu    sync.Mutex
	memo  map[string]quote
	nowFn func() time.Time
}

type quote struct {
	price float64
	at    time.Time
}

// NewFetcher creates a price fetcher. An empty baseURL selects DefaultBaseURL.
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     time.Minute,
		memo:    make(map[string]quote),
		nowFn:   time.Now,
	}
}

// Price returns the price of coinID in currency (e.g. "ethereum", "usd").
func (f *Fetcher) Price(ctx context.Context, coinID, currency string) (float64, error) {
	currency = strings.ToLower(currency)
	if p, ok := f.remembered(coinID, currency); ok {
		return p, nil
	}

	prices, err := f.fetchBatch(ctx, []string{coinID}, currency)
	if err != nil {
		return 0, err
	}
	p, ok := prices[coinID]
	if !ok {
		return 0, fmt.Errorf("price not available for: %s/%s", coinID, currency)
	}
	return p, nil
}

// Prices fetches prices for several coin IDs in one request. IDs the API
// does not know are absent from the result.
func (f *Fetcher) Prices(ctx context.Context, coinIDs []string, currency string) (map[string]float64, error) {
	unique := make(map[string]struct{}, len(coinIDs))
	for _, id := range coinIDs {
		unique[id] = struct{}{}
	}
	ids := make([]string, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return f.fetchBatch(ctx, ids, strings.ToLower(currency))
}

func (f *Fetcher) remembered(coinID, currency string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.memo[coinID+"/"+currency]
	if !ok || f.nowFn().Sub(q.at) >= f.ttl {
		return 0, false
	}
	return q.price, true
}

func (f *Fetcher) fetchBatch(ctx context.Context, ids []string, currency string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", currency)
	endpoint := f.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building price request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching prices: HTTP %d", resp.StatusCode)
	}

	// Response: {"ethereum":{"usd":1234.56}, ...}
	var raw map[string]map[string]float64
	if err := jsonAPI.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing price response: %w", err)
	}

	now := f.nowFn()
	prices := make(map[string]float64)
	f.mu.Lock()
	for id, currencies := range raw {
		if p, ok := currencies[currency]; ok {
			prices[id] = p
			f.memo[id+"/"+currency] = quote{price: p, at: now}
		}
	}
	f.mu.Unlock()
	return prices, nil
}
