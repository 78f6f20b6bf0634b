package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// DefaultChain is used when a request does not name a chain.
const DefaultChain = "ethereum"

// Chain holds the metadata needed to query a chain through the Etherscan V2
// unified API and to value its fees.
type Chain struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	ChainID        int64  `json:"chain_id"`
	NativeCurrency string `json:"native_currency"`
	Explorer       string `json:"explorer"`
	CoinGeckoID    string `json:"coingecko_id"`
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry returns the registry of every chain served by Etherscan V2.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// Names returns the chain slugs in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.chains))
	for _, c := range r.chains {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// GetByName finds a chain by its slug (e.g. "base", "ethereum").
// An empty name resolves to DefaultChain.
func (r *Registry) GetByName(name string) (*Chain, error) {
	if name == "" {
		name = DefaultChain
	}
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// AddressURL returns the explorer page for an address.
func (c *Chain) AddressURL(address string) string {
	return c.Explorer + "/address/" + address
}

// --- chain data ---

func allChains() []Chain {
	return []Chain{
		{Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, NativeCurrency: "ETH", Explorer: "https://etherscan.io", CoinGeckoID: "ethereum"},
		{Name: "base", DisplayName: "Base", ChainID: 8453, NativeCurrency: "ETH", Explorer: "https://basescan.org", CoinGeckoID: "ethereum"},
		{Name: "polygon", DisplayName: "Polygon", ChainID: 137, NativeCurrency: "MATIC", Explorer: "https://polygonscan.com", CoinGeckoID: "matic-network"},
		{Name: "arbitrum", DisplayName: "Arbitrum", ChainID: 42161, NativeCurrency: "ETH", Explorer: "https://arbiscan.io", CoinGeckoID: "ethereum"},
		{Name: "optimism", DisplayName: "Optimism", ChainID: 10, NativeCurrency: "ETH", Explorer: "https://optimistic.etherscan.io", CoinGeckoID: "ethereum"},
		{Name: "zksync", DisplayName: "zkSync Era", ChainID: 324, NativeCurrency: "ETH", Explorer: "https://explorer.zksync.io", CoinGeckoID: "ethereum"},
		{Name: "scroll", DisplayName: "Scroll", ChainID: 534352, NativeCurrency: "ETH", Explorer: "https://scrollscan.com", CoinGeckoID: "ethereum"},
		{Name: "bnb", DisplayName: "BNB Chain", ChainID: 56, NativeCurrency: "BNB", Explorer: "https://bscscan.com", CoinGeckoID: "binancecoin"},
		{Name: "avalanche", DisplayName: "Avalanche", ChainID: 43114, NativeCurrency: "AVAX", Explorer: "https://snowtrace.io", CoinGeckoID: "avalanche-2"},
		{Name: "gnosis", DisplayName: "Gnosis", ChainID: 100, NativeCurrency: "xDAI", Explorer: "https://gnosisscan.io", CoinGeckoID: "xdai"},
		{Name: "linea", DisplayName: "Linea", ChainID: 59144, NativeCurrency: "ETH", Explorer: "https://lineascan.build", CoinGeckoID: "ethereum"},
		{Name: "mantle", DisplayName: "Mantle", ChainID: 5000, NativeCurrency: "MNT", Explorer: "https://mantlescan.xyz", CoinGeckoID: "mantle"},
		{Name: "celo", DisplayName: "Celo", ChainID: 42220, NativeCurrency: "CELO", Explorer: "https://celoscan.io", CoinGeckoID: "celo"},
		{Name: "fantom", DisplayName: "Fantom", ChainID: 250, NativeCurrency: "FTM", Explorer: "https://ftmscan.com", CoinGeckoID: "fantom"},
	}
}
