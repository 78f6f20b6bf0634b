package chain_test

import (
	"testing"

	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasAllChains(t *testing.T) {
	registry := chain.NewRegistry()
	assert.Equal(t, 14, len(registry.All()))
}

func TestRegistryGetByName(t *testing.T) {
	registry := chain.NewRegistry()

	tests := []struct {
		name    string
		chainID int64
	}{
		{"ethereum", 1},
		{"base", 8453},
		{"polygon", 137},
		{"arbitrum", 42161},
		{"optimism", 10},
		{"bnb", 56},
		{"avalanche", 43114},
		{"fantom", 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := registry.GetByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.chainID, c.ChainID)
		})
	}
}

func TestRegistryGetByNameIsCaseInsensitive(t *testing.T) {
	registry := chain.NewRegistry()
	c, err := registry.GetByName("  Base ")
	require.NoError(t, err)
	assert.Equal(t, "base", c.Name)
}

func TestRegistryEmptyNameIsDefault(t *testing.T) {
	registry := chain.NewRegistry()
	c, err := registry.GetByName("")
	require.NoError(t, err)
	assert.Equal(t, chain.DefaultChain, c.Name)
}

func TestRegistryGetUnknownChain(t *testing.T) {
	registry := chain.NewRegistry()
	_, err := registry.GetByName("solana")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestRegistryGetByChainID(t *testing.T) {
	registry := chain.NewRegistry()
	c, err := registry.GetByChainID(534352)
	require.NoError(t, err)
	assert.Equal(t, "scroll", c.Name)

	_, err = registry.GetByChainID(999999)
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestRegistryNamesSorted(t *testing.T) {
	names := chain.NewRegistry().Names()
	require.NotEmpty(t, names)
	assert.Equal(t, "arbitrum", names[0])
	assert.IsNonDecreasing(t, names)
}

func TestAllChainsHaveMetadata(t *testing.T) {
	registry := chain.NewRegistry()
	for _, c := range registry.All() {
		t.Run(c.Name, func(t *testing.T) {
			assert.NotZero(t, c.ChainID)
			assert.NotEmpty(t, c.DisplayName)
			assert.NotEmpty(t, c.NativeCurrency)
			assert.NotEmpty(t, c.Explorer)
			assert.NotEmpty(t, c.CoinGeckoID)
		})
	}
}

func TestAddressURL(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "https://etherscan.io/address/0xabc", c.AddressURL("0xabc"))
}
