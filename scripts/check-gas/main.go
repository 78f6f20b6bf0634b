// check-gas: sums gas used over one period for a set of wallets across
// several chains in parallel and prints a summary table. Every chain shares
// one explorer rate limiter, so the free-tier limit holds.
//
// Run from the module root with APIKEY set:
//
//	go run ./scripts/check-gas [period]
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/w3gas/internal/address"
	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/config"
	"github.com/Mohsinsiddi/w3gas/internal/explorer"
	"github.com/Mohsinsiddi/w3gas/internal/gas"
	"github.com/Mohsinsiddi/w3gas/internal/period"
	"github.com/Mohsinsiddi/w3gas/internal/price"
)

// ── config ────────────────────────────────────────────────────────────────────

var wallets = []string{
	"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
	"0x802D8097eC1D49808F3c2c866020442891adde57",
}

var chains = []string{"ethereum", "base", "arbitrum", "optimism", "polygon"}

const (
	callTimeout = 60 * time.Second
	currency    = "usd"
)

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	chain   string
	wallet  string // short form
	gasUsed string
	txs     string
	fee     string
	symbol  string
	fiat    string
	err     string
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	name := period.Last30Days
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	if !period.Known(name) {
		fmt.Fprintf(os.Stderr, "unknown period %q (valid: %s)\n", name, strings.Join(period.Names(), ", "))
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv(config.EnvConfigDir))
	if err == nil {
		err = cfg.ApplyEnv(os.LookupEnv)
	}
	if err == nil {
		err = cfg.Validate(false)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	registry := chain.NewRegistry()
	factory := gas.NewFactory(registry, explorer.New(cfg.Explorer()), chain.DefaultChain)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, c := range chains {
		for _, wallet := range wallets {
			wg.Add(1)
			go func(c, wallet string) {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
				defer cancel()

				r := result{chain: c, wallet: address.Short(wallet)}
				report, err := factory.Calculate(ctx, gas.Request{Address: wallet, Period: name, Chain: c})
				if err != nil {
					r.gasUsed, r.txs, r.fee = "—", "—", "—"
					r.err = shortErr(err)
				} else {
					r.gasUsed = strconv.FormatUint(report.GasUsed, 10)
					r.txs = strconv.Itoa(report.TxCount)
					r.fee = report.FeeNative
					r.symbol = report.Symbol
					if report.Truncated {
						r.err = "truncated"
					}
				}

				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}(c, wallet)
		}
	}

	wg.Wait()

	addFiat(registry, results)
	printTable(name, results)
}

// addFiat values every fee with one batched price request. A failed price
// lookup leaves the column empty.
func addFiat(registry *chain.Registry, results []result) {
	coinIDs := make([]string, 0, len(chains))
	for _, name := range chains {
		if c, err := registry.GetByName(name); err == nil && c.CoinGeckoID != "" {
			coinIDs = append(coinIDs, c.CoinGeckoID)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	prices, err := price.NewFetcher(os.Getenv(config.EnvPriceURL)).Prices(ctx, coinIDs, currency)
	if err != nil {
		fmt.Fprintln(os.Stderr, "prices unavailable:", err)
		return
	}

	for i := range results {
		c, err := registry.GetByName(results[i].chain)
		if err != nil {
			continue
		}
		p, ok := prices[c.CoinGeckoID]
		fee, ferr := strconv.ParseFloat(results[i].fee, 64)
		if !ok || ferr != nil {
			continue
		}
		results[i].fiat = strconv.FormatFloat(fee*p, 'f', 2, 64)
	}
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(name string, results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.chain != b.chain {
			return a.chain < b.chain
		}
		return a.wallet < b.wallet
	})

	fmt.Printf("Gas used over %s\n\n", name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "CHAIN\tWALLET\tGAS USED\tTXS\tFEE\tSYMBOL\t"+strings.ToUpper(currency)+"\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 5)+"\t"+
		strings.Repeat("-", 20)+"\t"+
		strings.Repeat("-", 6)+"\t"+
		strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 12))

	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.chain, r.wallet, r.gasUsed, r.txs, r.fee, r.symbol, r.fiat, r.err)
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 40 {
		return s[:40] + "…"
	}
	return s
}
