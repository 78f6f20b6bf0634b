package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3gas/internal/cache"
	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/explorer"
	"github.com/Mohsinsiddi/w3gas/internal/gas"
	"github.com/Mohsinsiddi/w3gas/internal/metrics"
	"github.com/Mohsinsiddi/w3gas/internal/price"
	"github.com/Mohsinsiddi/w3gas/internal/secrets"
	"github.com/Mohsinsiddi/w3gas/internal/ui"
)

// envKeyringPassword unlocks the file keyring on hosts without a desktop keychain.
const envKeyringPassword = "W3GAS_KEYRING_PASSWORD"

const sweepInterval = time.Minute

// openStore opens the secret store. Tests swap it for secrets.NewMemory.
var openStore = func() (secrets.Store, error) {
	return secrets.OpenKeystore(secrets.KeystoreConfig{
		FileDir:      filepath.Join(cfg.Dir(), "keyring"),
		FilePassword: os.Getenv(envKeyringPassword),
	})
}

// resolveAPIKey falls back to the keychain when neither config nor env set
// the key. An unavailable keychain is only worth a warning.
func resolveAPIKey() {
	if cfg.APIKey != "" {
		return
	}
	store, err := openStore()
	if err == nil {
		err = cfg.ResolveAPIKey(store)
	}
	if err != nil && verbose {
		fmt.Fprintln(os.Stderr, ui.Warn("keychain unavailable: "+err.Error()))
	}
}

// stack is the calculation pipeline shared by calc and serve.
type stack struct {
	factory *gas.Factory
	cache   cache.Cache
	closers []func() error
}

// newStack wires explorer, cache and price lookup from cfg. The in-process
// cache is only used when memCache is set, since it is useless to a
// one-shot command.
func newStack(ctx context.Context, log *zap.Logger, m *metrics.Registry, memCache bool) (*stack, error) {
	base := explorer.New(cfg.Explorer(), explorer.WithMetrics(m), explorer.WithLogger(log))

	st := &stack{}
	ttl := cfg.CacheTTL.Std()
	switch {
	case ttl <= 0:
	case cfg.RedisAddr != "":
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		st.cache = cache.NewRedis(rdb)
		st.closers = append(st.closers, rdb.Close)
	case memCache:
		mem := cache.NewMemory()
		go mem.RunSweeper(ctx, sweepInterval)
		st.cache = mem
	}

	opts := []gas.Option{
		gas.WithLogger(log),
		gas.WithMetrics(m),
		gas.WithLenientPeriods(cfg.LenientPeriods),
		gas.WithPricer(price.NewFetcher(cfg.PriceURL)),
	}
	if st.cache != nil {
		opts = append(opts, gas.WithCache(st.cache, ttl))
	}
	st.factory = gas.NewFactory(chain.NewRegistry(), base, cfg.Chain, opts...)
	return st, nil
}

// Close releases the cache connection.
func (s *stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
