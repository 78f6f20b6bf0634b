package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3gas/internal/cache"
	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/config"
	"github.com/Mohsinsiddi/w3gas/internal/logger"
	"github.com/Mohsinsiddi/w3gas/internal/metrics"
	"github.com/Mohsinsiddi/w3gas/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /calculate over HTTP",
	Long: `Start the HTTP API.

HOST, PORT and APIKEY must be set (environment, .env, config.json or flags).
Under socket activation (LISTEN_FDS) the inherited listener is served and
HOST/PORT are not needed. Stops gracefully on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("host") {
			cfg.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		resolveAPIKey()
		ln, err := inheritedListener()
		if err != nil {
			return err
		}
		if err := cfg.Validate(ln == nil); err != nil {
			if ln != nil {
				_ = ln.Close()
			}
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		addr := cfg.Addr()
		if ln != nil {
			addr = ln.Addr().String()
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log, err := logger.New(logger.Config{Level: level, Stage: cfg.Stage, Service: "w3gas"})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		st, err := newStack(ctx, log, m, true)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Warn("closing cache", zap.Error(err))
			}
		}()

		srv := server.New(server.Options{
			Addr:              cfg.Addr(),
			Listener:          ln,
			Stage:             cfg.Stage,
			CORSOrigins:       cfg.CORSOrigins,
			CacheName:         cache.NameOf(st.cache),
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			WriteTimeout:      config.WriteTimeout,
			RequestTimeout:    config.RequestTimeout,
			ShutdownTimeout:   config.ShutdownTimeout,
		}, st.factory, chain.NewRegistry(), m, log)

		log.Info("w3gas starting",
			zap.String("version", Version),
			zap.String("addr", addr),
			zap.String("chain", cfg.Chain),
			zap.String("explorer", cfg.ExplorerURL),
			zap.String("cache", cache.NameOf(st.cache)),
			zap.String("api_key", cfg.APIKeySource))
		return srv.Run(ctx)
	},
}

// listeners is swapped in tests.
var listeners = func() ([]net.Listener, error) { return activation.Listeners() }

// inheritedListener returns the first socket passed by the service manager,
// or nil when the process was started without socket activation.
func inheritedListener() (net.Listener, error) {
	ls, err := listeners()
	if err != nil {
		return nil, fmt.Errorf("socket activation: %w", err)
	}
	var picked net.Listener
	for _, l := range ls {
		switch {
		case l == nil:
		case picked == nil:
			picked = l
		default:
			_ = l.Close()
		}
	}
	return picked, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides HOST)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
}
