// Package server exposes the gas calculator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/gas"
	"github.com/Mohsinsiddi/w3gas/internal/metrics"
)

// Calculator runs one gas calculation. *gas.Factory satisfies it.
type Calculator interface {
	Calculate(ctx context.Context, req gas.Request) (*gas.Report, error)
}

// Options configures a Server.
type Options struct {
	Addr string
	// Listener, when set, is served instead of binding Addr (an inherited
	// socket-activation listener).
	Listener    net.Listener
	Stage       string
	CORSOrigins []string
	// CacheName is reported by /health: "redis", "memory" or "disabled".
	CacheName string

	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	// RequestTimeout bounds one POST /calculate. It is clamped below
	// WriteTimeout.
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	opts    Options
	calc    Calculator
	chains  *chain.Registry
	metrics *metrics.Registry
	log     *zap.Logger
	engine  *gin.Engine
}

// New builds a Server and its routes. metrics and log may be nil.
func New(opts Options, calc Calculator, chains *chain.Registry, m *metrics.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	if chains == nil {
		chains = chain.NewRegistry()
	}
	if opts.CacheName == "" {
		opts.CacheName = "disabled"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.WriteTimeout > 0 && (opts.RequestTimeout <= 0 || opts.RequestTimeout >= opts.WriteTimeout) {
		opts.RequestTimeout = opts.WriteTimeout - opts.WriteTimeout/6
	}

	if opts.Stage == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		opts:    opts,
		calc:    calc,
		chains:  chains,
		metrics: m,
		log:     log.Named("http"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		requestID(),
		accessLog(s.log, s.metrics),
		gin.CustomRecovery(recovery(s.log)),
		corsMiddleware(s.opts.CORSOrigins),
	)

	r.GET("/", s.handleRoot)
	r.POST("/calculate", s.handleCalculate)
	r.GET("/health", s.handleHealth)
	r.GET("/periods", s.handlePeriods)
	r.GET("/chains", s.handleChains)
	r.GET("/metrics", s.handleMetrics)
	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, codeNotFound, "route not found")
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then drains in-flight requests for up to
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if l := s.opts.Listener; l != nil {
			s.log.Info("listening", zap.String("addr", l.Addr().String()), zap.Bool("inherited", true), zap.String("cache", s.opts.CacheName))
			err = srv.Serve(l)
		} else {
			s.log.Info("listening", zap.String("addr", s.opts.Addr), zap.String("cache", s.opts.CacheName))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	cfg.ExposeHeaders = []string{RequestIDHeader}
	return cors.New(cfg)
}
