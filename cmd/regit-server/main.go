package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/regit-contracts/regit/app"
	"github.com/regit-contracts/regit/config"
	"github.com/regit-contracts/regit/internal/observability"
	"github.com/regit-contracts/regit/routes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "regit-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger, err := initLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			logger.Error("failed to close dependencies", zap.Error(err))
		}
	}()

	endpoints := []endpoint{}

	api, err := listen("api", cfg.Server.Address(), &http.Server{
		Handler:           routes.SetupRoutes(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	})
	if err != nil {
		return err
	}
	if cfg.Server.TLS.Enabled {
		api.certFile, api.keyFile = cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
	}
	endpoints = append(endpoints, api)

	if cfg.Observability.MetricsEnabled && cfg.Observability.MetricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", deps.Metrics.Handler())
		metrics, err := listen("metrics", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Observability.MetricsPort), &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
		if err != nil {
			_ = api.listener.Close()
			return err
		}
		endpoints = append(endpoints, metrics)
	}

	logger.Info("regit server starting",
		zap.String("environment", cfg.Environment),
		zap.String("address", cfg.Server.Address()),
		zap.Bool("tls", cfg.Server.TLS.Enabled))

	return serve(ctx, logger, cfg.Server.ShutdownTimeout, endpoints...)
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func initLogger() (*zap.Logger, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "json"
	}
	return observability.NewLogger(level, format)
}

type endpoint struct {
	name     string
	server   *http.Server
	listener net.Listener
	certFile string
	keyFile  string
}

func listen(name, addr string, server *http.Server) (endpoint, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return endpoint{}, fmt.Errorf("failed to listen on %s for %s: %w", addr, name, err)
	}
	return endpoint{name: name, server: server, listener: listener}, nil
}

// serve runs every endpoint until ctx is cancelled or one of them fails,
// then shuts all of them down within timeout.
func serve(ctx context.Context, logger *zap.Logger, timeout time.Duration, endpoints ...endpoint) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, e := range endpoints {
		g.Go(func() error {
			logger.Info("listening", zap.String("server", e.name), zap.String("address", e.listener.Addr().String()))

			var err error
			if e.certFile != "" {
				err = e.server.ServeTLS(e.listener, e.certFile, e.keyFile)
			} else {
				err = e.server.Serve(e.listener)
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", e.name, err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			logger.Info("shutting down", zap.String("server", e.name))
			if err := e.server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("%s shutdown: %w", e.name, err)
			}
			return nil
		})
	}

	return g.Wait()
}
