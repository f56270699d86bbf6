// Command server runs the guard API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/internal/infra/http"
	"github.com/makerstokyo/api/internal/infra/http/routes"
	"github.com/makerstokyo/api/internal/infra/telemetry"
	"github.com/makerstokyo/api/pkg/logger"
)

const traceFlushTimeout = 5 * time.Second

var (
	listRoutes  = flag.Bool("routes", false, "print registered routes and exit")
	routeFormat = flag.String("route-format", "table", "route listing format: table, json or simple")
	routeMethod = flag.String("route-method", "", "only list routes with this method")
	routePath   = flag.String("route-path", "", "only list routes whose path contains this")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flushTraces, err := telemetry.Setup(ctx, cfg.App, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		fctx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
		defer cancel()
		if err := flushTraces(fctx); err != nil {
			log.Warn("flush traces", "error", err)
		}
	}()

	infra, err := NewInfra(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("infrastructure: %w", err)
	}
	defer infra.Close(log)

	server := http.NewServer(cfg, infra.OriginGuard, log,
		http.WithClientIdentifier(infra.Resolver.Resolve),
		http.WithCleanup(infra.StopBackground),
	)
	svc := NewServices(cfg, infra, log)
	routes.Register(server.Router(), NewHandlers(cfg, infra, svc, log), NewGuards(cfg, infra, log))

	if *listRoutes {
		return http.PrintRoutes(os.Stdout, http.CollectRoutes(server.Router()), *routeFormat,
			http.RouteFilters{Method: *routeMethod, Path: *routePath})
	}

	log.Info("starting", "app", cfg.App.Name, "env", cfg.App.Env, "addr", cfg.Server.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

// newLogger builds the process logger. Development always logs text.
func newLogger(cfg *config.Config) *logger.Logger {
	sampling := logger.DefaultSamplingConfig()
	sampling.Enabled = cfg.Log.SamplingEnabled
	//nolint:gosec // G115: Validate rejects negative thresholds
	sampling.Threshold = uint64(cfg.Log.SamplingThreshold)
	sampling.Rate = cfg.Log.SamplingRate
	sampling.ErrorRate = cfg.Log.ErrorSamplingRate
	sampling.EnableMetrics = sampling.Enabled
	if sampling.EnableMetrics {
		logger.RegisterMetrics(nil)
	}

	format := cfg.Log.Format
	if cfg.IsDevelopment() {
		format = "text"
	}
	log := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Format:   format,
		Output:   os.Stdout,
		Sampling: sampling,
	})
	log.SetDefault()
	return log
}
