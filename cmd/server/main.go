package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayuxy027/Krishak-AI/internal/adapter/rest"
	"github.com/ayuxy027/Krishak-AI/internal/di"
	"github.com/ayuxy027/Krishak-AI/internal/infra/config"
	"github.com/ayuxy027/Krishak-AI/internal/infra/logger"
	"github.com/ayuxy027/Krishak-AI/internal/infra/otel"
)

var errDraining = errors.New("server is shutting down")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv(cfg.Provider)
	otelCfg.Enabled = cfg.OTelEnabled
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Error("failed to initialize otel", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Logger
	log := logger.NewWithOTel(cfg.LogLevel, cfg.OTelEnabled)
	slog.SetDefault(log)

	// 4. Wire components
	components, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		log.Error("failed to wire application", "error", err)
		os.Exit(1)
	}

	var draining atomic.Bool
	ready := func(context.Context) error {
		if draining.Load() {
			return errDraining
		}
		return nil
	}

	var routerOpts []rest.RouterOption
	if otelCfg.Enabled {
		routerOpts = append(routerOpts, rest.WithTracing(otelCfg.ServiceName))
	}
	e := rest.NewRouter(components.Handler, components.Registry, ready, routerOpts...)

	// 5. Start server with errgroup for graceful shutdown
	addr := cfg.Addr()
	log.InfoContext(ctx, "starting server", "addr", addr, "provider", components.Transport.Provider())

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		draining.Store(true)
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server exited properly")
}
