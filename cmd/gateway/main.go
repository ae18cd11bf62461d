// Command gateway runs the HTTP-to-broker API gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkedout/api-gateway/internal/auth"
	"github.com/linkedout/api-gateway/internal/broker"
	"github.com/linkedout/api-gateway/internal/config"
	"github.com/linkedout/api-gateway/internal/correlation"
	"github.com/linkedout/api-gateway/internal/metrics"
	"github.com/linkedout/api-gateway/internal/pkg/logger"
	"github.com/linkedout/api-gateway/internal/server"
	"github.com/linkedout/api-gateway/internal/service"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	provider, err := auth.NewTokenProvider(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationMs)*time.Millisecond)
	if err != nil {
		return err
	}

	registry := correlation.NewRegistry(cfg.Request.MaxInFlight)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher service.Publisher
	if cfg.Broker.Enabled {
		instanceID := uuid.NewString()
		b, err := broker.Connect(cfg.Broker, instanceID)
		if err != nil {
			return err
		}
		defer b.Close()

		listener := broker.NewListener(b, registry, m, cfg.Broker.ListenerWorkers)
		if err := listener.Start(ctx); err != nil {
			return err
		}
		publisher = b
	} else {
		logger.L().Warn("broker disabled; all proxied routes will answer 503")
		publisher = broker.Disabled{}
	}

	bridge := service.NewBridge(publisher, registry, m, cfg.Request)
	srv := server.New(cfg, bridge, provider, m)

	httpServer := &http.Server{
		Addr:    srv.Addr(),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("gateway listening", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
