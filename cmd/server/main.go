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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/openlifting/liftrelay/internal/broker"
	"github.com/openlifting/liftrelay/internal/cache"
	"github.com/openlifting/liftrelay/internal/config"
	"github.com/openlifting/liftrelay/internal/httpapi"
	"github.com/openlifting/liftrelay/internal/hub"
	"github.com/openlifting/liftrelay/internal/ingest"
	"github.com/openlifting/liftrelay/internal/relay"
	"github.com/openlifting/liftrelay/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	h := hub.New(logger.Named("hub"))
	b := broker.New(logger.Named("broker"))
	h.OnChange(relay.Notifier(h, b, logger.Named("relay")))

	c := cache.New(cfg.CacheCapacity, h.Version, logger.Named("cache"))
	adapter := ingest.New(h, cfg.MinProtocol, logger.Named("ingest"))
	origin := ws.NewOrigin(h, adapter, logger.Named("origin"))

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:         h,
		Broker:      b,
		Cache:       c,
		Origin:      origin,
		SendBuffer:  cfg.SendBuffer,
		AdminSecret: cfg.AdminSecret,
		Log:         logger.Named("http"),
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr),
			zap.Int("min_protocol", cfg.MinProtocol))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		origin.ForceResync() // closes the origin socket on the way down
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("bye")
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
