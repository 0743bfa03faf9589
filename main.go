package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MJE43/casino-engine/internal/api"
	"github.com/MJE43/casino-engine/internal/config"
	"github.com/MJE43/casino-engine/internal/logger"
	"github.com/MJE43/casino-engine/internal/session"
	"github.com/MJE43/casino-engine/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Error(ctx).Err(err).Msg("casino engine stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.LogFile != "" {
		closer, err := logger.InitWithFile(cfg.LogFile, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("init log file: %w", err)
		}
		defer closer.Close()
	} else {
		logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeQuietly(ctx, "store", db)

	sess := session.New(session.Options{
		ID:     cfg.SessionID,
		Rules:  rules,
		Source: cfg.Source(),
		Store:  db,
	})
	sess.Load(ctx)

	srv := api.NewServer(sess, api.Options{
		Store:             db,
		Runs:              db,
		AutoplayMaxRounds: cfg.AutoplayMaxRounds,
		AutoplayTimeout:   cfg.AutoplayTimeout,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info(ctx).
		Str("addr", cfg.Addr).
		Str("db", cfg.DBPath).
		Str("session", cfg.SessionID).
		Bool("provably_fair", cfg.FairMode()).
		Int("balance", sess.Balance()).
		Msg("casino engine starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		srv.Hub().Shutdown()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func closeQuietly(ctx context.Context, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn(ctx).Err(err).Str("resource", name).Msg("close failed")
	}
}
