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

	"bookshelf/internal/book"
	"bookshelf/internal/config"
	"bookshelf/internal/platform/database"
	"bookshelf/internal/platform/logging"
	"bookshelf/internal/server"
	"bookshelf/web"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	policy := database.RetryPolicy{Attempts: cfg.ReadyAttempts, Delay: cfg.ReadyDelay}
	if err := book.NewInitializer(store, policy, logger).Run(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("database initialization failed, starting anyway", zap.Error(err))
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Config:   cfg,
		Logger:   logger,
		Books:    store,
		DB:       store,
		Renderer: renderer,
	})
	defer srv.Close()

	if cfg.Env == config.EnvTest {
		logger.Info("test environment, listener not started")
		return nil
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server",
			zap.String("addr", httpServer.Addr),
			zap.String("env", cfg.Env),
			zap.String("driver", cfg.DBDriver),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects the configured record store. The returned func closes
// the underlying pool.
func openStore(ctx context.Context, cfg config.Config) (book.Store, func(), error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return book.NewSQLiteRepo(db), func() { _ = db.Close() }, nil
	default:
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseDSN, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return book.NewPostgresRepo(pool, cfg.QueryTimeout), pool.Close, nil
	}
}
