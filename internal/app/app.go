// Package app wires storage, the engine, the job worker and the HTTP API into
// one runnable server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/config"
	"github.com/MrEthical07/goCred/internal/dbx"
	"github.com/MrEthical07/goCred/internal/httpapi"
	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/MrEthical07/goCred/jobs"
	promexp "github.com/MrEthical07/goCred/metrics/export/prometheus"
	"github.com/MrEthical07/goCred/session"
	"github.com/MrEthical07/goCred/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	jobBufferSize = 256
	jobDelay      = 100 * time.Millisecond
)

type App struct {
	cfg    config.Config
	log    *logging.SlogLogger
	db     *sql.DB
	redis  redis.UniversalClient
	mini   *miniredis.Miniredis
	engine *goCred.Engine
	worker *jobs.Worker
	server *http.Server

	closeOnce sync.Once
}

// New opens every dependency and builds the engine. On error everything
// opened so far is closed.
func New(ctx context.Context, cfg config.Config, logger *logging.SlogLogger) (_ *App, err error) {
	a := &App{cfg: cfg, log: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// -------- DATABASE --------
	a.db, err = store.Open(ctx, cfg.Dialect(), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err = store.Migrate(ctx, a.db, cfg.Dialect()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// -------- REDIS --------
	opts := &redis.Options{Addr: cfg.RedisAddr(), Password: cfg.RedisPassword}
	if cfg.Dev {
		a.mini, err = miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start in-process redis: %w", err)
		}
		opts = &redis.Options{Addr: a.mini.Addr()}
		logger.Info(ctx, "using in-process redis", "addr", a.mini.Addr())
	}
	a.redis = redis.NewClient(opts)

	// -------- ENGINE --------
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	// The SQL slot lives on the users row, so registration can create the
	// account and its session in one transaction.
	var (
		sessions goCred.SessionStore
		users    goCred.UserProvider
	)
	switch cfg.SessionBackend {
	case config.BackendSQL:
		sessions = session.NewSQLStore(a.db, cfg.Dialect())
		users = store.NewTxProvider(a.db, cfg.Dialect(), func(ctx context.Context, tx dbx.DBTX, userID, token string) error {
			return session.NewSQLStore(tx, cfg.Dialect()).Replace(ctx, userID, token)
		})
	default:
		sessions = session.NewRedisStore(a.redis, "", engineCfg.JWT.RefreshTTL)
		users = store.NewProvider(store.NewUsers(a.db, cfg.Dialect()))
	}

	queue := jobs.NewQueue(a.redis, jobs.QueueConfig{})
	dispatcher := jobs.NewDispatcher(jobs.DispatcherConfig{
		BufferSize: jobBufferSize,
		DropIfFull: true,
	}, queue, logger)

	a.engine, err = goCred.New().
		WithConfig(engineCfg).
		WithUserProvider(users).
		WithSessionStore(sessions).
		WithJobSink(dispatcher).
		WithLogger(logger.Slog()).
		Build()
	if err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}

	a.worker = jobs.NewWorker(queue, jobs.WorkerConfig{JobTimeout: 30 * time.Second}, logger)
	jobs.RegisterDefaults(a.worker, logger, jobDelay)

	// -------- HTTP --------
	reg, err := promexp.NewRegistry(a.engine)
	if err != nil {
		return nil, fmt.Errorf("metrics registry: %w", err)
	}

	api := httpapi.New(httpapi.Options{
		Engine: a.engine,
		Jobs:   queue,
		Checks: []httpapi.Check{
			{Name: "database", Ping: a.db.PingContext},
			{Name: "redis", Ping: func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }},
		},
		Metrics:     promexp.Handler(reg),
		Environment: cfg.Environment,
		Logger:      logger.With("component", "http"),
	})

	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP and processes jobs until ctx is cancelled or the listener
// fails, then shuts down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.worker.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info(ctx, "http server listening", "addr", a.server.Addr, "environment", a.cfg.Environment)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	a.log.Info(context.Background(), "shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout.Std())
	defer stop()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn(shutdownCtx, "http shutdown", "error", err)
	}

	cancel()
	wg.Wait()
	a.Close()
	return runErr
}

// Close releases every dependency. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.engine != nil {
			a.engine.Close()
		}
		if a.redis != nil {
			_ = a.redis.Close()
		}
		if a.mini != nil {
			a.mini.Close()
		}
		if a.db != nil {
			_ = a.db.Close()
		}
	})
}
