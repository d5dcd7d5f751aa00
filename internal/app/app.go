// Package app assembles the pipeline from configuration. The HTTP server
// and the command line tool share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/filtrador/internal/config"
	"github.com/JonMunkholm/filtrador/internal/core"
	"github.com/JonMunkholm/filtrador/internal/metrics"
	"github.com/JonMunkholm/filtrador/internal/source"
	"github.com/JonMunkholm/filtrador/internal/web"
)

// App owns the long-lived pieces built from a Config.
type App struct {
	Config  *config.Config
	Source  source.Source
	Metrics *metrics.Metrics
	Service *core.Service

	pool *pgxpool.Pool
}

// New builds the source, cache, metrics and service described by cfg.
// Postgres mode connects and pings the database before returning.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	mode, err := source.ParseMode(cfg.Source.Mode)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Metrics: metrics.New()}

	var db source.RowQuerier
	if mode == source.ModePostgres {
		a.pool, err = openPool(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		db = a.pool
	}

	a.Source, err = NewSource(mode, &cfg.Source, db)
	if err != nil {
		a.Close()
		return nil, err
	}

	cache := source.NewCache(cfg.Source.CacheTTL, source.WithObserver(a.Metrics))
	limiter := core.NewExportLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWait)
	a.Service = core.NewService(a.Source, cache, Options(cfg), a.Metrics, limiter)

	slog.Info("source configured",
		"source", a.Source.Describe().String(),
		"cache_ttl", cfg.Source.CacheTTL.String(),
	)
	return a, nil
}

// NewSource returns the Source for mode. db is only used in postgres mode.
func NewSource(mode source.Mode, cfg *config.SourceConfig, db source.RowQuerier) (source.Source, error) {
	switch mode {
	case source.ModeFile:
		return source.NewFile(cfg.Path, cfg.MaxBytes), nil
	case source.ModeRemote:
		return source.NewHTTP(cfg.URLTemplate, cfg.FileID, cfg.RequestHeader(), cfg.Timeout, cfg.MaxBytes), nil
	case source.ModePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres source requires a database connection")
		}
		return source.NewPostgres(db, cfg.Query, cfg.FileID), nil
	}
	return nil, fmt.Errorf("unknown source mode %q", mode)
}

// Options maps configuration onto pipeline options.
func Options(cfg *config.Config) core.Options {
	return core.Options{
		SortValues:     cfg.Filter.SortValues,
		SheetName:      cfg.Export.SheetName,
		FilenamePrefix: cfg.Export.FilenamePrefix,
		PreviewMaxRows: cfg.Filter.PreviewMaxRows,
	}
}

// Server returns an HTTP server over the service with /metrics enabled.
func (a *App) Server() *web.Server {
	return web.NewServer(a.Service, a.Config, a.Metrics.Handler())
}

// Serve runs the HTTP server until ctx is cancelled, then waits for
// in-flight exports and shuts the server down within ShutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	server := a.Server()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(a.Config.Server.Addr())
	}()

	select {
	case err := <-errCh:
		server.Shutdown(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	// Wait for in-flight exports to finish (with timeout)
	if limiter := a.Service.Limiter(); limiter != nil && limiter.ActiveCount() > 0 {
		slog.Info("waiting for exports to complete", "active", limiter.ActiveCount())
		if err := limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("exports did not complete in time", "error", err)
		} else {
			slog.Info("all exports completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func openPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
