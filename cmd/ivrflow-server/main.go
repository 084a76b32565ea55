// Package main provides the ivrflow HTTP server: editing sessions, saved
// flows, health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // register /debug/pprof
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowgraph/ivrflow/internal/adapters/catalogfile"
	"github.com/flowgraph/ivrflow/internal/adapters/repository/memory"
	"github.com/flowgraph/ivrflow/internal/adapters/repository/postgres"
	"github.com/flowgraph/ivrflow/internal/adapters/repository/redis"
	"github.com/flowgraph/ivrflow/internal/adapters/repository/sqlite"
	"github.com/flowgraph/ivrflow/internal/app/services"
	"github.com/flowgraph/ivrflow/internal/app/usecases"
	"github.com/flowgraph/ivrflow/internal/config"
	"github.com/flowgraph/ivrflow/pkg/serialization"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ivrflow-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ser, err := serialization.New(cfg.Serialization.Codec, cfg.Serialization.Compression)
	if err != nil {
		return err
	}

	flows, closeFlows, err := openFlows(ctx, cfg, ser)
	if err != nil {
		return err
	}
	defer closeFlows()

	drafts, closeDrafts, err := openDrafts(ctx, cfg, ser)
	if err != nil {
		return err
	}
	defer closeDrafts()

	var catalogs usecases.CatalogSource = usecases.StaticCatalog{}
	if cfg.Server.CatalogPath != "" {
		catalogs = catalogfile.Source{Path: cfg.Server.CatalogPath}
	}

	sessions := services.NewSessionManager(flows, catalogs,
		services.WithDrafts(drafts, cfg.Redis.DraftTTL),
		services.WithSessionTTL(cfg.Server.SessionTTL),
		services.WithSessionLogger(logger),
	)
	go sessions.Run(ctx, cfg.Server.SweepInterval)
	if mem, ok := drafts.(*memory.DraftStore); ok {
		go sweepDrafts(ctx, mem, cfg.Server.SweepInterval)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newServer(sessions, flows, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting ivrflow server", "addr", cfg.Server.Addr, "store", cfg.Store.Backend, "codec", ser.Name())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openFlows(ctx context.Context, cfg *config.Config, ser *serialization.Serializer) (usecases.FlowRepository, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo := sqlite.NewFlowRepository(db, ser)
		if err := repo.CreateTables(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewFlowRepository(pool, ser)
		if err := repo.CreateTables(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	default:
		return memory.NewFlowRepository(ser), func() {}, nil
	}
}

func openDrafts(ctx context.Context, cfg *config.Config, ser *serialization.Serializer) (usecases.DraftStore, func(), error) {
	if cfg.Redis.URL == "" {
		return memory.NewDraftStore(ser), func() {}, nil
	}
	client, err := redis.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	store := redis.NewDraftStore(client, ser)
	return store, func() { _ = store.Close() }, nil
}

func sweepDrafts(ctx context.Context, drafts *memory.DraftStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drafts.Sweep()
		}
	}
}
