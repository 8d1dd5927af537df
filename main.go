package main

import (
	"cadastro/config"
	"cadastro/db"
	"cadastro/http"
	"cadastro/logger"
	"cadastro/photo"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	slot, closeSlot, err := openSlot(ctx, cfg.Slot)
	if err != nil {
		return fmt.Errorf("open %s slot: %w", cfg.Slot.Driver, err)
	}
	defer closeSlot()

	opts := []db.StoreOption{db.WithKey(cfg.Slot.Key), db.WithStrictLoad(cfg.Slot.StrictLoad)}
	if cfg.Slot.CacheEnabled {
		searches, err := db.NewSearchCache()
		if err != nil {
			return err
		}
		defer searches.Close()
		opts = append(opts, db.WithSearchCache(searches))
	}

	store := db.NewStore(slot, opts...)

	pessoas, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load pessoas: %w", err)
	}
	log.Info().Int("count", len(pessoas)).Str("driver", cfg.Slot.Driver).Msg("loaded pessoas")

	h := handler.New(store, &photo.Reader{MaxBytes: cfg.Photo.MaxBytes, MaxSide: cfg.Photo.MaxSide})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("starting server")
		serveErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func openSlot(ctx context.Context, cfg config.SlotConfig) (db.Slot, func(), error) {
	var (
		slot      db.Slot
		closeSlot func()
	)

	switch cfg.Driver {
	case config.DriverMemory:
		slot, closeSlot = db.NewMemorySlot(), func() {}
	case config.DriverSqlite:
		s, err := db.NewSqliteSlot(cfg.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		slot, closeSlot = s, func() { s.Close() }
	case config.DriverPostgres:
		pool, err := db.OpenPool(ctx, cfg.DatabaseURL, cfg.MaxConnections)
		if err != nil {
			return nil, nil, err
		}
		s := db.NewPgSlot(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slot, closeSlot = s, func() { s.Close() }
	case config.DriverRedis:
		s := db.NewRedisSlot(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		slot, closeSlot = s, func() { s.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown slot driver %q", cfg.Driver)
	}

	return slot, closeSlot, nil
}
