package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"kasirlokal/internal/appstate"
	"kasirlokal/internal/auth"
	"kasirlokal/internal/backup"
	"kasirlokal/internal/cache"
	"kasirlokal/internal/config"
	"kasirlokal/internal/httpapi"
	"kasirlokal/internal/logger"
	"kasirlokal/internal/migration"
	"kasirlokal/internal/service"
	"kasirlokal/internal/store"
	"kasirlokal/internal/store/memory"
	"kasirlokal/internal/store/sqlstore"
)

func main() {
	cfg := config.Load()

	log, logCloser, err := logger.New(cfg.Log, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Error("invalid security configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		_ = logCloser.Close()
		os.Exit(1)
	}
	_ = logCloser.Close()
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("close error", "error", err)
			}
		}
	}()

	backend, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers = append(closers, backend.Close)

	var backing cache.CatalogCache = cache.NoopCatalogCache{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCatalogCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Duration(cfg.CatalogCacheTTLSeconds)*time.Second)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using noop catalog cache", "error", err)
			_ = redisCache.Close()
		} else {
			backing = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("catalog cache: redis", "addr", cfg.RedisAddr)
		}
	} else {
		log.Info("catalog cache: noop")
	}

	catalog := cache.NewCatalog(backing)
	st := cache.InvalidatingStore(backend, catalog, log)
	svc := service.New(st, service.WithLogger(log), service.WithCatalogCache(catalog))

	migrator := migration.New(st, migration.FileSource{Path: cfg.LegacyDataPath}, log)
	report, err := migrator.Run(ctx)
	switch {
	case errors.Is(err, store.ErrStorageUnavailable):
		return err
	case err != nil:
		log.Warn("legacy migration failed", "error", err)
	case report.Failed():
		log.Warn("legacy migration finished with failures; it will retry on next start")
	}

	if cfg.SeedSampleData {
		seeded, err := svc.SeedSampleData(ctx, service.SeedOptions{
			AdminPassword:   cfg.SeedAdminPassword,
			CashierPassword: cfg.SeedCashierPassword,
		})
		if err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
		if seeded {
			log.Info("sample data seeded")
		}
	}
	if _, err := svc.Settings.GetOrCreate(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	manager := auth.NewManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svc.Users)
	state := appstate.New(st, manager, log)
	if restored, err := state.Restore(ctx); err != nil {
		log.Warn("could not restore terminal session", "error", err)
	} else if restored {
		log.Info("terminal session restored")
	}

	gin.SetMode(gin.ReleaseMode)
	api := httpapi.New(httpapi.Deps{
		Service:       svc,
		Auth:          manager,
		State:         state,
		Backup:        backup.New(st, log),
		Migrator:      migrator,
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        log,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("POS backend listening", "config", cfg.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", "error", err)
	}
	if err := state.Persist(shutdownCtx); err != nil {
		log.Warn("could not persist terminal session", "error", err)
	}

	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.DBDriver == "memory" {
		log.Warn("store: in-memory; data is lost on exit")
		return memory.New(), nil
	}
	s, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN, Logger: log})
	if err != nil {
		return nil, err
	}
	log.Info("store: sql", "driver", cfg.DBDriver)
	return s, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	for name, password := range map[string]string{
		"SEED_ADMIN_PASSWORD":   cfg.SeedAdminPassword,
		"SEED_CASHIER_PASSWORD": cfg.SeedCashierPassword,
	} {
		if password != "" && len(password) < 8 {
			return fmt.Errorf("%s must be at least 8 characters", name)
		}
	}
	return nil
}
