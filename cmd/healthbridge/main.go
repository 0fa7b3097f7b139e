package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailscale.com/tsnet"

	"github.com/claude/healthbridge/internal/bridge"
	"github.com/claude/healthbridge/internal/config"
	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/claude/healthbridge/internal/healthstore/postgres"
	"github.com/claude/healthbridge/internal/healthstore/sqlite"
	"github.com/claude/healthbridge/internal/ingest"
	"github.com/claude/healthbridge/internal/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("HealthBridge starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, writer, cleanup, err := openStore(cfg, *migrateOnly, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	loc := time.Local
	if cfg.Server.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Server.Timezone)
		if err != nil {
			log.Error("invalid timezone", "timezone", cfg.Server.Timezone, "error", err)
			os.Exit(1)
		}
	}

	b := bridge.New(store, writer, loc, log)
	provider := ingest.NewProvider(writer, log)
	srv := server.New(b, provider, cfg.Auth.APIKey, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openStore opens the configured backend. The returned cleanup is always safe
// to call.
func openStore(cfg *config.Config, migrateOnly bool, log *slog.Logger) (healthstore.Store, healthstore.Writer, func(), error) {
	switch cfg.Database.Backend {
	case config.BackendPostgres, "":
		dsn := cfg.Database.DSN()
		if err := postgres.RunMigrations(dsn, "migrations"); err != nil {
			return nil, nil, func() {}, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")
		if migrateOnly {
			return nil, nil, func() {}, nil
		}

		db, err := postgres.New(context.Background(), dsn)
		if err != nil {
			return nil, nil, func() {}, err
		}
		db.GrantOnAsk = cfg.Auth.GrantOnAsk()
		log.Info("database connected", "backend", "postgres")
		return db, db, db.Close, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, func() {}, err
		}
		db.GrantOnAsk = cfg.Auth.GrantOnAsk()
		log.Info("database opened", "backend", "sqlite", "path", cfg.Database.Path)
		return db, db, func() { _ = db.Close() }, nil

	case config.BackendMemory:
		store := healthstore.NewMemoryStore()
		store.SetGrantOnAsk(cfg.Auth.GrantOnAsk())
		log.Warn("using in-memory store, data will not survive restarts")
		return store, store, func() {}, nil

	default:
		return nil, nil, func() {}, fmt.Errorf("unknown backend %q", cfg.Database.Backend)
	}
}
