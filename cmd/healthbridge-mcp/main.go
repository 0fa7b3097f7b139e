package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/healthbridge/internal/bridge"
	"github.com/claude/healthbridge/internal/config"
	"github.com/claude/healthbridge/internal/healthstore/sqlite"
	"github.com/claude/healthbridge/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "remote HealthBridge URL; query over HTTP instead of opening a local store")
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("healthbridge-mcp", Version)
		return
	}

	// MCP speaks JSON-RPC on stdout, logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ds, cleanup, err := openDataSource(*serverURL, *configPath, log)
	if err != nil {
		log.Error("failed to open data source", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	s := mcp.New(ds, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

// openDataSource picks remote mode when a server URL is given, local sqlite
// otherwise. Local mode is read-only tooling, so the postgres backend is
// reached through the remote mode instead of a second pool.
func openDataSource(serverURL, configPath string, log *slog.Logger) (mcp.DataSource, func(), error) {
	if serverURL != "" {
		log.Info("remote mode", "server", serverURL)
		return mcp.NewHTTPClient(serverURL), func() {}, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, func() {}, err
	}
	if cfg.Database.Backend != config.BackendSQLite {
		return nil, func() {}, fmt.Errorf("local mode needs the sqlite backend, got %q (use -server for remote mode)", cfg.Database.Backend)
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, func() {}, err
	}

	loc := time.Local
	if cfg.Server.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Server.Timezone)
		if err != nil {
			_ = db.Close()
			return nil, func() {}, err
		}
	}

	log.Info("local mode", "path", cfg.Database.Path)
	return bridge.New(db, db, loc, log), func() { _ = db.Close() }, nil
}
