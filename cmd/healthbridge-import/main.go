package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/healthbridge/internal/config"
	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/claude/healthbridge/internal/healthstore/postgres"
	"github.com/claude/healthbridge/internal/healthstore/sqlite"
	"github.com/claude/healthbridge/internal/importer"
	"github.com/claude/healthbridge/internal/ingest"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "path to a directory of Health Auto Export JSON files (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into the store")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: healthbridge-import -config config.yaml -path /path/to/exports [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*exportPath)
	if err != nil || !info.IsDir() {
		log.Error("export path does not exist or is not a directory", "path", *exportPath)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	writer, cleanup, err := openWriter(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if *dryRun {
		log.Info("DRY RUN mode — no data will be written to the store")
	}

	imp := importer.New(ingest.NewProvider(writer, log), log, *dryRun)
	stats, err := imp.Import(ctx, *exportPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func openWriter(ctx context.Context, cfg *config.Config, log *slog.Logger) (healthstore.Writer, func(), error) {
	switch cfg.Database.Backend {
	case config.BackendPostgres, "":
		dsn := cfg.Database.DSN()
		if err := postgres.RunMigrations(dsn, "migrations"); err != nil {
			return nil, func() {}, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")

		db, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, func() {}, err
		}
		log.Info("database connected", "backend", "postgres")
		return db, db.Close, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, func() {}, err
		}
		log.Info("database opened", "backend", "sqlite", "path", cfg.Database.Path)
		return db, func() { _ = db.Close() }, nil

	default:
		return nil, func() {}, fmt.Errorf("backend %q cannot be imported into", cfg.Database.Backend)
	}
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"samples_inserted", stats.SamplesInserted,
		"samples_skipped", stats.SamplesSkipped,
		"samples_rejected", stats.SamplesRejected,
		"workouts_inserted", stats.WorkoutsInserted,
	)
	if len(stats.RejectedMetrics) > 0 {
		log.Info("rejected metrics (no type binding)", "metrics", stats.RejectedMetrics)
	}
}
