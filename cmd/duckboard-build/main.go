// duckboard-build rebuilds the warehouse file from the embedded seeds and
// models. Run it before starting duckboard-api, and again whenever the
// seed data or model definitions change.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/duckboard/duckboard/internal/config"
	"github.com/duckboard/duckboard/internal/observability"
	"github.com/duckboard/duckboard/internal/transform"
	"github.com/duckboard/duckboard/internal/warehouse"
)

func main() {
	cfg, err := config.LoadFromEnv("duckboard-build")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	fs := flag.NewFlagSet("duckboard-build", flag.ExitOnError)
	path := fs.String("warehouse", cfg.Warehouse.Path, "Path to the DuckDB warehouse file")
	dryRun := fs.Bool("dry-run", false, "Build against an in-memory database and discard the result")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, target, err := openTarget(*path, *dryRun)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	logger.Info("building warehouse", slog.String("target", target))
	summary, err := transform.NewRunner().Run(ctx, db)
	if err != nil {
		logger.Error("warehouse build failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("warehouse built",
		slog.Int("seeds", summary.Seeds),
		slog.Int("models", summary.Models),
		slog.String("duration", summary.Duration.String()),
	)
}

func openTarget(path string, dryRun bool) (*sql.DB, string, error) {
	if dryRun {
		mem, err := warehouse.OpenMemory()
		return mem, "memory", err
	}
	file, err := warehouse.Open(path, warehouse.ReadWrite)
	return file, path, err
}
