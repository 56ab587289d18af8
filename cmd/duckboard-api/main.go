package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckboard/duckboard/internal/api"
	"github.com/duckboard/duckboard/internal/api/uistatic"
	"github.com/duckboard/duckboard/internal/ask"
	"github.com/duckboard/duckboard/internal/auth"
	"github.com/duckboard/duckboard/internal/config"
	"github.com/duckboard/duckboard/internal/examples"
	"github.com/duckboard/duckboard/internal/export"
	"github.com/duckboard/duckboard/internal/nl2sql"
	"github.com/duckboard/duckboard/internal/observability"
	"github.com/duckboard/duckboard/internal/prompt"
	"github.com/duckboard/duckboard/internal/schema"
	s3store "github.com/duckboard/duckboard/internal/storage/s3"
	"github.com/duckboard/duckboard/internal/transform"
	"github.com/duckboard/duckboard/internal/warehouse"
)

func main() {
	cfg, err := config.LoadFromEnv("duckboard-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := warehouse.Open(cfg.Warehouse.Path, warehouse.ReadOnly)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	docs := loadDocs(cfg, logger)

	exampleStore, cleanup, err := buildExampleStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to initialize example source", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()
	count, err := exampleStore.Reload(context.Background())
	if err != nil {
		logger.Error("failed to load examples", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("examples loaded", slog.Int("count", count))

	generator, err := nl2sql.NewOpenAIGenerator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize sql generator", slog.Any("error", err))
		os.Exit(1)
	}

	schemaProvider := &ask.WarehouseSchema{DB: db, Docs: docs}
	executor := warehouse.NewExecutor(db)

	var exporter *export.Exporter
	if cfg.ExportEnabled() {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		exporter = export.NewExporter(objectStore)
	}

	deps := api.Dependencies{
		Logger: logger,
		Ask: &ask.Service{
			Schema:   schemaProvider,
			Examples: exampleStore,
			Assembler: prompt.Assembler{
				MaxChars:    cfg.Prompt.MaxChars,
				MaxExamples: cfg.Prompt.MaxExamples,
			},
			Generator: generator,
			Executor:  executor,
			Logger:    logger,
		},
		Schema:   schemaProvider,
		Examples: exampleStore,
		Executor: executor,
		Exporter: exporter,
		UI:       uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckWarehouse(db),
			api.CheckAIConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		verifier, err := auth.NewStaticVerifier(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, verifier)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// loadDocs prefers a curator-supplied docs directory and falls back to the
// documentation embedded with the models. Doc failures degrade to empty
// docs; the schema context then carries names and types only.
func loadDocs(cfg config.Config, logger *slog.Logger) schema.Docs {
	source := transform.DocsFS()
	if cfg.Warehouse.DocsDir != "" {
		source = os.DirFS(cfg.Warehouse.DocsDir)
	}
	docs, err := schema.LoadDocs(source)
	if err != nil {
		logger.Warn("failed to load model docs, using bare schema", slog.Any("error", err))
		return schema.Docs{}
	}
	return docs
}

func buildExampleStore(ctx context.Context, cfg config.Config) (*examples.Store, func(), error) {
	noop := func() {}
	switch cfg.Examples.Source {
	case config.ExamplesSourcePostgres:
		db, err := examples.OpenPostgres(ctx, examples.PostgresConfig{
			DSN:             cfg.Examples.DSN,
			MaxOpenConns:    cfg.Examples.MaxOpenConns,
			MaxIdleConns:    cfg.Examples.MaxIdleConns,
			ConnMaxIdleTime: cfg.Examples.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Examples.ConnMaxLifetime,
		})
		if err != nil {
			return nil, noop, err
		}
		return examples.NewStore(examples.NewPostgresSource(db)), func() { _ = db.Close() }, nil
	default:
		if cfg.Examples.Path != "" {
			if _, err := os.Stat(cfg.Examples.Path); err == nil {
				return examples.NewStore(&examples.FileSource{Path: cfg.Examples.Path}), noop, nil
			}
		}
		return examples.NewStore(examples.EmbeddedSource{}), noop, nil
	}
}
