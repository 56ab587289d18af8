// Package ask wires the question pipeline end to end: schema context plus
// curated examples become a prompt, the prompt becomes SQL, the SQL runs
// against the warehouse, and the result gets a chart suggestion.
package ask

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/duckboard/duckboard/internal/chart"
	"github.com/duckboard/duckboard/internal/examples"
	"github.com/duckboard/duckboard/internal/nl2sql"
	"github.com/duckboard/duckboard/internal/observability"
	"github.com/duckboard/duckboard/internal/prompt"
	"github.com/duckboard/duckboard/internal/schema"
	"github.com/duckboard/duckboard/internal/warehouse"
)

// SchemaProvider supplies the rendered schema context for the prompt.
type SchemaProvider interface {
	SchemaText(ctx context.Context) (string, error)
}

// WarehouseSchema introspects the warehouse on first use and caches the
// rendered text. The warehouse is read-only while the service runs, so the
// cache only goes stale across a rebuild and restart.
type WarehouseSchema struct {
	DB   *sql.DB
	Docs schema.Docs

	mu     sync.Mutex
	cached string
	built  bool
}

func (w *WarehouseSchema) SchemaText(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.built {
		return w.cached, nil
	}
	descriptors, err := schema.Build(ctx, w.DB, w.Docs)
	if err != nil {
		return "", err
	}
	w.cached = schema.Render(descriptors)
	w.built = true
	return w.cached, nil
}

// Answer is the full response to one question. Nothing in it is persisted;
// export is a separate, explicit action.
type Answer struct {
	Question      string              `json:"question"`
	SQL           string              `json:"sql"`
	RawCompletion string              `json:"raw_completion,omitempty"`
	Model         string              `json:"model,omitempty"`
	Result        warehouse.Result    `json:"result"`
	Chart         chart.Configuration `json:"chart"`
}

type Service struct {
	Schema    SchemaProvider
	Examples  *examples.Store
	Assembler prompt.Assembler
	Generator nl2sql.Generator
	Executor  *warehouse.Executor
	Logger    *slog.Logger
}

// Ask answers one natural-language question. Schema context failures are
// logged and degrade to an empty schema section; generation and execution
// failures surface as typed errors for the transport layer to map.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question is required")
	}
	observability.ObserveQuestion()

	schemaText, err := s.Schema.SchemaText(ctx)
	if err != nil {
		s.Logger.WarnContext(ctx, "schema context unavailable, asking without it", "error", err)
		schemaText = ""
	}

	assembled := s.Assembler.Assemble(schemaText, s.Examples.Snapshot(), question)

	generationStart := time.Now()
	generated, err := s.Generator.Generate(ctx, assembled)
	observability.ObserveGeneration(time.Since(generationStart), err)
	if err != nil {
		return Answer{}, err
	}

	s.Logger.InfoContext(ctx, "generated sql",
		"model", generated.Model,
		"sql", generated.SQL,
	)

	result, err := s.Executor.Execute(ctx, warehouse.Request{SQL: generated.SQL})
	observability.ObserveExecution(result.Duration, err)
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Question:      question,
		SQL:           generated.SQL,
		RawCompletion: generated.RawCompletion,
		Model:         generated.Model,
		Result:        result,
		Chart:         chart.Suggest(result, question),
	}, nil
}
