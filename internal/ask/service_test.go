package ask

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/duckboard/duckboard/internal/examples"
	"github.com/duckboard/duckboard/internal/nl2sql"
	"github.com/duckboard/duckboard/internal/prompt"
	"github.com/duckboard/duckboard/internal/warehouse"
)

type fakeGenerator struct {
	lastPrompt string
	result     nl2sql.Result
	err        error
}

func (g *fakeGenerator) Generate(_ context.Context, promptText string) (nl2sql.Result, error) {
	g.lastPrompt = promptText
	if g.err != nil {
		return nl2sql.Result{}, g.err
	}
	return g.result, nil
}

type staticExamples struct {
	pairs []examples.Pair
}

func (s staticExamples) Load(context.Context) ([]examples.Pair, error) {
	return s.pairs, nil
}

type staticSchema struct {
	text string
	err  error
}

func (s staticSchema) SchemaText(context.Context) (string, error) {
	return s.text, s.err
}

func newTestService(t *testing.T, generator nl2sql.Generator, provider SchemaProvider) (*Service, func()) {
	t.Helper()
	db, err := warehouse.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE customers (full_name VARCHAR, lifetime_value DOUBLE)`,
		`INSERT INTO customers VALUES ('Ada Lovelace', 310.0), ('Alan Turing', 85.5)`,
	} {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("seed warehouse: %v", err)
		}
	}

	store := examples.NewStore(staticExamples{pairs: []examples.Pair{
		{Question: "Who spent the most?", SQL: "SELECT full_name FROM customers ORDER BY lifetime_value DESC LIMIT 1"},
	}})
	if _, err := store.Reload(context.Background()); err != nil {
		t.Fatalf("load examples: %v", err)
	}

	service := &Service{
		Schema:    provider,
		Examples:  store,
		Assembler: prompt.Assembler{},
		Generator: generator,
		Executor:  warehouse.NewExecutor(db),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return service, func() { _ = db.Close() }
}

func TestAskHappyPath(t *testing.T) {
	generator := &fakeGenerator{result: nl2sql.Result{
		SQL:           "SELECT full_name, lifetime_value FROM customers ORDER BY lifetime_value DESC",
		RawCompletion: "```sql\nSELECT ...\n```",
		Model:         "gpt-4.1",
	}}
	provider := staticSchema{text: "Table: customers\nColumns:\n  - full_name (VARCHAR)\n"}
	service, cleanup := newTestService(t, generator, provider)
	defer cleanup()

	answer, err := service.Ask(context.Background(), "Who are our top customers?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.SQL != generator.result.SQL {
		t.Fatalf("SQL = %q", answer.SQL)
	}
	if len(answer.Result.Rows) != 2 {
		t.Fatalf("rows = %d", len(answer.Result.Rows))
	}
	if answer.Result.Rows[0][0] != "Ada Lovelace" {
		t.Fatalf("first row = %v", answer.Result.Rows[0])
	}
	if answer.Chart.ChartType == "" {
		t.Fatal("chart suggestion missing")
	}
	if answer.Model != "gpt-4.1" {
		t.Fatalf("Model = %q", answer.Model)
	}
}

func TestAskPromptCarriesSchemaExamplesAndQuestion(t *testing.T) {
	generator := &fakeGenerator{result: nl2sql.Result{SQL: "SELECT 1"}}
	provider := staticSchema{text: "Table: customers\n"}
	service, cleanup := newTestService(t, generator, provider)
	defer cleanup()

	if _, err := service.Ask(context.Background(), "How many customers do we have?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	for _, want := range []string{
		"Table: customers",
		"Question: Who spent the most?",
		"Question: How many customers do we have?",
	} {
		if !strings.Contains(generator.lastPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, generator.lastPrompt)
		}
	}
}

func TestAskDegradesWhenSchemaContextFails(t *testing.T) {
	generator := &fakeGenerator{result: nl2sql.Result{SQL: "SELECT COUNT(*) FROM customers"}}
	provider := staticSchema{err: errors.New("introspection failed")}
	service, cleanup := newTestService(t, generator, provider)
	defer cleanup()

	answer, err := service.Ask(context.Background(), "How many customers?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(answer.Result.Rows) != 1 {
		t.Fatalf("rows = %d", len(answer.Result.Rows))
	}
	if !strings.Contains(generator.lastPrompt, "Question: How many customers?") {
		t.Fatal("prompt missing the question after schema degrade")
	}
}

func TestAskGenerationErrorPropagates(t *testing.T) {
	genErr := &nl2sql.GenerationError{Reason: "completion endpoint unreachable"}
	service, cleanup := newTestService(t, &fakeGenerator{err: genErr}, staticSchema{})
	defer cleanup()

	_, err := service.Ask(context.Background(), "anything")
	var typed *nl2sql.GenerationError
	if !errors.As(err, &typed) {
		t.Fatalf("error = %v, want GenerationError", err)
	}
}

func TestAskExecutionErrorPropagates(t *testing.T) {
	generator := &fakeGenerator{result: nl2sql.Result{SQL: "SELECT * FROM no_such_table"}}
	service, cleanup := newTestService(t, generator, staticSchema{})
	defer cleanup()

	_, err := service.Ask(context.Background(), "anything")
	var typed *warehouse.ExecutionError
	if !errors.As(err, &typed) {
		t.Fatalf("error = %v, want ExecutionError", err)
	}
	if typed.Diagnostic == "" {
		t.Fatal("diagnostic missing")
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	service, cleanup := newTestService(t, &fakeGenerator{}, staticSchema{})
	defer cleanup()

	if _, err := service.Ask(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank question")
	}
}

func TestWarehouseSchemaCachesAcrossCalls(t *testing.T) {
	db, err := warehouse.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE customers (customer_id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	provider := &WarehouseSchema{DB: db}
	first, err := provider.SchemaText(ctx)
	if err != nil {
		t.Fatalf("SchemaText() error = %v", err)
	}
	if !strings.Contains(first, "Table: customers") {
		t.Fatalf("schema text = %q", first)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE orders (order_id INTEGER)`); err != nil {
		t.Fatalf("create second table: %v", err)
	}
	second, err := provider.SchemaText(ctx)
	if err != nil {
		t.Fatalf("second SchemaText() error = %v", err)
	}
	if second != first {
		t.Fatal("cached schema text changed without a rebuild")
	}
}
