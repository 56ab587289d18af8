package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/duckboard/duckboard/internal/ask"
	"github.com/duckboard/duckboard/internal/auth"
	"github.com/duckboard/duckboard/internal/config"
	"github.com/duckboard/duckboard/internal/examples"
	"github.com/duckboard/duckboard/internal/nl2sql"
	"github.com/duckboard/duckboard/internal/prompt"
	"github.com/duckboard/duckboard/internal/warehouse"
)

type scriptedGenerator struct {
	result nl2sql.Result
	err    error
}

func (g *scriptedGenerator) Generate(context.Context, string) (nl2sql.Result, error) {
	if g.err != nil {
		return nl2sql.Result{}, g.err
	}
	return g.result, nil
}

type staticExampleSource struct{}

func (staticExampleSource) Load(context.Context) ([]examples.Pair, error) {
	return []examples.Pair{{Question: "How many customers?", SQL: "SELECT COUNT(*) FROM customers"}}, nil
}

type fixture struct {
	db        *sql.DB
	generator *scriptedGenerator
	deps      Dependencies
	cfg       config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := warehouse.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE customers (full_name VARCHAR, lifetime_value DOUBLE)`,
		`INSERT INTO customers VALUES ('Ada Lovelace', 310.0), ('Alan Turing', 85.5)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed warehouse: %v", err)
		}
	}

	store := examples.NewStore(staticExampleSource{})
	if _, err := store.Reload(ctx); err != nil {
		t.Fatalf("load examples: %v", err)
	}

	generator := &scriptedGenerator{result: nl2sql.Result{
		SQL:   "SELECT full_name, lifetime_value FROM customers ORDER BY lifetime_value DESC",
		Model: "gpt-4.1",
	}}
	executor := warehouse.NewExecutor(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	schemaProvider := &ask.WarehouseSchema{DB: db}

	cfg, err := config.Load("duckboard-api", func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	return &fixture{
		db:        db,
		generator: generator,
		cfg:       cfg,
		deps: Dependencies{
			Logger: logger,
			Ask: &ask.Service{
				Schema:    schemaProvider,
				Examples:  store,
				Assembler: prompt.Assembler{},
				Generator: generator,
				Executor:  executor,
				Logger:    logger,
			},
			Schema:   schemaProvider,
			Examples: store,
			Executor: executor,
		},
	}
}

func (f *fixture) handler() http.Handler {
	return NewHandler(f.cfg, f.deps)
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
	return decoded
}

func TestHealthEndpoint(t *testing.T) {
	handler := newFixture(t).handler()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["status"] != "ok" || body["service"] != "duckboard-api" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyEndpointReportsFailingCheck(t *testing.T) {
	fixture := newFixture(t)
	fixture.deps.Readiness = func(context.Context) error {
		return context.DeadlineExceeded
	}
	recorder := httptest.NewRecorder()
	fixture.handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "NOT_READY" {
		t.Fatalf("body = %v", body)
	}
}

func TestAskReturnsSQLRowsAndChart(t *testing.T) {
	fixture := newFixture(t)
	recorder := postJSON(t, fixture.handler(), "/v1/ask", map[string]string{"question": "Top customers by value"})

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["sql"] != fixture.generator.result.SQL {
		t.Fatalf("sql = %v", body["sql"])
	}
	rows, ok := body["rows"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("rows = %v", body["rows"])
	}
	chartConfig, ok := body["chart"].(map[string]any)
	if !ok || chartConfig["chartType"] == "" {
		t.Fatalf("chart = %v", body["chart"])
	}
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	recorder := postJSON(t, newFixture(t).handler(), "/v1/ask", map[string]string{"question": "  "})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "QUESTION_REQUIRED" {
		t.Fatalf("body = %v", body)
	}
}

func TestAskMapsGenerationFailureToBadGateway(t *testing.T) {
	fixture := newFixture(t)
	fixture.generator.err = &nl2sql.GenerationError{Reason: "no SQL found in completion"}
	recorder := postJSON(t, fixture.handler(), "/v1/ask", map[string]string{"question": "anything"})

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error_code"] != "GENERATION_FAILED" {
		t.Fatalf("body = %v", body)
	}
}

func TestAskSurfacesEngineDiagnosticVerbatim(t *testing.T) {
	fixture := newFixture(t)
	fixture.generator.result = nl2sql.Result{SQL: "SELECT * FROM missing_table"}
	recorder := postJSON(t, fixture.handler(), "/v1/ask", map[string]string{"question": "anything"})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error_code"] != "QUERY_EXECUTION_FAILED" {
		t.Fatalf("body = %v", body)
	}
	message, _ := body["message"].(string)
	if !strings.Contains(message, "missing_table") {
		t.Fatalf("message = %q, want engine diagnostic", message)
	}
}

func TestQueryEndpointHonorsRowLimit(t *testing.T) {
	fixture := newFixture(t)
	recorder := postJSON(t, fixture.handler(), "/v1/query", map[string]any{
		"sql":       "SELECT full_name FROM customers ORDER BY full_name",
		"row_limit": 1,
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	rows, _ := body["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("rows = %v", body["rows"])
	}
}

func TestQueryEndpointRejectsWriteStatements(t *testing.T) {
	recorder := postJSON(t, newFixture(t).handler(), "/v1/query", map[string]any{
		"sql": "DROP TABLE customers",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "QUERY_EXECUTION_FAILED" {
		t.Fatalf("body = %v", body)
	}
}

func TestSchemaEndpointReturnsRenderedContext(t *testing.T) {
	recorder := httptest.NewRecorder()
	newFixture(t).handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	text, _ := body["schema"].(string)
	if !strings.Contains(text, "Table: customers") {
		t.Fatalf("schema = %q", text)
	}
}

func TestExamplesEndpoints(t *testing.T) {
	handler := newFixture(t).handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/examples", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("list status = %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["count"] != float64(1) {
		t.Fatalf("list body = %v", body)
	}

	recorder = postJSON(t, handler, "/v1/examples/reload", map[string]any{})
	if recorder.Code != http.StatusOK {
		t.Fatalf("reload status = %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["status"] != "reloaded" {
		t.Fatalf("reload body = %v", body)
	}
}

func TestExportEndpointRequiresObjectStore(t *testing.T) {
	recorder := postJSON(t, newFixture(t).handler(), "/v1/export", map[string]any{
		"sql": "SELECT 1",
	})
	if recorder.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "EXPORT_NOT_CONFIGURED" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthGatesProtectedRoutesOnly(t *testing.T) {
	fixture := newFixture(t)
	fixture.cfg.Auth.Required = true
	verifier, err := auth.NewStaticVerifier("test-key")
	if err != nil {
		t.Fatalf("NewStaticVerifier() error = %v", err)
	}
	fixture.deps.AuthMiddleware = auth.Middleware(fixture.deps.Logger, verifier)
	handler := fixture.handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("health status = %d", recorder.Code)
	}

	recorder = postJSON(t, handler, "/v1/ask", map[string]string{"question": "anything"})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated ask status = %d", recorder.Code)
	}

	body, _ := json.Marshal(map[string]string{"question": "Top customers"})
	request := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
	request.Header.Set("X-API-Key", "test-key")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("authenticated ask status = %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestTraceIDHeaderOnResponses(t *testing.T) {
	recorder := httptest.NewRecorder()
	newFixture(t).handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if recorder.Header().Get("X-Trace-ID") == "" {
		t.Fatal("trace id header missing")
	}
}
