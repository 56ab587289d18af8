package duckboardctl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRunAskCommandSendsQuestion(t *testing.T) {
	var gotMethod, gotPath, gotAPIKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sql":"SELECT 1","rows":[[1]]}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"-api-key", "k1",
		"ask", "Show", "monthly", "revenue",
	}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/ask" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotAPIKey != "k1" {
		t.Fatalf("api key = %q", gotAPIKey)
	}
	if gotBody["question"] != "Show monthly revenue" {
		t.Fatalf("question = %v", gotBody["question"])
	}
	if stdout.Len() == 0 {
		t.Fatal("expected command output")
	}
}

func TestRunQueryCommandCarriesRowLimit(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"-row-limit", "50",
		"query", "SELECT * FROM customers",
	}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotBody["sql"] != "SELECT * FROM customers" || gotBody["row_limit"] != float64(50) {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestRunExportCommandSendsLabel(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"key":"2026/08/31/revenue.parquet"}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"-label", "revenue",
		"export", "SELECT * FROM revenue_by_month",
	}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotPath != "/v1/export" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["label"] != "revenue" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestRunReloadCommand(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"reloaded","count":13}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"-base-url", srv.URL, "reload"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/examples/reload" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}

func TestRunAskWithoutQuestionFails(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"ask"}, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected error output")
	}
}

func TestRunReturnsErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"QUERY_EXECUTION_FAILED"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "query", "SELECT nope"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"unknown"}, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected usage output")
	}
}
