// Package duckboardctl implements the operator CLI against a running API
// instance. Commands map one to one onto HTTP endpoints; the CLI adds no
// behavior of its own.
package duckboardctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("duckboardctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8084"), "Duckboard API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	label := fs.String("label", "", "Label for exported results (export command)")
	rowLimit := fs.Int("row-limit", 0, "Row limit for raw queries (query command)")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 30s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	argument := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))

	var method, path string
	var payload any
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "schema":
		method, path = http.MethodGet, "/v1/schema"
	case "examples":
		method, path = http.MethodGet, "/v1/examples"
	case "reload":
		method, path = http.MethodPost, "/v1/examples/reload"
	case "ask":
		if argument == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		method, path = http.MethodPost, "/v1/ask"
		payload = map[string]string{"question": argument}
	case "query":
		if argument == "" {
			_, _ = fmt.Fprintln(stderr, "query requires a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/query"
		payload = map[string]any{"sql": argument, "row_limit": *rowLimit}
	case "export":
		if argument == "" {
			_, _ = fmt.Fprintln(stderr, "export requires a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/export"
		payload = map[string]string{"sql": argument, "label": *label}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: duckboardctl [flags] <command> [argument]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health             GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready              GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema             GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  examples           GET /v1/examples")
	_, _ = fmt.Fprintln(w, "  reload             POST /v1/examples/reload")
	_, _ = fmt.Fprintln(w, "  ask <question>     POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  query <sql>        POST /v1/query")
	_, _ = fmt.Fprintln(w, "  export <sql>       POST /v1/export")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
