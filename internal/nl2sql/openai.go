package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = "You are a SQL expert that generates DuckDB SQL queries. " +
	"Return only the SQL query, nothing else."

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIGenerator speaks the chat-completions dialect shared by OpenAI,
// Ollama, and copilot-api proxies. One outbound call per invocation; no
// retries beyond what the transport does on its own.
type OpenAIGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4.1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIGenerator{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (Result, error) {
	payload := map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": g.temperature,
		"max_tokens":  800,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, &GenerationError{Reason: "marshal chat payload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, &GenerationError{Reason: "build chat request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Result{}, &GenerationError{Reason: "request chat completion", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &GenerationError{Reason: "read chat response body", Err: err}
	}
	if resp.StatusCode >= 400 {
		return Result{}, &GenerationError{
			Reason: fmt.Sprintf("chat completion failed status=%d body=%s", resp.StatusCode, truncate(string(rawBody), 512)),
		}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return Result{}, &GenerationError{Reason: "decode chat completion response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return Result{}, &GenerationError{Reason: "empty chat completion choices"}
	}

	completion := parsed.Choices[0].Message.Content
	sql, ok := ExtractSQL(completion)
	if !ok {
		return Result{}, &GenerationError{Reason: "no SQL found in completion"}
	}
	return Result{
		SQL:           sql,
		RawCompletion: completion,
		Model:         g.model,
	}, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
