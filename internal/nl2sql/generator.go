// Package nl2sql turns an assembled prompt into a single SQL statement via
// an OpenAI-compatible completion endpoint.
package nl2sql

import (
	"context"
	"fmt"
)

// Result is the ephemeral product of one generation: the extracted SQL plus
// the raw completion it came from. It lives for one request cycle only.
type Result struct {
	SQL           string `json:"sql"`
	RawCompletion string `json:"raw_completion"`
	Model         string `json:"model"`
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// GenerationError covers every way a question can fail to become SQL: the
// endpoint is unreachable, returns a non-success status, or the completion
// contains nothing the extractor recognizes as SQL.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate sql: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("generate sql: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
