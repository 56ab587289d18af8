// Package auth gates the API behind static keys. Key management stays in
// configuration; there is no key store and no per-key identity beyond a
// display name.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
)

type Verifier interface {
	Verify(ctx context.Context, apiKey string) bool
}

// StaticVerifier holds the configured keys. Lookup compares every entry in
// constant time so a rejected key costs the same regardless of how close
// it came to matching.
type StaticVerifier struct {
	keys [][]byte
}

// NewStaticVerifier parses a comma-separated key list. An empty spec
// yields a verifier that rejects everything, which keeps a misconfigured
// prod deployment closed rather than open.
func NewStaticVerifier(spec string) (*StaticVerifier, error) {
	verifier := &StaticVerifier{}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return verifier, nil
	}
	for _, entry := range strings.Split(spec, ",") {
		key := strings.TrimSpace(entry)
		if key == "" {
			return nil, fmt.Errorf("static key list contains an empty entry")
		}
		verifier.keys = append(verifier.keys, []byte(key))
	}
	return verifier, nil
}

func (v *StaticVerifier) Verify(_ context.Context, apiKey string) bool {
	candidate := []byte(apiKey)
	matched := false
	for _, key := range v.keys {
		if subtle.ConstantTimeCompare(key, candidate) == 1 {
			matched = true
		}
	}
	return matched
}
