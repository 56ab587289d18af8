// Package examples manages the curated few-shot (question, SQL) pairs
// included in every prompt. The collection is loaded once, served as a
// read-only snapshot, and only changes through an explicit reload when the
// curator updates the source.
package examples

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Pair struct {
	Question string `yaml:"question" json:"question"`
	SQL      string `yaml:"sql" json:"sql"`
}

// Source loads the full curated collection in curator order. Order matters:
// the prompt assembler treats it as the relevance order when the budget
// forces examples to be dropped.
type Source interface {
	Load(ctx context.Context) ([]Pair, error)
}

type Store struct {
	source Source

	mu    sync.RWMutex
	pairs []Pair
}

func NewStore(source Source) *Store {
	return &Store{source: source}
}

// Reload replaces the snapshot from the source. The previous snapshot stays
// in place when loading fails.
func (s *Store) Reload(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("example source is required")
	}
	pairs, err := s.source.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := validatePairs(pairs); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.pairs = pairs
	s.mu.Unlock()
	return len(pairs), nil
}

// Snapshot returns a copy of the current collection in curator order.
func (s *Store) Snapshot() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

func validatePairs(pairs []Pair) error {
	for i, pair := range pairs {
		if strings.TrimSpace(pair.Question) == "" {
			return fmt.Errorf("example %d: question is required", i)
		}
		if strings.TrimSpace(pair.SQL) == "" {
			return fmt.Errorf("example %d: sql is required", i)
		}
	}
	return nil
}
