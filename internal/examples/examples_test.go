package examples

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type staticSource struct {
	pairs []Pair
	err   error
}

func (s *staticSource) Load(_ context.Context) ([]Pair, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pairs, nil
}

func TestStoreReloadAndSnapshot(t *testing.T) {
	source := &staticSource{pairs: []Pair{
		{Question: "How many customers do we have?", SQL: "SELECT COUNT(*) FROM customers"},
		{Question: "Show monthly revenue", SQL: "SELECT * FROM revenue_by_month"},
	}}
	store := NewStore(source)

	count, err := store.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d", count)
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("len(snapshot) = %d", len(snapshot))
	}
	if snapshot[0].Question != "How many customers do we have?" {
		t.Fatalf("order not preserved: %q", snapshot[0].Question)
	}

	// Mutating the snapshot must not touch the store.
	snapshot[0].Question = "mutated"
	if store.Snapshot()[0].Question == "mutated" {
		t.Fatal("snapshot is not a copy")
	}
}

func TestStoreReloadKeepsSnapshotOnFailure(t *testing.T) {
	source := &staticSource{pairs: []Pair{{Question: "q", SQL: "SELECT 1"}}}
	store := NewStore(source)
	if _, err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	source.err = errors.New("source down")
	if _, err := store.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if len(store.Snapshot()) != 1 {
		t.Fatal("previous snapshot should survive a failed reload")
	}
}

func TestStoreReloadRejectsInvalidPairs(t *testing.T) {
	store := NewStore(&staticSource{pairs: []Pair{{Question: "", SQL: "SELECT 1"}}})
	if _, err := store.Reload(context.Background()); err == nil {
		t.Fatal("expected validation error for empty question")
	}
}

func TestFileSourceLoadsCuratedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examples.yml")
	content := []byte(`examples:
  - question: Show customers by segment
    sql: SELECT customer_segment, COUNT(*) FROM customers GROUP BY customer_segment
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	pairs, err := (&FileSource{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("len(pairs) = %d", len(pairs))
	}
	if pairs[0].Question != "Show customers by segment" {
		t.Fatalf("question = %q", pairs[0].Question)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := (&FileSource{Path: filepath.Join(t.TempDir(), "missing.yml")}).Load(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEmbeddedSourceParsesAndValidates(t *testing.T) {
	pairs, err := EmbeddedSource{}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pairs) < 8 {
		t.Fatalf("len(pairs) = %d, expected the full default set", len(pairs))
	}
	if err := validatePairs(pairs); err != nil {
		t.Fatalf("default set invalid: %v", err)
	}
	if pairs[0].Question != "Show monthly revenue" {
		t.Fatalf("first default pair = %q", pairs[0].Question)
	}
}
