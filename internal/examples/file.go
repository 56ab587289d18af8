package examples

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yml
var defaultExamples []byte

type exampleFile struct {
	Examples []Pair `yaml:"examples"`
}

// FileSource reads the curated collection from a YAML file on every Load,
// so a reload picks up the curator's edits without restarting.
type FileSource struct {
	Path string
}

func (f *FileSource) Load(_ context.Context) ([]Pair, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read examples file %q: %w", f.Path, err)
	}
	return parseExampleFile(raw)
}

// EmbeddedSource serves the hand-authored default collection compiled into
// the binary. Used when no curated file is configured.
type EmbeddedSource struct{}

func (EmbeddedSource) Load(_ context.Context) ([]Pair, error) {
	return parseExampleFile(defaultExamples)
}

func parseExampleFile(raw []byte) ([]Pair, error) {
	var parsed exampleFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse examples: %w", err)
	}
	return parsed.Examples, nil
}
