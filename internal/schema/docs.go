package schema

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Docs holds curator-authored model documentation keyed by table name,
// parsed from dbt-style schema.yml files.
type Docs map[string]ModelDoc

type ModelDoc struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Columns     []ColumnDoc `yaml:"columns"`
}

type ColumnDoc struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type docsFile struct {
	Models []ModelDoc `yaml:"models"`
}

// LoadDocs walks fsys for .yml/.yaml files and merges every documented model.
// A missing or empty tree yields empty docs, not an error; descriptors then
// degrade to name-only descriptions.
func LoadDocs(fsys fs.FS) (Docs, error) {
	docs := Docs{}
	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read docs file %q: %w", p, err)
		}
		var parsed docsFile
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("parse docs file %q: %w", p, err)
		}
		for _, model := range parsed.Models {
			name := strings.TrimSpace(model.Name)
			if name == "" {
				continue
			}
			model.Description = strings.TrimSpace(model.Description)
			docs[name] = model
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (d Docs) table(name string) (ModelDoc, bool) {
	doc, ok := d[name]
	return doc, ok
}

func (d Docs) column(table, column string) string {
	doc, ok := d[table]
	if !ok {
		return ""
	}
	for _, c := range doc.Columns {
		if c.Name == column {
			return strings.TrimSpace(c.Description)
		}
	}
	return ""
}

// Tables returns documented table names in sorted order.
func (d Docs) Tables() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
