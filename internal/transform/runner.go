// Package transform builds the analytical warehouse: it loads the raw seed
// data and materializes the staging and mart models in dependency order.
// The embedded models mirror a dbt project; schema.yml carries the table
// and column documentation the schema context builder consumes.
package transform

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed models
var modelsFS embed.FS

//go:embed seeds/*.csv
var seedsFS embed.FS

const buildLogTable = "duckboard_build_log"

type Kind string

const (
	KindView  Kind = "view"
	KindTable Kind = "table"
)

type Model struct {
	Name string
	Kind Kind
}

// manifest lists every model in build order. Staging models materialize as
// views, marts as tables, matching the project the warehouse came from.
var manifest = []Model{
	{Name: "stg_customers", Kind: KindView},
	{Name: "stg_orders", Kind: KindView},
	{Name: "stg_payments", Kind: KindView},
	{Name: "orders", Kind: KindTable},
	{Name: "customers", Kind: KindTable},
	{Name: "revenue_by_month", Kind: KindTable},
	{Name: "payment_analysis", Kind: KindTable},
}

type Summary struct {
	Seeds    int
	Models   int
	Duration time.Duration
}

type Runner struct {
	modelsFS fs.FS
	seedsFS  fs.FS
}

func NewRunner() *Runner {
	return &Runner{modelsFS: modelsFS, seedsFS: seedsFS}
}

// DocsFS exposes the embedded model tree so the schema builder can pick up
// the schema.yml documentation without a checkout of the source project.
func DocsFS() fs.FS {
	sub, err := fs.Sub(modelsFS, "models")
	if err != nil {
		return modelsFS
	}
	return sub
}

// Run rebuilds the warehouse from scratch: seeds first, then every model in
// manifest order. Re-running against an unchanged seed set is idempotent.
func (r *Runner) Run(ctx context.Context, db *sql.DB) (Summary, error) {
	start := time.Now()
	summary := Summary{}

	seeds, err := r.loadSeeds(ctx, db)
	if err != nil {
		return summary, err
	}
	summary.Seeds = seeds

	if err := ensureBuildLogTable(ctx, db); err != nil {
		return summary, err
	}

	for _, model := range manifest {
		script, err := fs.ReadFile(r.modelsFS, "models/"+model.Name+".sql")
		if err != nil {
			return summary, fmt.Errorf("read model %q: %w", model.Name, err)
		}
		ddl := materializeDDL(model, string(script))
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return summary, fmt.Errorf("build model %q: %w", model.Name, err)
		}
		if err := logBuild(ctx, db, model); err != nil {
			return summary, err
		}
		summary.Models++
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func (r *Runner) loadSeeds(ctx context.Context, db *sql.DB) (int, error) {
	entries, err := fs.ReadDir(r.seedsFS, "seeds")
	if err != nil {
		return 0, fmt.Errorf("read seeds dir: %w", err)
	}

	workDir, err := os.MkdirTemp("", "duckboard-seeds-")
	if err != nil {
		return 0, fmt.Errorf("create seeds temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		table := strings.TrimSuffix(entry.Name(), ".csv")
		raw, err := fs.ReadFile(r.seedsFS, "seeds/"+entry.Name())
		if err != nil {
			return count, fmt.Errorf("read seed %q: %w", entry.Name(), err)
		}
		localPath := filepath.Join(workDir, entry.Name())
		if err := os.WriteFile(localPath, raw, 0o600); err != nil {
			return count, fmt.Errorf("write seed %q: %w", entry.Name(), err)
		}
		loadSQL := fmt.Sprintf(
			`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header = true)`,
			quoteIdent(table), quoteString(localPath),
		)
		if _, err := db.ExecContext(ctx, loadSQL); err != nil {
			return count, fmt.Errorf("load seed %q: %w", table, err)
		}
		count++
	}
	return count, nil
}

func materializeDDL(model Model, script string) string {
	body := strings.TrimSpace(script)
	if model.Kind == KindView {
		return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", quoteIdent(model.Name), body)
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS\n%s", quoteIdent(model.Name), body)
}

func ensureBuildLogTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+buildLogTable+` (
	model VARCHAR NOT NULL,
	kind VARCHAR NOT NULL,
	built_at TIMESTAMP NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure build log table: %w", err)
	}
	return nil
}

func logBuild(ctx context.Context, db *sql.DB, model Model) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO `+buildLogTable+` (model, kind) VALUES (?, ?)`,
		model.Name, string(model.Kind),
	)
	if err != nil {
		return fmt.Errorf("log build of %q: %w", model.Name, err)
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
