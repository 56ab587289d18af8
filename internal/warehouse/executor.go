package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Request struct {
	SQL string
	// RowLimit wraps the statement in an outer LIMIT when positive. The
	// ask pipeline leaves it at zero so generated SQL executes as given.
	RowLimit int
}

// Result is an ordered tabular value: column names in the SQL's output
// order, rows in result order. Discarded after rendering.
type Result struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Duration time.Duration `json:"-"`
}

// ExecutionError carries the engine's diagnostic verbatim so a human can
// judge whether the generated SQL was wrong. Never paired with a partial
// result.
type ExecutionError struct {
	SQL        string
	Diagnostic string
}

func (e *ExecutionError) Error() string {
	return e.Diagnostic
}

type Executor struct {
	DB *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{DB: db}
}

func (e *Executor) Execute(ctx context.Context, request Request) (Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return Result{}, &ExecutionError{SQL: request.SQL, Diagnostic: "sql is required"}
	}
	if !isAllowedSQL(sqlText) {
		return Result{}, &ExecutionError{SQL: request.SQL, Diagnostic: "only read-only SELECT/WITH queries are allowed"}
	}
	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit)
	}

	start := time.Now()
	rows, err := e.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, &ExecutionError{SQL: request.SQL, Diagnostic: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, &ExecutionError{SQL: request.SQL, Diagnostic: err.Error()}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, &ExecutionError{SQL: request.SQL, Diagnostic: err.Error()}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, &ExecutionError{SQL: request.SQL, Diagnostic: err.Error()}
	}

	return Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func isAllowedSQL(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
