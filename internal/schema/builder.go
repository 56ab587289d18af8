package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// internalTablePrefix marks bookkeeping tables the build step maintains;
// they are never part of the model context.
const internalTablePrefix = "duckboard_"

// Build introspects every user-facing table in the warehouse's main schema
// and merges curator docs onto it. Tables come back in information_schema
// order (alphabetical in DuckDB), columns in ordinal position.
func Build(ctx context.Context, db *sql.DB, docs Docs) ([]Descriptor, error) {
	rows, err := db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'main'
ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if strings.HasPrefix(name, internalTablePrefix) {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(tables))
	for _, table := range tables {
		descriptor := Descriptor{Table: table}
		if doc, ok := docs.table(table); ok {
			descriptor.Description = doc.Description
		}

		columns, err := tableColumns(ctx, db, table)
		if err != nil {
			return nil, err
		}
		for i := range columns {
			columns[i].Description = docs.column(table, columns[i].Name)
		}
		descriptor.Columns = columns
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.Type); err != nil {
			return nil, fmt.Errorf("scan column for %q: %w", table, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns for %q: %w", table, err)
	}
	return columns, nil
}
