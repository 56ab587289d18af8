// Package export writes a query result to the object store as a parquet
// file. Exporting is always an explicit user action; nothing in the ask
// pipeline persists results on its own.
package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/duckboard/duckboard/internal/observability"
	"github.com/duckboard/duckboard/internal/storage"
	"github.com/duckboard/duckboard/internal/warehouse"
)

const parquetContentType = "application/vnd.apache.parquet"

type Exporter struct {
	Store storage.ObjectStore

	// now is swapped in tests to pin object keys.
	now func() time.Time
}

func NewExporter(store storage.ObjectStore) *Exporter {
	return &Exporter{Store: store, now: time.Now}
}

// Export encodes the result and uploads it under a date-partitioned key
// derived from the label. The stored object's info comes back so callers
// can surface the key to the user.
func (e *Exporter) Export(ctx context.Context, label string, result warehouse.Result) (storage.ObjectInfo, error) {
	info, err := e.export(ctx, label, result)
	observability.ObserveExport(err)
	return info, err
}

func (e *Exporter) export(ctx context.Context, label string, result warehouse.Result) (storage.ObjectInfo, error) {
	if len(result.Columns) == 0 {
		return storage.ObjectInfo{}, fmt.Errorf("result has no columns")
	}

	data, err := Encode(result)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	key, err := buildObjectKey(label, e.now().UTC())
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	info, err := e.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
		ContentType: parquetContentType,
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload export: %w", err)
	}
	return info, nil
}

// Encode serializes the result as a single parquet row group. The schema
// is derived per column from the first non-null value; columns that never
// hold a value encode as optional strings.
func Encode(result warehouse.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	kinds := make([]columnKind, len(result.Columns))
	for col := range result.Columns {
		kinds[col] = classifyColumn(result, col)
	}

	group := parquet.Group{}
	for col, name := range result.Columns {
		group[name] = parquet.Optional(kinds[col].node())
	}
	schema := parquet.NewSchema("result", group)

	rows := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for col, name := range result.Columns {
			if row[col] == nil {
				continue
			}
			value, err := kinds[col].coerce(row[col])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			record[name] = value
		}
		rows = append(rows, record)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[map[string]any](buf, schema)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

type columnKind int

const (
	kindString columnKind = iota
	kindInt
	kindFloat
	kindBool
	kindTimestamp
)

func classifyColumn(result warehouse.Result, col int) columnKind {
	for _, row := range result.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return kindInt
		case float32, float64:
			return kindFloat
		case bool:
			return kindBool
		case time.Time:
			return kindTimestamp
		default:
			return kindString
		}
	}
	return kindString
}

func (k columnKind) node() parquet.Node {
	switch k {
	case kindInt:
		return parquet.Int(64)
	case kindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case kindBool:
		return parquet.Leaf(parquet.BooleanType)
	case kindTimestamp:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

func (k columnKind) coerce(value any) (any, error) {
	switch k {
	case kindInt:
		switch typed := value.(type) {
		case int:
			return int64(typed), nil
		case int8:
			return int64(typed), nil
		case int16:
			return int64(typed), nil
		case int32:
			return int64(typed), nil
		case int64:
			return typed, nil
		case uint:
			return int64(typed), nil
		case uint8:
			return int64(typed), nil
		case uint16:
			return int64(typed), nil
		case uint32:
			return int64(typed), nil
		case uint64:
			return int64(typed), nil
		}
	case kindFloat:
		switch typed := value.(type) {
		case float32:
			return float64(typed), nil
		case float64:
			return typed, nil
		case int64:
			return float64(typed), nil
		case int32:
			return float64(typed), nil
		}
	case kindBool:
		if typed, ok := value.(bool); ok {
			return typed, nil
		}
	case kindTimestamp:
		if typed, ok := value.(time.Time); ok {
			return typed.UnixMilli(), nil
		}
	default:
		return fmt.Sprint(value), nil
	}
	return nil, fmt.Errorf("value %v (%T) does not fit the column type", value, value)
}

var labelPattern = regexp.MustCompile(`[^a-z0-9]+`)

// buildObjectKey partitions exports by date so object listings stay
// navigable: 2026/08/31/monthly-revenue-153000-a1b2c3d4.parquet.
func buildObjectKey(label string, at time.Time) (string, error) {
	slug := labelPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "result"
	}
	if len(slug) > 64 {
		slug = slug[:64]
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate key suffix: %w", err)
	}

	return path.Join(
		fmt.Sprintf("%04d/%02d/%02d", at.Year(), at.Month(), at.Day()),
		fmt.Sprintf("%s-%02d%02d%02d-%s.parquet", slug, at.Hour(), at.Minute(), at.Second(), hex.EncodeToString(suffix)),
	), nil
}
