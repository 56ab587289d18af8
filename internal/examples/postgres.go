package examples

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("examples dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open examples db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping examples db: %w", err)
	}

	return db, nil
}

// PostgresSource loads curator-managed pairs from the duckboard_example
// table. Position defines the inclusion (relevance) order.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Load(ctx context.Context) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT question, sql_text
FROM duckboard_example
ORDER BY position ASC, example_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pairs []Pair
	for rows.Next() {
		var pair Pair
		if err := rows.Scan(&pair.Question, &pair.SQL); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate examples: %w", err)
	}
	return pairs, nil
}

func (s *PostgresSource) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
