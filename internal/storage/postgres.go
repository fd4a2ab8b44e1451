package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starford/orgboard/internal/checksum"
	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/parser"
)

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS chart_snapshots (
	id       SMALLINT PRIMARY KEY CHECK (id = 1),
	body     JSONB       NOT NULL,
	checksum TEXT        NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresGateway keeps the snapshot in a single-row table.
type PostgresGateway struct {
	pool *pgxpool.Pool
}

// NewPostgresGateway connects to dsn and applies the schema.
func NewPostgresGateway(ctx context.Context, dsn string) (*PostgresGateway, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: postgres schema: %w", err)
	}
	return &PostgresGateway{pool: pool}, nil
}

func (g *PostgresGateway) Load(ctx context.Context) (models.Chart, error) {
	var body string
	err := g.pool.QueryRow(ctx, `SELECT body::text FROM chart_snapshots WHERE id = 1`).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultChart(), nil
	}
	if err != nil {
		return models.Chart{}, fmt.Errorf("storage: postgres load: %w", err)
	}
	return parser.DecodeSnapshot([]byte(body))
}

func (g *PostgresGateway) Save(ctx context.Context, c models.Chart) error {
	data, err := parser.EncodeSnapshot(c)
	if err != nil {
		return err
	}
	_, err = g.pool.Exec(ctx, `
		INSERT INTO chart_snapshots (id, body, checksum, saved_at)
		VALUES (1, $1::jsonb, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			body     = excluded.body,
			checksum = excluded.checksum,
			saved_at = excluded.saved_at
	`, string(data), checksum.Sum(data))
	if err != nil {
		return fmt.Errorf("storage: postgres save: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (g *PostgresGateway) Close() error {
	g.pool.Close()
	return nil
}
