package engine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresProbe struct {
	conn *pgxpool.Pool
}

// NewPostgresProbe does not connect; the engine may not be running yet.
func NewPostgresProbe(ctx context.Context, connStr string) (*PostgresProbe, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	cfg.MaxConns = 1
	cfg.MinConns = 0
	cfg.ConnConfig.ConnectTimeout = pingTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &PostgresProbe{conn: pool}, nil
}

func (p *PostgresProbe) Ping(ctx context.Context) error {
	c, err := p.conn.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres acquire: %w", err)
	}
	defer c.Release()

	if err := c.Ping(ctx); err != nil {
		// drop the connection so the next ping dials a fresh one
		_ = c.Conn().Close(ctx)
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (p *PostgresProbe) Close() error {
	p.conn.Close()
	return nil
}
