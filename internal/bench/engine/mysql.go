package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLProbe pings MySQL-compatible servers (InnoDB, MyRocks, Percona).
type MySQLProbe struct {
	db *sql.DB
}

func NewMySQLProbe(dsn string) (*MySQLProbe, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.Timeout = pingTimeout

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	// the server is restarted between trials, so never reuse a connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	return &MySQLProbe{db: db}, nil
}

func (p *MySQLProbe) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping: %w", err)
	}
	return nil
}

func (p *MySQLProbe) Close() error {
	return p.db.Close()
}
