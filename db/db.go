// Package db wires the relational store connection pool.
package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/jmoiron/sqlx"

	"feedcore/config"
)

// Connection wraps a pooled *sqlx.DB with the lifecycle helpers every
// teacher service's cmd/main.go expects.
type Connection struct {
	DB *sqlx.DB
}

// NewConnection opens and pings a Postgres pool sized per cfg.
func NewConnection(cfg *config.DatabaseConfig) (*Connection, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	sqlxDB, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlxDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.MaxLifetime)

	return &Connection{DB: sqlxDB}, nil
}

// HealthCheck verifies the pool can still reach the database.
func (c *Connection) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.DB.PingContext(ctx)
}

// Close releases the pool.
func (c *Connection) Close() error {
	return c.DB.Close()
}
