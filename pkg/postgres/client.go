// Package postgres opens the lib/pq pool the corpus is read from.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/resilience"
	_ "github.com/lib/pq"
)

const pingTimeout = 3 * time.Second

type Client struct {
	DB     *sql.DB
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// New opens a pool and waits for the database to answer a ping. The search
// service usually starts alongside its database, so the first few pings are
// allowed to fail.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c := &Client{
		DB:     db,
		cfg:    cfg,
		logger: slog.Default().With("component", "postgres", "host", cfg.Host, "database", cfg.Database),
	}
	err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     4 * time.Second,
	}, func() error {
		return resilience.WithTimeout(ctx, pingTimeout, "postgres-ping", db.PingContext)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	c.logger.Info("connected", "max_open_conns", cfg.MaxOpenConns)
	return c, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// InReadOnlyTx runs fn inside a repeatable-read, read-only transaction so
// the corpus count and the document rows come from one snapshot. The
// transaction is always rolled back; nothing in it writes.
func (c *Client) InReadOnlyTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("beginning read-only transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			c.logger.Warn("rolling back read-only transaction", "error", rbErr)
		}
	}()
	return fn(tx)
}
