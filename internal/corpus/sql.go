package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/resilience"
	_ "github.com/glebarez/sqlite"
	"github.com/lib/pq"
)

// TxRunner runs fn in a read-only transaction. *postgres.Client and
// *SQLiteDB implement it.
type TxRunner interface {
	InReadOnlyTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// SQLLoader reads one text column of a table, ordered by OrderBy so that
// document ids are stable across restarts. NULL values load as empty
// documents to keep ids aligned with rows.
type SQLLoader struct {
	db      TxRunner
	query   string
	count   string
	timeout time.Duration
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

func NewSQLLoader(db TxRunner, cfg config.CorpusConfig) (*SQLLoader, error) {
	if cfg.Table == "" || cfg.Column == "" {
		return nil, fmt.Errorf("sql corpus needs both table and column")
	}
	if cfg.OrderBy == "" {
		return nil, fmt.Errorf("sql corpus needs an order-by column")
	}
	table := quoteQualified(cfg.Table)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		pq.QuoteIdentifier(cfg.Column), table, pq.QuoteIdentifier(cfg.OrderBy))
	return &SQLLoader{
		db:      db,
		query:   query,
		count:   "SELECT COUNT(*) FROM " + table,
		timeout: cfg.LoadTimeout,
		retry: resilience.RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		logger: slog.Default().With("component", "corpus-loader", "source", "sql", "table", cfg.Table),
	}, nil
}

// Query returns the SELECT statement the loader runs.
func (l *SQLLoader) Query() string {
	return l.query
}

func (l *SQLLoader) Load(ctx context.Context) ([]string, error) {
	var docs []string
	err := resilience.Retry(ctx, "corpus-load", l.retry, func() error {
		var attempt []string
		err := resilience.WithTimeout(ctx, l.timeout, "corpus-load", func(ctx context.Context) error {
			var err error
			attempt, err = l.loadOnce(ctx)
			return classify(err)
		})
		if err == nil {
			docs = attempt
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	l.logger.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}

func (l *SQLLoader) loadOnce(ctx context.Context) ([]string, error) {
	var docs []string
	err := l.db.InReadOnlyTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, l.count).Scan(&n); err != nil {
			return fmt.Errorf("counting rows: %w", err)
		}
		docs = make([]string, 0, n)
		rows, err := tx.QueryContext(ctx, l.query)
		if err != nil {
			return fmt.Errorf("querying documents: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var body sql.NullString
			if err := rows.Scan(&body); err != nil {
				return fmt.Errorf("scanning document %d: %w", len(docs), err)
			}
			docs = append(docs, body.String)
		}
		return rows.Err()
	})
	return docs, err
}

// classify stops retries for errors another attempt cannot fix: SQL syntax
// or undefined objects, and a cancelled caller.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "42" {
		return resilience.Permanent(err)
	}
	if errors.Is(err, context.Canceled) {
		return resilience.Permanent(err)
	}
	if strings.Contains(err.Error(), "no such table") || strings.Contains(err.Error(), "no such column") {
		return resilience.Permanent(err)
	}
	return err
}

func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// SQLiteDB is a corpus database stored in a single SQLite file.
type SQLiteDB struct {
	DB *sql.DB
}

func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	return &SQLiteDB{DB: db}, nil
}

func (s *SQLiteDB) InReadOnlyTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}

func (s *SQLiteDB) Close() error {
	return s.DB.Close()
}
