// Package corpus loads the documents the ranking engine indexes at startup.
// A document's position in the returned slice is its id, so every loader
// returns documents in a stable order.
package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
)

// Loader produces the corpus.
type Loader interface {
	Load(ctx context.Context) ([]string, error)
}

// Func adapts a function to Loader.
type Func func(ctx context.Context) ([]string, error)

func (f Func) Load(ctx context.Context) ([]string, error) { return f(ctx) }

// Static serves an in-memory corpus.
func Static(documents []string) Loader {
	return Func(func(ctx context.Context) ([]string, error) {
		out := make([]string, len(documents))
		copy(out, documents)
		return out, nil
	})
}

// FromConfig picks the loader for cfg.Source. pg is only consulted for the
// "postgres" source and may be nil otherwise.
func FromConfig(cfg config.CorpusConfig, pg TxRunner) (Loader, error) {
	switch cfg.Source {
	case "file":
		return NewFileLoader(cfg.Path), nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("corpus source postgres requires a database connection")
		}
		return NewSQLLoader(pg, cfg)
	case "sqlite":
		return Func(func(ctx context.Context) ([]string, error) {
			db, err := OpenSQLite(cfg.Path)
			if err != nil {
				return nil, err
			}
			defer db.Close()
			l, err := NewSQLLoader(db, cfg)
			if err != nil {
				return nil, err
			}
			return l.Load(ctx)
		}), nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Source)
	}
}
