// bm25 ranks a local corpus from the command line. It loads documents the
// same way the search service does, then prints the top results for a
// query, a per-term explanation of one document's score, or the postings
// of a single term.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/logger"
)

type options struct {
	corpusPath string
	k1         float64
	b          float64
	formula    string
	delta      float64
	analyzer   string
	query      string
	top        int
	explain    int
	term       string
	stats      bool
	asJSON     bool
	verbose    bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	params := ranker.DefaultParams()

	flagSet := pflag.NewFlagSet("bm25", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.corpusPath, "corpus", "c", "", "corpus file or directory (.txt, .yaml, .json, .jsonc, .md)")
	flagSet.Float64Var(&opts.k1, "k1", params.K1, "term frequency saturation")
	flagSet.Float64Var(&opts.b, "b", params.B, "document length normalization in [0, 1]")
	flagSet.StringVar(&opts.formula, "formula", ranker.FormulaOkapi, "scoring formula: okapi or plus")
	flagSet.Float64Var(&opts.delta, "delta", ranker.DefaultDelta, "lower bound added per matching term by the plus formula")
	flagSet.StringVar(&opts.analyzer, "analyzer", tokenizer.AnalyzerSimple, "text analyzer: simple or english")
	flagSet.StringVarP(&opts.query, "query", "q", "", "query text")
	flagSet.IntVarP(&opts.top, "top", "n", 5, "number of results to print")
	flagSet.IntVar(&opts.explain, "explain", -1, "explain the query's score against this document id")
	flagSet.StringVar(&opts.term, "term", "", "print postings and rarity for a single term")
	flagSet.BoolVar(&opts.stats, "stats", false, "print corpus statistics")
	flagSet.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log indexing details to stderr")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if opts.corpusPath == "" {
		return fmt.Errorf("--corpus is required")
	}
	explainSet := flagSet.Changed("explain")
	if opts.query == "" && opts.term == "" && !opts.stats {
		return fmt.Errorf("one of --query, --term or --stats is required")
	}
	if explainSet && opts.query == "" {
		return fmt.Errorf("--explain needs --query")
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	slog.SetDefault(logger.New(stderr, level, "text"))

	engine, err := buildEngine(ctx, opts)
	if err != nil {
		return err
	}
	p := newPrinter(stdout, opts.asJSON)

	switch {
	case opts.stats:
		return p.stats(engine.Stats())
	case opts.term != "":
		info := engine.TermInfo(opts.term)
		if info == nil {
			return fmt.Errorf("term %q is not in the corpus", opts.term)
		}
		return p.term(info)
	case explainSet:
		exp, err := engine.Explain(opts.query, opts.explain)
		if err != nil {
			return err
		}
		return p.explanation(exp)
	default:
		results, err := engine.Search(opts.query, opts.top)
		if err != nil {
			return err
		}
		return p.results(engine, opts.query, results)
	}
}

func buildEngine(ctx context.Context, opts options) (*indexer.Engine, error) {
	analyzer, err := tokenizer.ByName(opts.analyzer)
	if err != nil {
		return nil, err
	}
	docs, err := corpus.NewFileLoader(opts.corpusPath).Load(ctx)
	if err != nil {
		return nil, err
	}
	return indexer.New(docs,
		indexer.WithK1(opts.k1),
		indexer.WithB(opts.b),
		indexer.WithFormula(opts.formula),
		indexer.WithDelta(opts.delta),
		indexer.WithAnalyzer(analyzer),
	)
}
