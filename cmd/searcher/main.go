package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/tracing"
)

func main() {
	configPath := pflag.String("config", "configs/development.yaml", "path to config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"formula", cfg.Ranking.Formula,
	)
	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker()

	var runner corpus.TxRunner
	if cfg.Corpus.Source == "postgres" {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to corpus database: %w", err)
		}
		defer pg.Close()
		runner = pg
		checker.Register("postgres", health.PingCheck(pg.Ping, false))
	}

	engine, err := buildEngine(ctx, cfg, runner, m)
	if err != nil {
		return err
	}
	checker.Register("ranking_engine", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", stats.Documents, stats.Terms),
		}
	})

	tracer := tracing.NewTracer(cfg.Tracing)
	exec := executor.New(engine, tracer)

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer func() {
				stats := redisClient.PoolStats()
				slog.Info("closing search cache", "hits", stats.Hits, "misses", stats.Misses, "timeouts", stats.Timeouts)
				redisClient.Close()
			}()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, engine.Fingerprint(), exec.NormalizedTerms, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
				"namespace", engine.Fingerprint(),
			)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	aggregator := analytics.NewAggregator(m)
	var publisher analytics.Publisher = analytics.Local{Aggregator: aggregator}
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.SearchEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka, topic, analytics.HandleEvent(aggregator))
		g.Go(func() error {
			return aggregator.Consume(gctx, consumer)
		})
		slog.Info("search analytics routed through kafka", "topic", topic, "brokers", cfg.Kafka.Brokers)
	}
	collector := analytics.NewCollector(publisher, analytics.CollectorConfig{}, m)
	collector.Start(gctx)
	defer collector.Close()

	h := handler.New(engine, exec, queryCache, collector, m, cfg.Search)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.AccessLog(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		if shutdownMetrics, err = metrics.StartServer(cfg.Metrics.Port); err != nil {
			return err
		}
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildEngine(ctx context.Context, cfg *config.Config, runner corpus.TxRunner, m *metrics.Metrics) (*indexer.Engine, error) {
	analyzer, err := tokenizer.ByName(cfg.Ranking.Analyzer)
	if err != nil {
		return nil, err
	}
	loader, err := corpus.FromConfig(cfg.Corpus, runner)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	engine, err := indexer.New(docs,
		indexer.WithK1(cfg.Ranking.K1),
		indexer.WithB(cfg.Ranking.B),
		indexer.WithFormula(cfg.Ranking.Formula),
		indexer.WithDelta(cfg.Ranking.Delta),
		indexer.WithAnalyzer(analyzer),
	)
	if err != nil {
		return nil, fmt.Errorf("building ranking engine: %w", err)
	}

	stats := engine.Stats()
	m.ObserveCorpus(stats.Documents, stats.Terms, stats.AvgDocLength, time.Since(start).Seconds())
	slog.Info("ranking engine ready",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"fingerprint", stats.Fingerprint,
		"duration", time.Since(start),
	)
	return engine, nil
}
