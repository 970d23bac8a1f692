package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/span-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpusPath := flag.String("corpus", "", "JSON-lines corpus to index (overrides indexer.corpusPath)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusPath != "" {
		cfg.Indexer.CorpusPath = *corpusPath
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

	slog.Info("starting search service", "port", cfg.Server.Port, "num_shards", cfg.Indexer.NumShards)
	m := metrics.New(prometheus.DefaultRegisterer)

	router, err := shard.NewRouter(cfg.Indexer.NumShards)
	if err != nil {
		return fmt.Errorf("creating shard router: %w", err)
	}
	if cfg.Indexer.CorpusPath != "" {
		f, err := os.Open(cfg.Indexer.CorpusPath)
		if err != nil {
			return fmt.Errorf("opening corpus: %w", err)
		}
		n, err := router.LoadJSONL(f, cfg.Indexer.KeyField)
		f.Close()
		if err != nil {
			return fmt.Errorf("loading corpus %s: %w", cfg.Indexer.CorpusPath, err)
		}
		m.DocsIndexedTotal.Add(float64(n))
	} else {
		slog.Warn("no corpus configured, serving an empty index")
	}
	router.SealAll()

	shards := make([]executor.Shard, 0, router.NumShards())
	for _, e := range router.Shards() {
		shards = append(shards, e)
	}
	exec := executor.NewSharded(shards,
		executor.WithShardTimeout(cfg.Search.TimeoutPerShard),
		executor.WithMetrics(m),
		executor.WithTracing(cfg.Tracing.Enabled),
	)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d shards, %d documents", exec.NumShards(), exec.MaxDoc()),
		}
	})
	opts := []handler.Option{handler.WithMetrics(m)}

	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			opts = append(opts, handler.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, m)))
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	sink, closeSink, err := openSink(ctx, cfg, checker)
	if err != nil {
		return err
	}
	defer closeSink()
	if store, ok := sink.(*analytics.Store); ok {
		opts = append(opts, handler.WithSummarizer(store))
	}
	collector := analytics.NewCollector(sink, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval, m)
	collector.Start(ctx)
	defer collector.Close()
	opts = append(opts, handler.WithTracker(collector))

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	mux := http.NewServeMux()
	handler.New(exec, cfg.Indexer.DefaultField, cfg.Search.DefaultLimit, cfg.Search.MaxResults, opts...).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "documents", exec.MaxDoc())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// openSink connects the configured analytics sink. The returned close func
// is always safe to call.
func openSink(ctx context.Context, cfg *config.Config, checker *health.Checker) (analytics.Sink, func(), error) {
	switch cfg.Analytics.Sink {
	case "kafka":
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		slog.Info("analytics publishing to kafka", "topic", producer.Topic(), "brokers", cfg.Kafka.Brokers)
		return analytics.NewKafkaSink(producer), func() { _ = producer.Close() }, nil
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting analytics store: %w", err)
		}
		store := analytics.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		checker.Register("postgres", health.PingCheck(db.Ping, true))
		slog.Info("analytics persisting to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return store, func() { _ = db.Close() }, nil
	default:
		return analytics.DiscardSink{}, func() {}, nil
	}
}
