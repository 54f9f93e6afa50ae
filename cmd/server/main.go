package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgequery/edgequery/internal/analytics"
	"github.com/edgequery/edgequery/internal/engine"
	"github.com/edgequery/edgequery/internal/index"
	"github.com/edgequery/edgequery/internal/search"
	"github.com/edgequery/edgequery/internal/server"
	"github.com/edgequery/edgequery/internal/store"
	"github.com/edgequery/edgequery/pkg/config"
	"github.com/edgequery/edgequery/pkg/health"
	"github.com/edgequery/edgequery/pkg/kafka"
	"github.com/edgequery/edgequery/pkg/logger"
	"github.com/edgequery/edgequery/pkg/metrics"
	"github.com/edgequery/edgequery/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"page_size", cfg.Query.PageSize,
	)

	blobStore, err := store.New(cfg.Store)
	if err != nil {
		slog.Error("failed to create blob store", "error", err)
		os.Exit(1)
	}
	if closer, ok := blobStore.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	terms, docs, err := loadManifests(blobStore, cfg.Index)
	if err != nil {
		slog.Error("failed to load manifests", "error", err)
		os.Exit(1)
	}
	slog.Info("manifests loaded",
		"term_chunks", len(terms.Ranges),
		"doc_chunks", len(docs.Ranges),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			slog.Info("metrics server listening", "addr", addr)
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	pool := engine.NewPool(cfg.Query.PageSize)
	if m != nil {
		pool.OnReset = func(e *engine.Engine) {
			m.EngineResetsTotal.Inc()
			m.EngineArenaHighWater.Set(float64(e.ArenaSize()))
		}
	}

	resolver := search.NewResolver(blobStore, terms, docs, cfg.Index.TermPrefix, cfg.Index.DocPrefix, m)
	svc := search.NewService(resolver, pool, blobStore, docs, cfg.Index, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topic)
	}

	checker := health.NewChecker()
	checker.Register("blob_store", func(ctx context.Context) health.ComponentHealth {
		if pinger, ok := blobStore.(interface{ Ping(context.Context) error }); ok {
			if err := pinger.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("manifests", func(ctx context.Context) health.ComponentHealth {
		if len(terms.Ranges) == 0 && len(docs.Ranges) == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "empty index"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(svc, collector, cfg.Query.MaxTerms, cfg.Query.MaxQueryBytes, m)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.SearchPath, h.Search)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
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
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", httpServer.Addr, "path", cfg.Server.SearchPath)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// loadManifests fetches and parses the routing tables the build pipeline
// published to the blob store. They stay resident for the process lifetime.
func loadManifests(bs store.BlobStore, cfg config.IndexConfig) (*index.TermManifest, *index.DocManifest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	termData, err := bs.Fetch(ctx, cfg.TermManifestKey)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching term manifest %s: %w", cfg.TermManifestKey, err)
	}
	terms, err := index.ParseTermManifest(termData)
	if err != nil {
		return nil, nil, err
	}

	docData, err := bs.Fetch(ctx, cfg.DocManifestKey)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching doc manifest %s: %w", cfg.DocManifestKey, err)
	}
	docs, err := index.ParseDocManifest(docData)
	if err != nil {
		return nil, nil, err
	}
	return terms, docs, nil
}
