package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/henribesnard/ohadai-sub001/internal/cache"
	"github.com/henribesnard/ohadai-sub001/internal/config"
	"github.com/henribesnard/ohadai-sub001/internal/db"
	dbMemory "github.com/henribesnard/ohadai-sub001/internal/db/memory"
	dbRedis "github.com/henribesnard/ohadai-sub001/internal/db/redis"
	"github.com/henribesnard/ohadai-sub001/internal/domain"
	"github.com/henribesnard/ohadai-sub001/internal/index/lexical"
	logpkg "github.com/henribesnard/ohadai-sub001/internal/logger"
	"github.com/henribesnard/ohadai-sub001/internal/metrics"
	"github.com/henribesnard/ohadai-sub001/internal/repository/corpus"
	"github.com/henribesnard/ohadai-sub001/internal/repository/embcache"
	"github.com/henribesnard/ohadai-sub001/internal/repository/vector"
	chiTransport "github.com/henribesnard/ohadai-sub001/internal/transport/chi"
	openaiEmb "github.com/henribesnard/ohadai-sub001/internal/transport/openai"
	embeddinguc "github.com/henribesnard/ohadai-sub001/internal/usecase/embedding"
	healthuc "github.com/henribesnard/ohadai-sub001/internal/usecase/health"
	rerankuc "github.com/henribesnard/ohadai-sub001/internal/usecase/rerank"
	retrievaluc "github.com/henribesnard/ohadai-sub001/internal/usecase/retrieval"
	"github.com/henribesnard/ohadai-sub001/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ohadai retrieval API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// In-process lexical index
	lexIndex := lexical.New(lexical.Params{K1: cfg.Lexical.K1, B: cfg.Lexical.B})

	// Embedder chain: OpenAI -> Cached -> Instrumented, constructed lazily so
	// a misconfigured provider degrades the vector channel instead of
	// preventing startup.
	embedder, embConfigured := buildEmbedder(cfg, store, logger)

	// Load the corpus into the store, the vector index and the lexical index.
	loader := corpus.New(store, lexIndex, embedder, cfg.Corpus.IndexName, cfg.Embedding.Dimensions, logger)
	if cfg.Corpus.Path != "" {
		n, err := loader.Load(ctx, cfg.Corpus.Path)
		if err != nil {
			logger.Fatal("Failed to load corpus", zap.String("path", cfg.Corpus.Path), zap.Error(err))
		}
		logger.Info("Corpus loaded", zap.Int("documents", n))
	} else {
		logger.Warn("No corpus path configured, serving an empty index")
	}

	vecRepo := vector.New(store, cfg.Corpus.IndexName, cfg.Embedding.Dimensions)
	reranker := rerankuc.New()

	var resultCache retrievaluc.ResultCache
	if cfg.Cache.Enabled {
		c, err := cache.New[retrievaluc.Response](cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSec)*time.Second)
		if err != nil {
			logger.Fatal("Failed to create result cache", zap.Error(err))
		}
		resultCache = c
	}

	retrievalSvc := retrievaluc.New(
		lexIndex, vecRepo, embedder, reranker, resultCache,
		retrievaluc.Config{
			LexicalWeight:       cfg.Retrieval.LexicalWeight,
			VectorWeight:        cfg.Retrieval.VectorWeight,
			Strategy:            retrievaluc.Strategy(cfg.Retrieval.Strategy),
			CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
			RerankTopN:          cfg.Retrieval.RerankTopN,
		},
		logger,
	)

	var embHealth healthuc.EmbeddingChecker
	if embConfigured {
		embHealth = embedder
	}
	healthSvc := healthuc.New(store, embHealth, lexIndex)

	server := chiTransport.NewServer(retrievalSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain behind a lazy provider:
// OpenAI -> Cached -> Instrumented. When no provider is configured the
// factory always errors, which degrades retrieval to lexical-only per
// request instead of failing startup.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) (*embeddinguc.LazyProvider, bool) {
	if cfg.Embedding.Provider == "none" || cfg.Embedding.APIKey == "" {
		logger.Warn("No embedding provider configured, vector channel disabled")
		return embeddinguc.NewLazyProvider(func() (domain.Embedder, error) {
			return nil, fmt.Errorf("no embedding provider configured")
		}), false
	}

	return embeddinguc.NewLazyProvider(func() (domain.Embedder, error) {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})

		var embedder domain.Embedder = base
		if store != nil {
			embedder = embcache.New(
				base, store,
				time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
				metrics.EmbeddingCacheTotal, logger,
			)
		}

		return embeddinguc.NewInstrumentedEmbedder(
			embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
		), nil
	}), true
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}
