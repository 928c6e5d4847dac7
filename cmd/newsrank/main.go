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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/config"
	logpkg "github.com/finradar/newsrank/internal/logger"
	"github.com/finradar/newsrank/internal/metrics"
	"github.com/finradar/newsrank/internal/nlp"
	corpusrepo "github.com/finradar/newsrank/internal/repository/corpus"
	chiTransport "github.com/finradar/newsrank/internal/transport/chi"
	openaiEmb "github.com/finradar/newsrank/internal/transport/openai"
	"github.com/finradar/newsrank/internal/transport/rss"
	featureuc "github.com/finradar/newsrank/internal/usecase/feature"
	ingestuc "github.com/finradar/newsrank/internal/usecase/ingest"
	rankuc "github.com/finradar/newsrank/internal/usecase/rank"
	searchuc "github.com/finradar/newsrank/internal/usecase/search"
	traininguc "github.com/finradar/newsrank/internal/usecase/training"
	"github.com/finradar/newsrank/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting newsrank API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_path", cfg.Storage.Path),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterEmbeddingMetrics()

	// Document store
	store, err := corpusrepo.Open(cfg.Storage.Path, cfg.Storage.InMemory, logger)
	if err != nil {
		logger.Fatal("Failed to open corpus store", zap.Error(err))
	}
	defer store.Close()

	// Language tooling from the configured tables
	morph := nlp.NewMorphology(cfg.Keywords.MorphForms)
	ner := nlp.NewLexiconExtractor(cfg.Keywords.Entities, cfg.Keywords.Banking)

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxChars:   cfg.Embedding.MaxChars,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Use case services
	searchSvc := searchuc.New(store, embedder, morph, ner, searchuc.Config{
		PhraseSynonyms:    cfg.Keywords.PhraseSynonyms,
		Synonyms:          cfg.Keywords.Synonyms,
		StopWords:         cfg.Keywords.StopWords,
		Critical:          cfg.Keywords.Critical,
		High:              cfg.Keywords.High,
		Exclude:           cfg.Keywords.Exclude,
		IncludeVectorOnly: cfg.Search.IncludeVectorOnly,
		DefaultTopK:       cfg.Search.DefaultTopK,
		MaxTopK:           cfg.Search.MaxTopK,
	}, logger)

	extractor := featureuc.NewExtractor(morph, featureuc.Config{
		HighAuthority:   cfg.Keywords.HighAuthority,
		MediumAuthority: cfg.Keywords.MediumAuthority,
	})

	rankSvc := rankuc.New(searchSvc, extractor, rankuc.Config{
		DefaultTopK: cfg.Search.DefaultTopK,
	}, logger)
	if err := rankSvc.LoadFromDisk(cfg.Ranking.ArtifactPath); err != nil {
		// No artifact yet is the normal first-boot state; serve base fusion.
		logger.Warn("No ranking model loaded, serving base fusion",
			zap.String("path", cfg.Ranking.ArtifactPath),
			zap.Error(err))
	}

	trainingSvc := traininguc.New(searchSvc, extractor, rankSvc, traininguc.Config{
		ArtifactPath:       cfg.Ranking.ArtifactPath,
		BackupDir:          cfg.Ranking.BackupDir,
		MinLabeledExamples: cfg.Ranking.MinLabeledExamples,
		Rounds:             cfg.Ranking.Rounds,
		LearningRate:       cfg.Ranking.LearningRate,
		NumLeaves:          cfg.Ranking.NumLeaves,
		MaxDepth:           cfg.Ranking.MaxDepth,
		Seed:               cfg.Ranking.Seed,
		EvalK:              cfg.Ranking.EvalK,
	}, logger)

	// Background ingestion
	rootCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()

	if len(cfg.Ingest.Sources) > 0 {
		fetcher := rss.NewFetcher(30*time.Second, logger)
		sources := make([]ingestuc.Source, 0, len(cfg.Ingest.Sources))
		for _, src := range cfg.Ingest.Sources {
			if src.Enabled != nil && !*src.Enabled {
				continue
			}
			sources = append(sources, ingestuc.Source{
				Name:     src.Name,
				URL:      src.URL,
				Category: src.Category,
			})
		}

		ingestSvc, err := ingestuc.New(fetcher, store, embedder, ner, ingestuc.Config{
			Interval:           time.Duration(cfg.Ingest.IntervalSec) * time.Second,
			InitialDelay:       time.Duration(cfg.Ingest.InitialDelaySec) * time.Second,
			LimitPerSource:     cfg.Ingest.LimitPerSource,
			MaxConcurrentEmbed: cfg.Ingest.MaxConcurrentEmbed,
			MaxAgeDays:         cfg.Ingest.MaxAgeDays,
			DedupeCapacity:     cfg.Ingest.DedupeCapacity,
			DedupeTTL:          time.Duration(cfg.Ingest.DedupeTTLSec) * time.Second,
			Sources:            sources,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create ingestion service", zap.Error(err))
		}
		defer ingestSvc.Close()

		go ingestSvc.Run(rootCtx)
		logger.Info("Background ingestion scheduled",
			zap.Int("sources", len(sources)),
			zap.Int("interval_sec", cfg.Ingest.IntervalSec))
	}

	// HTTP server
	server := chiTransport.NewServer(rankSvc, trainingSvc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

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
	stopIngest()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
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
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
