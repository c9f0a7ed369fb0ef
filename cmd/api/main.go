// Package main implements the examaid API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/examaid/examaid/engine/answer"
	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/graph"
	"github.com/examaid/examaid/engine/history"
	"github.com/examaid/examaid/engine/rag"
	"github.com/examaid/examaid/engine/retrieve"
	"github.com/examaid/examaid/engine/semantic"
	"github.com/examaid/examaid/pkg/embed"
	"github.com/examaid/examaid/pkg/groq"
	"github.com/examaid/examaid/pkg/metrics"
	"github.com/examaid/examaid/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port           string
	EmbedURL       string
	EmbedModel     string
	QdrantURL      string
	GroqKey        string
	GroqModel      string
	Neo4jURL       string
	Neo4jUser      string
	Neo4jPass      string
	UseGraph       bool
	DataDir        string
	TemplatesPath  string
	CORSOrigin     string
	RequestTimeout time.Duration
	TextThreshold  float32
	ImageThreshold float32
}

func loadConfig() Config {
	return Config{
		Port:           envOr("PORT", "8000"),
		EmbedURL:       envOr("EMBED_URL", "http://localhost:11434"),
		EmbedModel:     envOr("EMBED_MODEL", "all-minilm"),
		QdrantURL:      envOr("QDRANT_URL", "localhost:6334"),
		GroqKey:        envOr("GROQ_API_KEY", ""),
		GroqModel:      envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		Neo4jURL:       envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:      envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:      envOr("NEO4J_PASS", "password"),
		UseGraph:       envOr("USE_GRAPH", "false") == "true",
		DataDir:        envOr("DATA_DIR", "data"),
		TemplatesPath:  envOr("PROMPT_TEMPLATES", ""),
		CORSOrigin:     envOr("CORS_ORIGIN", "*"),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
		TextThreshold:  envFloat("TEXT_SCORE_THRESHOLD", 0.25),
		ImageThreshold: envFloat("IMAGE_SCORE_THRESHOLD", 0.15),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envFloat(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Embedding client ---
	embedder := embed.NewClient(cfg.EmbedURL, cfg.EmbedModel, domain.EmbeddingDims)

	// --- Prompt templates ---
	templates := answer.DefaultTemplates()
	if cfg.TemplatesPath != "" {
		templates, err = answer.LoadTemplates(cfg.TemplatesPath)
		if err != nil {
			return fmt.Errorf("load prompt templates: %w", err)
		}
	}

	// --- Answer generator ---
	genOpts := answer.DefaultOptions()
	genOpts.Model = cfg.GroqModel
	generator := answer.New(groq.NewClient(cfg.GroqKey), templates, genOpts, logger)

	// --- Optional graph enrichment ---
	var enricher rag.Enricher
	if cfg.UseGraph {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		enricher = graph.New(driver)
	}

	// --- Orchestrator ---
	ragOpts := rag.DefaultOptions()
	ragOpts.TextCollection.ScoreThreshold = cfg.TextThreshold
	ragOpts.ImageCollection.ScoreThreshold = cfg.ImageThreshold
	ragOpts.UseGraph = cfg.UseGraph
	retriever := retrieve.New(embedder, vectorStore, logger)
	ragSvc := rag.New(retriever, generator, enricher, ragOpts, logger)

	// --- Chat history ---
	historyStore, err := history.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer historyStore.Close()

	// --- HTTP server ---
	reg := metrics.New()
	srvHandlers := newServer(ragSvc, historyStore, reg, cfg.RequestTimeout, logger)

	handler := mid.Chain(srvHandlers.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("examaid-api"),
		mid.RateLimit(20, 40),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
