// Package app wires shared runtime dependencies for the services. Everything
// is constructed here and passed down; no package holds process-global state.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"patient-docs/internal/cache"
	"patient-docs/internal/chunker"
	"patient-docs/internal/config"
	"patient-docs/internal/embeddings"
	"patient-docs/internal/extract"
	"patient-docs/internal/indexer"
	"patient-docs/internal/logger"
	"patient-docs/internal/ocr"
	"patient-docs/internal/queue"
	"patient-docs/internal/store"
	"patient-docs/internal/vectorstore"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Store     store.Store
	Queue     queue.Queue
	Cache     cache.Cache
	Embedder  embeddings.Embedder
	Providers *ocr.Registry
	Vectors   *vectorstore.Service
	Indexer   *indexer.Indexer
	Extractor *extract.Service
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	c := buildCache(cfg, log)

	embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), cfg.EmbeddingDim)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel, "dim", cfg.EmbeddingDim)

	ch, err := chunker.New(chunker.Options{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	providers := buildProviders(cfg, log)

	vectors := vectorstore.New(st, embedder, c, ch, log,
		time.Duration(cfg.SearchCacheTTLSeconds)*time.Second)
	ix := indexer.New(st, vectors, log)
	extractor := extract.New(st, providers, q, log)

	return Deps{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Queue:     q,
		Cache:     c,
		Embedder:  embedder,
		Providers: providers,
		Vectors:   vectors,
		Indexer:   ix,
		Extractor: extractor,
	}, nil
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	db, err := store.NewPostgres(cfg.DBURL, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
	}
	log.Info("using Postgres store")
	return db, nil
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("QUEUE_URL is required")
	}
	nc, err := nats.Connect(cfg.QueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS queue")
	return queue.NewNATS(log, nc, queue.Options{
		MaxConcurrent: cfg.WorkerConcurrency,
		TaskTimeout:   time.Duration(cfg.JobTimeoutSeconds) * time.Second,
	}), nil
}

// buildCache prefers Redis and degrades to a noop cache when it is not
// configured or unreachable, so search keeps working without caching.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set; search caching disabled")
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable; search caching disabled", "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis search cache", "addr", cfg.RedisAddr)
	return c
}

// buildProviders registers every recognition provider; credential checks
// happen at execution time so a missing key fails the one job that needs it,
// not the whole process.
func buildProviders(cfg config.Config, log *slog.Logger) *ocr.Registry {
	def, err := ocr.ParseMethod(cfg.OCRProvider)
	if err != nil {
		log.Warn("unknown OCR_PROVIDER; falling back to default", "value", cfg.OCRProvider)
		def = ocr.MethodOpenAIVision
	}

	ras := ocr.NewRasterizer(log)
	reg := ocr.NewRegistry(def)
	reg.Register(ocr.MethodOpenAIVision, ocr.NewOpenAIVision(cfg.OpenAIKey, openai.ChatModel(cfg.OCRModel), ras))
	reg.Register(ocr.MethodGeminiVision, ocr.NewGeminiVision(cfg.GeminiKey, cfg.GeminiModel, ras))
	reg.Register(ocr.MethodGoogleVision, ocr.NewGoogleVision(cfg.GoogleVisionAPIKey, ras))
	reg.Register(ocr.MethodPDFText, ocr.NewPDFText())
	log.Info("recognition providers registered", "default", def)
	return reg
}
