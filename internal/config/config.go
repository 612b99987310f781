package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by all services.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8080"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8081"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Store
	DBURL string `env:"DB_URL"`

	// Queue
	QueueURL string `env:"QUEUE_URL"`

	// Cache (optional; a noop cache is used when REDIS_ADDR is empty)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// File storage (documents are written here by the upload subsystem)
	UploadDir string `env:"UPLOAD_DIR" envDefault:"./uploads"`

	// Text recognition
	OCRProvider        string `env:"OCR_PROVIDER" envDefault:"openai_vision"` // "openai_vision", "gemini_vision", "google_vision" or "pdf_text"
	OpenAIKey          string `env:"OPENAI_API_KEY"`
	GeminiKey          string `env:"GEMINI_API_KEY"`
	GoogleVisionAPIKey string `env:"GOOGLE_VISION_API_KEY"`
	OCRModel           string `env:"OCR_MODEL" envDefault:"gpt-4o-mini"`
	GeminiModel        string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	// Embeddings; the dimension must match the vector column width
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-large"`
	EmbeddingDim   int    `env:"EMBEDDING_DIM" envDefault:"3072"`

	// Chunking
	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"400"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"50"`

	// Background workers
	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"4"`
	JobTimeoutSeconds int `env:"JOB_TIMEOUT_SECONDS" envDefault:"300"`

	// Search result cache
	SearchCacheTTLSeconds int `env:"SEARCH_CACHE_TTL_SECONDS" envDefault:"300"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
