package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	// Clear env to test defaults
	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"LogLevel", cfg.LogLevel, "info"},
		{"OCRProvider", cfg.OCRProvider, "openai_vision"},
		{"EmbeddingModel", cfg.EmbeddingModel, "text-embedding-3-large"},
		{"EmbeddingDim", cfg.EmbeddingDim, 3072},
		{"ChunkSize", cfg.ChunkSize, 400},
		{"ChunkOverlap", cfg.ChunkOverlap, 50},
		{"WorkerConcurrency", cfg.WorkerConcurrency, 4},
		{"JobTimeoutSeconds", cfg.JobTimeoutSeconds, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	// Save and restore env
	originalPort := os.Getenv("PORT")
	originalProvider := os.Getenv("OCR_PROVIDER")
	defer func() {
		os.Setenv("PORT", originalPort)
		os.Setenv("OCR_PROVIDER", originalProvider)
	}()

	os.Setenv("PORT", "9090")
	os.Setenv("OCR_PROVIDER", "gemini_vision")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.OCRProvider != "gemini_vision" {
		t.Errorf("expected OCR provider 'gemini_vision', got %s", cfg.OCRProvider)
	}
}

func TestLoadChunkingOverrides(t *testing.T) {
	originalSize := os.Getenv("CHUNK_SIZE")
	originalOverlap := os.Getenv("CHUNK_OVERLAP")
	defer func() {
		os.Setenv("CHUNK_SIZE", originalSize)
		os.Setenv("CHUNK_OVERLAP", originalOverlap)
	}()

	os.Setenv("CHUNK_SIZE", "200")
	os.Setenv("CHUNK_OVERLAP", "25")

	cfg := Load()

	if cfg.ChunkSize != 200 {
		t.Errorf("expected chunk size 200, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 25 {
		t.Errorf("expected chunk overlap 25, got %d", cfg.ChunkOverlap)
	}
}
