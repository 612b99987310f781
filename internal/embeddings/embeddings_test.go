package embeddings

import (
	"strings"
	"testing"
)

func TestDimensionError(t *testing.T) {
	err := &DimensionError{Model: "text-embedding-3-large", Want: 3072, Got: 1536}

	msg := err.Error()
	if !strings.Contains(msg, "3072") || !strings.Contains(msg, "1536") {
		t.Errorf("expected both dimensions in message, got %q", msg)
	}
	if !strings.Contains(msg, "text-embedding-3-large") {
		t.Errorf("expected model name in message, got %q", msg)
	}
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder("", "", 3072); err == nil {
		t.Error("expected error for empty api key")
	}
}

func TestNewOpenAIEmbedderDefaults(t *testing.T) {
	e, err := NewOpenAIEmbedder("test-key", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.dim != 3072 {
		t.Errorf("expected default dimension 3072, got %d", e.dim)
	}
	if e.model == "" {
		t.Error("expected a default model")
	}
}
