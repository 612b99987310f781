package embeddings

import (
	"context"
	"fmt"
)

// Vector is a fixed-length embedding vector.
type Vector []float32

// Embedder converts texts to vectors. Results are positional: vector i
// embeds texts[i]. A failure embeds nothing; callers never see a partial
// batch.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// DimensionError reports a vector whose length does not match the configured
// embedding dimension. This is a configuration problem (wrong model or wrong
// column width), not a transient one.
type DimensionError struct {
	Model string
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding model %s returned %d dimensions, store expects %d", e.Model, e.Got, e.Want)
}
