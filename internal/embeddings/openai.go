package embeddings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder calls OpenAI's embeddings API with whole batches.
type OpenAIEmbedder struct {
	model  openai.EmbeddingModel
	dim    int
	client *openai.Client
}

const defaultEmbeddingTimeout = 60 * time.Second

// NewOpenAIEmbedder creates an embedder for a single fixed model. dim is the
// expected output dimension; every returned vector is checked against it.
func NewOpenAIEmbedder(apiKey string, model openai.EmbeddingModel, dim int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Large
	}
	if dim <= 0 {
		dim = 3072
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIEmbedder{model: model, dim: dim, client: &cli}, nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	reqCtx, cancel := context.WithTimeout(ctx, defaultEmbeddingTimeout)
	defer cancel()

	resp, err := e.client.Embeddings.New(reqCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d texts failed: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding batch returned %d vectors for %d texts", len(resp.Data), len(texts))
	}

	// The API documents order-preservation but also carries an index per
	// item; sort on it so positional correspondence never depends on that.
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([]Vector, len(data))
	for i, item := range data {
		vec := make(Vector, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		if len(vec) != e.dim {
			return nil, &DimensionError{Model: string(e.model), Want: e.dim, Got: len(vec)}
		}
		vectors[i] = vec
	}
	return vectors, nil
}
