package ocr

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// geminiOpenAIBase is Gemini's OpenAI-compatible endpoint, which lets both
// vision transcription providers share one client stack.
const geminiOpenAIBase = "https://generativelanguage.googleapis.com/v1beta/openai/"

// GeminiVision transcribes page images with a Gemini vision model.
type GeminiVision struct {
	apiKey string
	model  openai.ChatModel
	client *openai.Client
	ras    *Rasterizer
}

func NewGeminiVision(apiKey, model string, ras *Rasterizer) *GeminiVision {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(geminiOpenAIBase))
	return &GeminiVision{apiKey: apiKey, model: openai.ChatModel(model), client: &cli, ras: ras}
}

func (p *GeminiVision) Extract(ctx context.Context, content []byte, mimeType string) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", &ConfigError{Provider: string(MethodGeminiVision), Reason: "GEMINI_API_KEY is not set"}
	}
	return extractPaged(ctx, content, mimeType, p.ras, func(ctx context.Context, img []byte, mt string) (string, error) {
		return visionTranscribe(ctx, p.client, p.model, string(MethodGeminiVision), img, mt)
	})
}
