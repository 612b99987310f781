package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const visionPrompt = "Extract all text from this image exactly as it appears. " +
	"Preserve layout and line breaks where relevant. " +
	"If there is no text, respond with an empty string."

const defaultRecognizeTimeout = 60 * time.Second

// OpenAIVision transcribes page images with an OpenAI vision model. This is
// the default provider.
type OpenAIVision struct {
	apiKey string
	model  openai.ChatModel
	client *openai.Client
	ras    *Rasterizer
}

func NewOpenAIVision(apiKey string, model openai.ChatModel, ras *Rasterizer) *OpenAIVision {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIVision{apiKey: apiKey, model: model, client: &cli, ras: ras}
}

func (p *OpenAIVision) Extract(ctx context.Context, content []byte, mimeType string) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", &ConfigError{Provider: string(MethodOpenAIVision), Reason: "OPENAI_API_KEY is not set"}
	}
	return extractPaged(ctx, content, mimeType, p.ras, func(ctx context.Context, img []byte, mt string) (string, error) {
		return visionTranscribe(ctx, p.client, p.model, string(MethodOpenAIVision), img, mt)
	})
}

// visionTranscribe sends one page image to a chat-completions vision model
// and returns the transcribed text.
func visionTranscribe(ctx context.Context, client *openai.Client, model openai.ChatModel, provider string, img []byte, mimeType string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultRecognizeTimeout)
	defer cancel()

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img))
	resp, err := client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							{
								OfText: &openai.ChatCompletionContentPartTextParam{Text: visionPrompt},
							},
							{
								OfImageURL: &openai.ChatCompletionContentPartImageParam{
									ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL},
								},
							},
						},
					},
				},
			},
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(4096),
	})
	if err != nil {
		return "", requestError(provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
