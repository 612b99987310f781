package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// GoogleVision runs document-focused OCR through the Cloud Vision API.
// Document text detection handles dense medical scans better than the
// vision-prompted transcription providers.
type GoogleVision struct {
	apiKey string
	ras    *Rasterizer

	once   sync.Once
	svc    *vision.Service
	svcErr error
}

func NewGoogleVision(apiKey string, ras *Rasterizer) *GoogleVision {
	return &GoogleVision{apiKey: apiKey, ras: ras}
}

// service creates the Vision client lazily so the process can boot with the
// credential absent; Extract fails fast before reaching here in that case.
func (p *GoogleVision) service() (*vision.Service, error) {
	p.once.Do(func() {
		p.svc, p.svcErr = vision.NewService(context.Background(), option.WithAPIKey(p.apiKey))
	})
	if p.svcErr != nil {
		return nil, &ConfigError{Provider: string(MethodGoogleVision), Reason: fmt.Sprintf("client init failed: %v", p.svcErr)}
	}
	return p.svc, nil
}

func (p *GoogleVision) Extract(ctx context.Context, content []byte, mimeType string) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", &ConfigError{Provider: string(MethodGoogleVision), Reason: "GOOGLE_VISION_API_KEY is not set"}
	}
	return extractPaged(ctx, content, mimeType, p.ras, p.recognize)
}

func (p *GoogleVision) recognize(ctx context.Context, img []byte, _ string) (string, error) {
	svc, err := p.service()
	if err != nil {
		return "", err
	}

	annotate := func(feature string) (*vision.AnnotateImageResponse, error) {
		resp, err := svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
			Requests: []*vision.AnnotateImageRequest{{
				Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(img)},
				Features: []*vision.Feature{{Type: feature}},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return nil, requestError(string(MethodGoogleVision), err)
		}
		if len(resp.Responses) == 0 {
			return nil, &RequestError{Provider: string(MethodGoogleVision), Err: errors.New("empty annotate response")}
		}
		r := resp.Responses[0]
		if r.Error != nil && r.Error.Message != "" {
			return nil, requestError(string(MethodGoogleVision), errors.New(r.Error.Message))
		}
		return r, nil
	}

	r, err := annotate("DOCUMENT_TEXT_DETECTION")
	if err != nil {
		return "", err
	}
	if r.FullTextAnnotation != nil && r.FullTextAnnotation.Text != "" {
		return r.FullTextAnnotation.Text, nil
	}

	// Fallback: classic text detection annotations, less structured.
	r, err = annotate("TEXT_DETECTION")
	if err != nil {
		return "", err
	}
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}
