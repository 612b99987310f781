// Package ocr extracts text from scanned medical documents through
// interchangeable recognition providers. The provider to run is an explicit
// method tag chosen by the caller, never sniffed from content.
package ocr

import (
	"context"
	"fmt"
	"strings"
)

// Method names a recognition provider.
type Method string

const (
	MethodGoogleVision Method = "google_vision"
	MethodOpenAIVision Method = "openai_vision"
	MethodGeminiVision Method = "gemini_vision"
	MethodPDFText      Method = "pdf_text"
)

// ParseMethod validates a method tag. An empty string is allowed and means
// "use the registry default".
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodGoogleVision, MethodOpenAIVision, MethodGeminiVision, MethodPDFText, "":
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown recognition method %q", s)
}

// Provider turns raw file bytes into recognized text.
type Provider interface {
	Extract(ctx context.Context, content []byte, mimeType string) (string, error)
}

// Registry holds the configured providers keyed by method.
type Registry struct {
	providers map[Method]Provider
	def       Method
}

func NewRegistry(def Method) *Registry {
	if def == "" {
		def = MethodOpenAIVision
	}
	return &Registry{providers: make(map[Method]Provider), def: def}
}

func (r *Registry) Register(m Method, p Provider) {
	r.providers[m] = p
}

// Default returns the method used when a job does not name one.
func (r *Registry) Default() Method {
	return r.def
}

// Get resolves a method to its provider; an empty method resolves to the
// default.
func (r *Registry) Get(m Method) (Provider, error) {
	if m == "" {
		m = r.def
	}
	p, ok := r.providers[m]
	if !ok {
		return nil, &ConfigError{Provider: string(m), Reason: "provider is not registered"}
	}
	return p, nil
}

// pageSeparator joins per-page texts of a multi-page document.
const pageSeparator = "\n\n"

func isPDF(mimeType string) bool {
	return strings.ToLower(strings.TrimSpace(mimeType)) == "application/pdf"
}

func normalizeImageMime(mimeType string) (string, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if mt == "" || mt == "application/octet-stream" {
		mt = "image/png"
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	if !strings.HasPrefix(mt, "image/") {
		return "", &UnsupportedInputError{MimeType: mimeType, Reason: "not an image"}
	}
	return mt, nil
}

// extractPaged rasterizes PDF input and recognizes each page independently,
// joining non-empty page texts with a blank line. Non-PDF input is passed to
// recognize as a single image.
func extractPaged(ctx context.Context, content []byte, mimeType string, ras *Rasterizer, recognize func(ctx context.Context, img []byte, mimeType string) (string, error)) (string, error) {
	if !isPDF(mimeType) {
		mt, err := normalizeImageMime(mimeType)
		if err != nil {
			return "", err
		}
		return recognize(ctx, content, mt)
	}

	pages, err := ras.Pages(ctx, content)
	if err != nil {
		return "", err
	}
	var texts []string
	for _, page := range pages {
		text, err := recognize(ctx, page, "image/png")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, pageSeparator), nil
}
