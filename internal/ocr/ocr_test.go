package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"openai_vision", MethodOpenAIVision, false},
		{"gemini_vision", MethodGeminiVision, false},
		{"google_vision", MethodGoogleVision, false},
		{"pdf_text", MethodPDFText, false},
		{"", "", false},
		{"tesseract", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMethod(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMethod(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegistryDefault(t *testing.T) {
	r := NewRegistry(MethodGeminiVision)
	p := &MockProvider{}
	r.Register(MethodGeminiVision, p)

	got, err := r.Get("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != p {
		t.Error("expected empty method to resolve to the default provider")
	}
}

func TestRegistryUnknownMethod(t *testing.T) {
	r := NewRegistry(MethodOpenAIVision)

	_, err := r.Get(MethodGoogleVision)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestMissingCredentialFailsFast(t *testing.T) {
	// No network call should be attempted; the key check runs first.
	providers := []Provider{
		NewOpenAIVision("", "", nil),
		NewGeminiVision("", "", nil),
		NewGoogleVision("", nil),
	}
	for _, p := range providers {
		_, err := p.Extract(context.Background(), []byte("data"), "image/png")
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%T: expected ConfigError, got %v", p, err)
			continue
		}
		if cfgErr.Reason == "" {
			t.Errorf("%T: expected a non-empty reason", p)
		}
	}
}

func TestPDFTextRejectsImages(t *testing.T) {
	p := NewPDFText()
	_, err := p.Extract(context.Background(), []byte("not a pdf"), "image/png")
	var unsupported *UnsupportedInputError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedInputError, got %v", err)
	}
}

func TestNormalizeImageMime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"image/png", "image/png", false},
		{"image/jpg", "image/jpeg", false},
		{"IMAGE/JPEG", "image/jpeg", false},
		{"", "image/png", false},
		{"application/octet-stream", "image/png", false},
		{"text/plain", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeImageMime(tt.in)
		if tt.wantErr {
			var unsupported *UnsupportedInputError
			if !errors.As(err, &unsupported) {
				t.Errorf("normalizeImageMime(%q): expected UnsupportedInputError, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeImageMime(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("normalizeImageMime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited request error", &RequestError{Provider: "openai_vision", RateLimited: true, Err: errors.New("429")}, true},
		{"plain request error", &RequestError{Provider: "openai_vision", Err: errors.New("boom")}, false},
		{"unrelated error", errors.New("boom"), false},
		{"wrapped", requestError("gemini_vision", errors.New("RESOURCE_EXHAUSTED: quota exceeded")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestErrorClassification(t *testing.T) {
	err := requestError("openai_vision", errors.New("Rate limit reached for gpt-4o-mini"))
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if !re.RateLimited {
		t.Error("expected rate-limit message to be classified as rate limited")
	}

	err = requestError("openai_vision", errors.New("connection refused"))
	if IsRateLimited(err) {
		t.Error("expected network failure not to be classified as rate limited")
	}
}
