package ocr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"google.golang.org/api/googleapi"
)

// ConfigError reports a provider that cannot run because its credential or
// client configuration is missing. Not retryable; fix the environment.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

// UnsupportedInputError reports input the selected provider cannot process,
// including PDF rasterization failures.
type UnsupportedInputError struct {
	MimeType string
	Reason   string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported input %q: %s", e.MimeType, e.Reason)
}

// RequestError wraps a failed provider call. RateLimited marks quota
// exhaustion so callers can log it distinctly from other network failures.
type RequestError struct {
	Provider    string
	RateLimited bool
	Err         error
}

func (e *RequestError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("%s: rate limit exceeded: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is a provider rate-limit failure.
func IsRateLimited(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.RateLimited
}

// requestError classifies a provider failure, marking HTTP 429 and quota
// responses as rate-limited.
func requestError(provider string, err error) error {
	return &RequestError{Provider: provider, RateLimited: rateLimited(err), Err: err}
}

func rateLimited(err error) bool {
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) && oaiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}
	// Some providers wrap the status away; fall back to message matching.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "429")
}
