package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind is the failure taxonomy observable at the gateway boundary.
// Fallback chains branch on it: RATE_LIMIT skips the rest of a provider's
// models, the others advance to the next chain member.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "TIMEOUT"
	KindRateLimit     ErrorKind = "RATE_LIMIT"
	KindEmpty         ErrorKind = "EMPTY"
	KindMalformed     ErrorKind = "MALFORMED"
	KindProviderError ErrorKind = "PROVIDER_ERROR"
)

// GenerationError is a provider failure classified into a kind.
type GenerationError struct {
	Kind     ErrorKind
	Provider string
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s [%s/%s]: %v", e.Kind, e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from an error chain, defaulting to
// PROVIDER_ERROR for unclassified failures.
func KindOf(err error) ErrorKind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindProviderError
}

// rateLimitMarkers are the provider-specific throttling signals seen in
// error bodies and messages.
var rateLimitMarkers = []string{
	"quota",
	"resource_exhausted",
	"rate_limit",
	"rate limit",
	"too many requests",
	"429",
}

// ClassifyProviderError wraps a raw provider failure into a
// GenerationError with the right kind. statusCode may be 0 when the
// failure happened before an HTTP response (transport error, timeout).
func ClassifyProviderError(provider, model string, statusCode int, err error) *GenerationError {
	kind := KindProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimit
	case err != nil && containsAnyFold(err.Error(), rateLimitMarkers):
		kind = KindRateLimit
	}
	return &GenerationError{Kind: kind, Provider: provider, Model: model, Err: err}
}

// EmptyResponseError marks a call that returned no usable text.
func EmptyResponseError(provider, model string) *GenerationError {
	return &GenerationError{
		Kind:     KindEmpty,
		Provider: provider,
		Model:    model,
		Err:      errors.New("provider returned no content"),
	}
}

func containsAnyFold(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
