package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown provider or backend name.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrStorage indicates the durable store failed (connection loss,
	// constraint violation, corrupt row).
	ErrStorage = errors.New("storage error")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Saving and querying both need embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// Provider Errors.

	// ErrProviderTimeout indicates an external provider call did not finish in time.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderRateLimited indicates the provider rejected the call for rate reasons.
	ErrProviderRateLimited = errors.New("provider rate limited")

	// ErrProviderFailed indicates the provider reported a failure.
	// Concrete failures are carried by *ProviderError.
	ErrProviderFailed = errors.New("provider error")

	// ErrMalformedResponse indicates the provider broke its response contract.
	// It is never retried and never patched over with fabricated data.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ProviderError is a failure reported by an external provider.
// It unwraps to ErrProviderRateLimited, ErrProviderTimeout or ErrProviderFailed
// depending on the status code.
type ProviderError struct {
	Provider string
	Code     int
	Message  string
}

// NewProviderError builds a ProviderError for a non-2xx response.
func NewProviderError(provider string, code int, message string) *ProviderError {
	return &ProviderError{Provider: provider, Code: code, Message: message}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Message)
}

// Unwrap maps the status code onto the provider error taxonomy.
func (e *ProviderError) Unwrap() error {
	switch e.Code {
	case http.StatusTooManyRequests:
		return ErrProviderRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrProviderTimeout
	default:
		return ErrProviderFailed
	}
}

// Temporary reports whether the provider signalled a server-side fault.
func (e *ProviderError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError
}

// IsRetryable reports whether err is worth another attempt against a provider.
// Timeouts, rate limits and 5xx responses are retryable. Malformed responses
// and client errors are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, ErrProviderTimeout) || errors.Is(err, ErrProviderRateLimited) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return false
}

// Malformed builds an ErrMalformedResponse with diagnostic detail.
func Malformed(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedResponse, provider, fmt.Sprintf(format, args...))
}
