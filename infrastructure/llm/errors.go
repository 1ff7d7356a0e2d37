// Package llm implements the JudgeClient port against real LLM providers.
// It abstracts provider-specific APIs behind a common core interface and
// composes cross-cutting concerns (timeout, rate limiting, circuit breaking,
// metrics, tracing) through a middleware chain.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// Common errors returned by the judge client and providers.
var (
	// ErrEmptyAPIKey indicates that an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates that the provider's API returned an empty
	// or nil response body.
	ErrEmptyResponse = errors.New("empty response from API")
	// ErrNoResponseChoice indicates that the provider's response contained
	// no valid choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ProviderError is a structured error from a judgment provider, normalized
// into the engine's closed JudgeErrorKind vocabulary so callers can decide
// retryability without knowing the provider.
type ProviderError struct {
	// Kind classifies the failure per the engine's taxonomy.
	Kind domain.JudgeErrorKind
	// Provider identifies which provider produced the error.
	Provider string
	// StatusCode holds the provider's HTTP status, if applicable.
	StatusCode int
	// Message contains the provider's error message. Logged server-side,
	// never surfaced to callers.
	Message string
	// WrappedError holds the original underlying error for chaining.
	WrappedError error
}

// Error returns a string representation of the ProviderError.
func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error [%s]", e.Provider, e.Kind)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.WrappedError != nil {
		base += fmt.Sprintf(": %v", e.WrappedError)
	}
	return base
}

// Unwrap returns the underlying wrapped error for errors.Is/As inspection.
func (e *ProviderError) Unwrap() error { return e.WrappedError }

// JudgeErrorKind implements ports.JudgeErrorClassifier.
func (e *ProviderError) JudgeErrorKind() domain.JudgeErrorKind { return e.Kind }

// IsRetryable reports whether a request that failed with this error may be
// retried by caller policy. Quota and malformed failures never are.
func (e *ProviderError) IsRetryable() bool {
	switch e.Kind {
	case domain.JudgeErrUnavailable, domain.JudgeErrRateLimited:
		return true
	default:
		return false
	}
}

// NewProviderError builds a standardized error from a provider response.
func NewProviderError(provider string, kind domain.JudgeErrorKind, statusCode int, message string, wrapped error) *ProviderError {
	return &ProviderError{
		Kind:         kind,
		Provider:     provider,
		StatusCode:   statusCode,
		Message:      message,
		WrappedError: wrapped,
	}
}

// ErrorClassifier reduces provider-specific failures to ProviderError
// instances using HTTP status codes and context state.
type ErrorClassifier struct {
	// Provider is the provider name stamped on every classified error.
	Provider string
}

// ClassifyHTTPError maps an HTTP status to the engine's taxonomy:
// 429 is RateLimited, 402 is QuotaExceeded, 5xx is Unavailable, and
// everything else defaults to Unavailable (the retryable-by-policy case).
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var kind domain.JudgeErrorKind
	switch {
	case statusCode == 429:
		kind = domain.JudgeErrRateLimited
	case statusCode == 402:
		kind = domain.JudgeErrQuotaExceeded
	case statusCode >= 500:
		kind = domain.JudgeErrUnavailable
	default:
		kind = domain.JudgeErrUnavailable
	}
	return NewProviderError(ec.Provider, kind, statusCode, message, err)
}

// ClassifyContextError maps context cancellation and deadline expiry to
// Unavailable; a hung provider is indistinguishable from a down one.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, domain.JudgeErrUnavailable, 0, "request deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, domain.JudgeErrUnavailable, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, domain.JudgeErrUnavailable, 0, "", err)
	}
}

// ClassifyTransportShape flags a 2xx response whose body is unusable at
// the transport level (empty, wrong content shape).
func (ec *ErrorClassifier) ClassifyTransportShape(message string, err error) *ProviderError {
	return NewProviderError(ec.Provider, domain.JudgeErrMalformed, 0, message, err)
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
