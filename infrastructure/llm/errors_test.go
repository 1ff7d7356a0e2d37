package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// TestClassifyHTTPError verifies the HTTP status taxonomy: 429 rate
// limited, 402 quota, 5xx and everything else unavailable.
func TestClassifyHTTPError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		name       string
		statusCode int
		wantKind   domain.JudgeErrorKind
		retryable  bool
	}{
		{name: "rate limited", statusCode: 429, wantKind: domain.JudgeErrRateLimited, retryable: true},
		{name: "quota exceeded", statusCode: 402, wantKind: domain.JudgeErrQuotaExceeded, retryable: false},
		{name: "server error", statusCode: 500, wantKind: domain.JudgeErrUnavailable, retryable: true},
		{name: "bad gateway", statusCode: 502, wantKind: domain.JudgeErrUnavailable, retryable: true},
		{name: "unauthorized maps to unavailable", statusCode: 401, wantKind: domain.JudgeErrUnavailable, retryable: true},
		{name: "bad request maps to unavailable", statusCode: 400, wantKind: domain.JudgeErrUnavailable, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := ec.ClassifyHTTPError(tt.statusCode, "boom", errors.New("boom"))
			assert.Equal(t, tt.wantKind, perr.Kind)
			assert.Equal(t, tt.retryable, perr.IsRetryable())
			assert.Equal(t, "openai", perr.Provider)
			assert.Equal(t, tt.statusCode, perr.StatusCode)
		})
	}
}

// TestClassifyContextError verifies timeouts and cancellations read as
// provider unavailability.
func TestClassifyContextError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "anthropic"}

	perr := ec.ClassifyContextError(context.DeadlineExceeded)
	assert.Equal(t, domain.JudgeErrUnavailable, perr.Kind)
	assert.ErrorIs(t, perr, context.DeadlineExceeded)

	perr = ec.ClassifyContextError(context.Canceled)
	assert.Equal(t, domain.JudgeErrUnavailable, perr.Kind)
}

// TestClassifyTransportShape verifies an unusable 2xx body classifies as
// malformed, the non-retryable normalization failure class.
func TestClassifyTransportShape(t *testing.T) {
	ec := &ErrorClassifier{Provider: "google"}

	perr := ec.ClassifyTransportShape("empty response", ErrEmptyResponse)
	assert.Equal(t, domain.JudgeErrMalformed, perr.Kind)
	assert.False(t, perr.IsRetryable())
	assert.ErrorIs(t, perr, ErrEmptyResponse)
}

// TestJudgeErrorKindOf verifies the ports-level reduction picks up the
// classifier through wrapping and defaults to unavailable otherwise.
func TestJudgeErrorKindOf(t *testing.T) {
	t.Run("classified provider error", func(t *testing.T) {
		perr := NewProviderError("openai", domain.JudgeErrRateLimited, 429, "slow down", nil)
		assert.Equal(t, domain.JudgeErrRateLimited, ports.JudgeErrorKindOf(perr))
	})

	t.Run("wrapped provider error", func(t *testing.T) {
		perr := NewProviderError("openai", domain.JudgeErrQuotaExceeded, 402, "pay up", nil)
		wrapped := errors.Join(errors.New("judge call failed"), perr)
		assert.Equal(t, domain.JudgeErrQuotaExceeded, ports.JudgeErrorKindOf(wrapped))
	})

	t.Run("unclassified error", func(t *testing.T) {
		assert.Equal(t, domain.JudgeErrUnavailable, ports.JudgeErrorKindOf(errors.New("mystery")))
	})
}

// TestProviderErrorMessage verifies the error string carries provider,
// kind, and status for server-side logs.
func TestProviderErrorMessage(t *testing.T) {
	perr := NewProviderError("openai", domain.JudgeErrRateLimited, 429, "too many requests", nil)
	msg := perr.Error()
	require.Contains(t, msg, "openai")
	require.Contains(t, msg, "rate_limited")
	require.Contains(t, msg, "429")
}
