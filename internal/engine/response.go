package engine

import (
	"errors"
	"fmt"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// Rejection codes form the closed vocabulary returned to callers. Raw
// provider errors, paths, and configuration details never appear here;
// those go to the server-side log keyed by the run's correlation id.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeNotFound           = "NOT_FOUND"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodePaymentRequired    = "PAYMENT_REQUIRED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInternal           = "INTERNAL"
)

// Rejection is the sanitized terminal failure of a validation run. Only
// the structured fields the caller can act on are populated: retryAfter
// for rate limiting, required and balance for payment.
type Rejection struct {
	// Code is one of the Code* constants.
	Code string `json:"error"`

	// RequestID is the run's correlation id, safe to share with support.
	RequestID string `json:"requestId"`

	// RetryAfterSeconds is set only for TOO_MANY_REQUESTS.
	RetryAfterSeconds int64 `json:"retryAfter,omitempty"`

	// Required and Balance are set only for PAYMENT_REQUIRED.
	Required int64 `json:"required,omitempty"`
	Balance  int64 `json:"balance,omitempty"`
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("validation rejected: %s", r.Code)
}

// Response is the caller-facing payload for a committed run. Failed
// verdicts appear in Validations as data, labeled by judge, with their
// failure kind but never the raw provider detail.
type Response struct {
	Success        bool                  `json:"success"`
	Consensus      bool                  `json:"consensus"`
	AvgScore       int                   `json:"avgScore"`
	Validations    []domain.JudgeVerdict `json:"validations"`
	AgreementLevel domain.AgreementLevel `json:"agreementLevel"`

	// RequestID is the run's correlation id.
	RequestID string `json:"requestId"`

	// NewBalance is the owner's balance after the debit.
	NewBalance int64 `json:"newBalance"`
}

// rejectionFor maps an internal error to its sanitized rejection. Any
// error outside the known set collapses to INTERNAL.
func rejectionFor(requestID string, err error) *Rejection {
	rej := &Rejection{RequestID: requestID}

	var rateErr *domain.RateLimitedError
	var balErr *domain.InsufficientBalanceError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		rej.Code = CodeUnauthenticated
	case errors.Is(err, domain.ErrSubjectNotFound):
		rej.Code = CodeNotFound
	case errors.As(err, &rateErr):
		rej.Code = CodeTooManyRequests
		rej.RetryAfterSeconds = int64(rateErr.RetryAfter.Seconds())
	case errors.As(err, &balErr):
		rej.Code = CodePaymentRequired
		rej.Required = balErr.Required
		rej.Balance = balErr.Balance
	case errors.Is(err, domain.ErrInsufficientBalance):
		rej.Code = CodePaymentRequired
	case errors.Is(err, domain.ErrNoJudgesAvailable):
		rej.Code = CodeServiceUnavailable
	case errors.Is(err, domain.ErrInvalidConfiguration):
		rej.Code = CodeInvalidRequest
	default:
		rej.Code = CodeInternal
	}
	return rej
}
