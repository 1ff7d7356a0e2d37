package domain

import (
	"errors"
	"fmt"
	"time"
)

// Common domain errors for the validation engine.
var (
	// ErrNoJudgesAvailable indicates that every panel member failed and no
	// usable verdict exists. Fatal to the run; no commit, no charge.
	ErrNoJudgesAvailable = errors.New("no judges available")

	// ErrInsufficientBalance indicates the owner cannot pay the rubric's
	// declared cost. Raised pre-flight and re-checked at commit time.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnauthenticated indicates the caller's identity could not be
	// established or does not own the subject.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRateLimited indicates the per-user admission window is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrSubjectNotFound indicates the subject record does not exist for
	// this owner. Deliberately indistinguishable from a foreign subject.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrBalanceConflict indicates a concurrent commit for the same owner
	// won the balance race. The whole commit is safe to retry.
	ErrBalanceConflict = errors.New("balance conflict")

	// ErrInvalidConfiguration indicates configuration is invalid or
	// incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// InsufficientBalanceError carries the figures the caller needs to act on
// a payment-required rejection.
type InsufficientBalanceError struct {
	// Required is the rubric's declared fixed cost in tokens.
	Required int64

	// Balance is the owner's balance at check time.
	Balance int64
}

// Error implements the error interface.
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required=%d, balance=%d", e.Required, e.Balance)
}

// Unwrap lets errors.Is match ErrInsufficientBalance.
func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// RateLimitedError carries the retry hint for a too-many-requests
// rejection.
type RateLimitedError struct {
	// RetryAfter is how long the caller should wait before re-submitting.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// CommitError wraps a failure inside the atomic commit. Judges were pure
// reads, so the whole commit is safe to retry.
type CommitError struct {
	// Stage names the commit step that failed: "balance", "ledger",
	// "verdict".
	Stage string

	// Err is the underlying store error.
	Err error
}

// Error implements the error interface.
func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommitError) Unwrap() error { return e.Err }

// NewCommitError creates a CommitError for the given stage.
func NewCommitError(stage string, err error) *CommitError {
	return &CommitError{Stage: stage, Err: err}
}
