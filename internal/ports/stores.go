package ports

import (
	"context"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// Subject is the judged record as seen by the engine: an idea, phase, or
// task row owned by a user. The engine reads it for the ownership check
// and updates its status to reference the committed result.
type Subject struct {
	// ID is the subject record identifier.
	ID string

	// OwnerID identifies the owning user.
	OwnerID string

	// Kind names the record type: "idea", "phase", or "task".
	Kind string

	// Status is the subject's current validation status.
	Status string
}

// SubjectStore fetches subject records scoped to an owner.
type SubjectStore interface {
	// FetchForOwner returns the subject only when it exists and belongs to
	// ownerID. A missing subject and a foreign subject both return
	// domain.ErrSubjectNotFound, so existence of other users' records is
	// never leaked.
	FetchForOwner(ctx context.Context, subjectID, ownerID string) (Subject, error)
}

// CommitRequest is the input to the atomic cost-metered commit.
type CommitRequest struct {
	// RequestID correlates the commit with the originating run.
	RequestID string

	// OwnerID identifies whose balance is debited.
	OwnerID string

	// SubjectID identifies the record whose status is updated.
	SubjectID string

	// Cost is the positive token amount to debit.
	Cost int64

	// Reason is the human-readable ledger reason.
	Reason string

	// Result is the consensus result persisted alongside the debit.
	Result *domain.ConsensusResult
}

// CommitReceipt reports a successful atomic commit.
type CommitReceipt struct {
	// Entry is the ledger entry that was appended.
	Entry domain.CostLedgerEntry

	// NewBalance is the owner's balance after the debit.
	NewBalance int64
}

// ValidationStore is the persistence collaborator for balances, the cost
// ledger, and committed consensus results. Implementations expose one
// transaction boundary: Commit either applies the balance check, debit,
// ledger append, result save, and subject status update as a unit, or
// leaves no visible side effect.
type ValidationStore interface {
	// Balance returns the owner's current prepaid token balance.
	// Unknown owners have a zero balance.
	Balance(ctx context.Context, ownerID string) (int64, error)

	// Credit appends a positive ledger entry, e.g. a token purchase.
	Credit(ctx context.Context, ownerID string, amount int64, reason string) (domain.CostLedgerEntry, error)

	// Commit atomically re-verifies balance >= req.Cost, debits, appends
	// the ledger entry, saves req.Result, and marks the subject validated.
	// Returns domain.ErrInsufficientBalance when the re-check fails and
	// domain.ErrBalanceConflict when a concurrent commit won the race;
	// both leave no partial writes and the whole commit is retryable.
	Commit(ctx context.Context, req CommitRequest) (CommitReceipt, error)

	// Entries returns the owner's ledger entries in append order.
	Entries(ctx context.Context, ownerID string) ([]domain.CostLedgerEntry, error)

	// Result returns the most recently committed result for a subject, or
	// domain.ErrSubjectNotFound when none exists.
	Result(ctx context.Context, subjectID string) (*domain.ConsensusResult, error)
}
