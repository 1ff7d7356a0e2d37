package domain

import "time"

// CostLedgerEntry is one append-only record of a token balance change.
//
// Invariant: the balance after the Nth entry for an owner equals the
// balance after entry N-1 plus this entry's signed Amount. Stores must
// reject any entry whose BalanceAfter differs from the ledger-computed
// balance; this is what prevents lost updates under concurrent spends.
type CostLedgerEntry struct {
	// ID uniquely identifies the entry (a UUID assigned at commit).
	ID string `json:"id"`

	// OwnerID identifies whose balance changed.
	OwnerID string `json:"owner_id"`

	// Amount is the signed token delta; debits are negative.
	Amount int64 `json:"amount"`

	// BalanceAfter is the owner's balance once this entry is applied.
	BalanceAfter int64 `json:"balance_after"`

	// Reason is the human-readable cause, e.g. "idea_screening validation".
	Reason string `json:"reason"`

	// RequestID links the entry to the originating validation run.
	RequestID string `json:"request_id"`

	// Timestamp records when the entry was committed.
	Timestamp time.Time `json:"timestamp"`
}

// RunState tracks one validation run through its state machine:
//
//	Admitted -> Dispatching -> Aggregating ->
//	    {Committed | RejectedNoJudges | RejectedInsufficientBalance}
//
// Terminal states have no retry or resume transition; a rejected run must
// be re-submitted as a new request.
type RunState string

const (
	RunAdmitted                    RunState = "admitted"
	RunDispatching                 RunState = "dispatching"
	RunAggregating                 RunState = "aggregating"
	RunCommitted                   RunState = "committed"
	RunRejectedNoJudges            RunState = "rejected_no_judges"
	RunRejectedInsufficientBalance RunState = "rejected_insufficient_balance"
)

// Terminal reports whether the run can make no further transitions.
func (s RunState) Terminal() bool {
	switch s {
	case RunCommitted, RunRejectedNoJudges, RunRejectedInsufficientBalance:
		return true
	default:
		return false
	}
}
