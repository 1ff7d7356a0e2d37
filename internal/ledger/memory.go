// Package ledger provides ValidationStore implementations: an in-memory
// store for tests and single-process use, and a Redis-backed store with
// optimistic transactions for shared deployments.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// MemoryStore keeps balances, ledgers, results, and subjects in process
// memory. A single mutex covers the whole Commit so the balance check,
// debit, ledger append, result save, and subject update are atomic: a
// concurrent commit either sees the balance before this one or after it,
// never a partial state.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
	ledgers  map[string][]domain.CostLedgerEntry
	results  map[string]*domain.ConsensusResult
	subjects map[string]ports.Subject
}

var _ ports.ValidationStore = (*MemoryStore)(nil)
var _ ports.SubjectStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[string]int64),
		ledgers:  make(map[string][]domain.CostLedgerEntry),
		results:  make(map[string]*domain.ConsensusResult),
		subjects: make(map[string]ports.Subject),
	}
}

// PutSubject registers a subject record, typically in test setup.
func (s *MemoryStore) PutSubject(sub ports.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[sub.ID] = sub
}

// FetchForOwner implements ports.SubjectStore. A missing subject and a
// subject owned by someone else are indistinguishable to the caller.
func (s *MemoryStore) FetchForOwner(_ context.Context, subjectID, ownerID string) (ports.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subjects[subjectID]
	if !ok || sub.OwnerID != ownerID {
		return ports.Subject{}, domain.ErrSubjectNotFound
	}
	return sub, nil
}

// Balance implements ports.ValidationStore.
func (s *MemoryStore) Balance(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[ownerID], nil
}

// Credit implements ports.ValidationStore.
func (s *MemoryStore) Credit(_ context.Context, ownerID string, amount int64, reason string) (domain.CostLedgerEntry, error) {
	if amount <= 0 {
		return domain.CostLedgerEntry{}, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newBalance := s.balances[ownerID] + amount
	entry := domain.CostLedgerEntry{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Amount:       amount,
		BalanceAfter: newBalance,
		Reason:       reason,
		Timestamp:    time.Now().UTC(),
	}
	s.balances[ownerID] = newBalance
	s.ledgers[ownerID] = append(s.ledgers[ownerID], entry)
	return entry, nil
}

// Commit implements ports.ValidationStore. The balance re-check happens
// under the same lock as the writes, so two concurrent commits against
// one balance serialize and a double spend is impossible.
func (s *MemoryStore) Commit(_ context.Context, req ports.CommitRequest) (ports.CommitReceipt, error) {
	if req.Cost <= 0 {
		return ports.CommitReceipt{}, fmt.Errorf("commit cost must be positive, got %d", req.Cost)
	}
	if req.Result == nil {
		return ports.CommitReceipt{}, fmt.Errorf("commit requires a result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[req.OwnerID]
	if balance < req.Cost {
		return ports.CommitReceipt{}, domain.ErrInsufficientBalance
	}

	newBalance := balance - req.Cost
	entry := domain.CostLedgerEntry{
		ID:           uuid.NewString(),
		OwnerID:      req.OwnerID,
		Amount:       -req.Cost,
		BalanceAfter: newBalance,
		Reason:       req.Reason,
		RequestID:    req.RequestID,
		Timestamp:    time.Now().UTC(),
	}

	s.balances[req.OwnerID] = newBalance
	s.ledgers[req.OwnerID] = append(s.ledgers[req.OwnerID], entry)
	s.results[req.SubjectID] = req.Result
	if sub, ok := s.subjects[req.SubjectID]; ok {
		sub.Status = "validated"
		s.subjects[req.SubjectID] = sub
	}

	return ports.CommitReceipt{Entry: entry, NewBalance: newBalance}, nil
}

// Entries implements ports.ValidationStore.
func (s *MemoryStore) Entries(_ context.Context, ownerID string) ([]domain.CostLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.ledgers[ownerID]
	out := make([]domain.CostLedgerEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Result implements ports.ValidationStore.
func (s *MemoryStore) Result(_ context.Context, subjectID string) (*domain.ConsensusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.results[subjectID]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	return res, nil
}
