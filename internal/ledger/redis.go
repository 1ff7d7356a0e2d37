package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Redis key layout. Balances are plain integer strings so WATCH guards
// exactly the value the commit re-checks; ledgers are append-only lists.
const (
	keyBalance = "tribunal:balance:"
	keyLedger  = "tribunal:ledger:"
	keyResult  = "tribunal:result:"
	keySubject = "tribunal:subject:"
)

// RedisStore implements ports.ValidationStore and ports.SubjectStore on
// Redis. Commit uses an optimistic WATCH/MULTI transaction keyed on the
// owner's balance: when a concurrent commit changes the balance between
// the re-check and EXEC, the transaction aborts with no writes and the
// caller gets domain.ErrBalanceConflict.
type RedisStore struct {
	client *redis.Client
}

var _ ports.ValidationStore = (*RedisStore)(nil)
var _ ports.SubjectStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client must not be nil")
	}
	return &RedisStore{client: client}, nil
}

// PutSubject stores a subject record.
func (s *RedisStore) PutSubject(ctx context.Context, sub ports.Subject) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subject: %w", err)
	}
	return s.client.Set(ctx, keySubject+sub.ID, raw, 0).Err()
}

// FetchForOwner implements ports.SubjectStore.
func (s *RedisStore) FetchForOwner(ctx context.Context, subjectID, ownerID string) (ports.Subject, error) {
	raw, err := s.client.Get(ctx, keySubject+subjectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.Subject{}, domain.ErrSubjectNotFound
	}
	if err != nil {
		return ports.Subject{}, fmt.Errorf("fetch subject: %w", err)
	}

	var sub ports.Subject
	if err := json.Unmarshal(raw, &sub); err != nil {
		return ports.Subject{}, fmt.Errorf("decode subject: %w", err)
	}
	if sub.OwnerID != ownerID {
		// Same error as not-found: foreign subjects must not be observable.
		return ports.Subject{}, domain.ErrSubjectNotFound
	}
	return sub, nil
}

// Balance implements ports.ValidationStore.
func (s *RedisStore) Balance(ctx context.Context, ownerID string) (int64, error) {
	val, err := s.client.Get(ctx, keyBalance+ownerID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	return val, nil
}

// Credit implements ports.ValidationStore. Credits go through the same
// WATCH transaction as debits so the running-balance invariant holds for
// every entry, not just spends.
func (s *RedisStore) Credit(ctx context.Context, ownerID string, amount int64, reason string) (domain.CostLedgerEntry, error) {
	if amount <= 0 {
		return domain.CostLedgerEntry{}, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	balanceKey := keyBalance + ownerID
	var entry domain.CostLedgerEntry

	txn := func(tx *redis.Tx) error {
		balance, err := readBalance(ctx, tx, balanceKey)
		if err != nil {
			return err
		}

		entry = domain.CostLedgerEntry{
			ID:           uuid.NewString(),
			OwnerID:      ownerID,
			Amount:       amount,
			BalanceAfter: balance + amount,
			Reason:       reason,
			Timestamp:    time.Now().UTC(),
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal ledger entry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, balanceKey, strconv.FormatInt(entry.BalanceAfter, 10), 0)
			pipe.RPush(ctx, keyLedger+ownerID, raw)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txn, balanceKey); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return domain.CostLedgerEntry{}, domain.ErrBalanceConflict
		}
		return domain.CostLedgerEntry{}, err
	}
	return entry, nil
}

// Commit implements ports.ValidationStore. The balance and subject keys
// are WATCHed and the balance re-checked inside the transaction; EXEC only
// applies the debit, ledger append, result save, and subject update if no
// other writer touched either key in between.
func (s *RedisStore) Commit(ctx context.Context, req ports.CommitRequest) (ports.CommitReceipt, error) {
	if req.Cost <= 0 {
		return ports.CommitReceipt{}, fmt.Errorf("commit cost must be positive, got %d", req.Cost)
	}
	if req.Result == nil {
		return ports.CommitReceipt{}, fmt.Errorf("commit requires a result")
	}

	balanceKey := keyBalance + req.OwnerID
	var receipt ports.CommitReceipt

	txn := func(tx *redis.Tx) error {
		balance, err := readBalance(ctx, tx, balanceKey)
		if err != nil {
			return err
		}
		if balance < req.Cost {
			return domain.ErrInsufficientBalance
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
		rawEntry, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal ledger entry: %w", err)
		}
		rawResult, err := json.Marshal(req.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}

		// Read the subject before MULTI; commands inside the pipeline are
		// queued, not executed, so reads there return nothing useful.
		var rawSubject []byte
		subRaw, err := tx.Get(ctx, keySubject+req.SubjectID).Bytes()
		if err == nil {
			var sub ports.Subject
			if err := json.Unmarshal(subRaw, &sub); err != nil {
				return fmt.Errorf("decode subject: %w", err)
			}
			sub.Status = "validated"
			if rawSubject, err = json.Marshal(sub); err != nil {
				return fmt.Errorf("marshal subject: %w", err)
			}
		} else if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("fetch subject: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, balanceKey, strconv.FormatInt(newBalance, 10), 0)
			pipe.RPush(ctx, keyLedger+req.OwnerID, rawEntry)
			pipe.Set(ctx, keyResult+req.SubjectID, rawResult, 0)
			if rawSubject != nil {
				pipe.Set(ctx, keySubject+req.SubjectID, rawSubject, 0)
			}
			return nil
		})
		if err != nil {
			return err
		}

		receipt = ports.CommitReceipt{Entry: entry, NewBalance: newBalance}
		return nil
	}

	// The subject key is watched too: Commit rewrites the subject with a
	// validated status, and a concurrent subject update must abort the
	// transaction rather than be overwritten by the stale copy read above.
	if err := s.client.Watch(ctx, txn, balanceKey, keySubject+req.SubjectID); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return ports.CommitReceipt{}, domain.ErrBalanceConflict
		}
		return ports.CommitReceipt{}, err
	}
	return receipt, nil
}

// Entries implements ports.ValidationStore.
func (s *RedisStore) Entries(ctx context.Context, ownerID string) ([]domain.CostLedgerEntry, error) {
	raws, err := s.client.LRange(ctx, keyLedger+ownerID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch ledger: %w", err)
	}

	entries := make([]domain.CostLedgerEntry, 0, len(raws))
	for _, raw := range raws {
		var entry domain.CostLedgerEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Result implements ports.ValidationStore.
func (s *RedisStore) Result(ctx context.Context, subjectID string) (*domain.ConsensusResult, error) {
	raw, err := s.client.Get(ctx, keyResult+subjectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}

	var res domain.ConsensusResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// readBalance reads an owner balance inside a transaction, treating a
// missing key as zero.
func readBalance(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	val, err := tx.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	return val, nil
}
