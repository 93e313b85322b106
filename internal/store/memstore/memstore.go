// Package memstore is an in-memory store adapter. It backs tests and
// the demo configuration; durability comes from the postgres adapter.
// Per-account exclusivity is a capacity-1 channel semaphore per
// account ID, acquired with a bounded wait.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/store"
)

// DefaultLockWait bounds how long a unit waits for a row lock before
// failing ErrBusy.
const DefaultLockWait = 250 * time.Millisecond

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]model.Account
	records  []model.TransactionRecord // committed appends, oldest first
	locks    map[uuid.UUID]chan struct{}
	lockWait time.Duration
}

// New creates an empty Store. lockWait <= 0 uses DefaultLockWait.
func New(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Store{
		accounts: make(map[uuid.UUID]model.Account),
		locks:    make(map[uuid.UUID]chan struct{}),
		lockWait: lockWait,
	}
}

// sem returns the capacity-1 semaphore guarding one account row.
func (s *Store) sem(id uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.locks[id]
	if !ok {
		c = make(chan struct{}, 1)
		s.locks[id] = c
	}
	return c
}

// acquire takes the row semaphore, waiting at most lockWait.
func (s *Store) acquire(ctx context.Context, id uuid.UUID) error {
	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()
	select {
	case s.sem(id) <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("lock %s: %w", id, model.ErrBusy)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release(id uuid.UUID) {
	<-s.sem(id)
}

// CreateAccount inserts the account and its initial deposit record
// together.
func (s *Store) CreateAccount(ctx context.Context, account model.Account, initial model.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("create %s: %w", account.ID, model.ErrAccountExists)
	}
	s.accounts[account.ID] = account
	s.records = append(s.records, initial)
	return nil
}

// GetAccount returns committed account state without locking the row.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("get %s: %w", id, model.ErrAccountNotFound)
	}
	return acct, nil
}

// SetStatus flips an account's status under its row lock.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error {
	if err := s.acquire(ctx, id); err != nil {
		return err
	}
	defer s.release(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("set status %s: %w", id, model.ErrAccountNotFound)
	}
	acct.Status = status
	s.accounts[id] = acct
	return nil
}

// ListTransactions returns an account's records newest first, with the
// filter applied before limit/offset.
func (s *Store) ListTransactions(ctx context.Context, id uuid.UUID, f store.Filter) ([]model.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TransactionRecord
	skipped := 0
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.AccountID != id {
			continue
		}
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Accounts returns a snapshot of every account.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	return out, nil
}

// Begin opens an atomic unit.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	return &memTx{
		store:    s,
		balances: make(map[uuid.UUID]decimal.Decimal),
	}, nil
}

// memTx stages writes in memory and applies them on Commit while the
// row semaphores are still held.
type memTx struct {
	store    *Store
	held     []uuid.UUID // acquisition order
	balances map[uuid.UUID]decimal.Decimal
	appends  []model.TransactionRecord
	finished bool
}

func (t *memTx) LockAccount(ctx context.Context, id uuid.UUID) (model.Account, error) {
	if err := t.store.acquire(ctx, id); err != nil {
		return model.Account{}, err
	}
	t.held = append(t.held, id)

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	acct, ok := t.store.accounts[id]
	if !ok {
		// Lock stays held until Rollback releases it.
		return model.Account{}, fmt.Errorf("lock %s: %w", id, model.ErrAccountNotFound)
	}
	return acct, nil
}

func (t *memTx) UpdateBalance(id uuid.UUID, balance decimal.Decimal) error {
	for _, held := range t.held {
		if held == id {
			t.balances[id] = balance
			return nil
		}
	}
	return fmt.Errorf("update balance %s: row not locked by this unit", id)
}

func (t *memTx) AppendRecord(rec model.TransactionRecord) error {
	t.appends = append(t.appends, rec)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.finished {
		return nil
	}
	t.store.mu.Lock()
	for id, balance := range t.balances {
		acct := t.store.accounts[id]
		acct.Balance = balance
		t.store.accounts[id] = acct
	}
	t.store.records = append(t.store.records, t.appends...)
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.finished {
		return nil
	}
	t.finish()
	return nil
}

func (t *memTx) finish() {
	for _, id := range t.held {
		t.store.release(id)
	}
	t.held = nil
	t.finished = true
}

var _ store.Store = (*Store)(nil)
