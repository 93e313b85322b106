// Package store defines the contracts the ledger engine requires from
// its backing storage: an account store with exclusive per-row access
// and an append-only transaction log, both mutated inside one atomic
// unit.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teller-dev/teller/internal/model"
)

// Filter narrows a transaction history query. A zero Type matches all
// record types; a Type value the log has never written matches
// nothing. Limit <= 0 means no limit.
type Filter struct {
	Type   model.TransactionType
	Limit  int
	Offset int
}

// Store is the durable home of accounts and their transaction log.
// Only the ledger engine writes balances or records, and only through
// a Tx.
type Store interface {
	// CreateAccount inserts a new account together with its initial
	// deposit record as one atomic unit. Returns ErrAccountExists if
	// the ID is already taken.
	CreateAccount(ctx context.Context, account model.Account, initial model.TransactionRecord) error

	// GetAccount returns the committed state of an account without
	// locking it. Returns ErrAccountNotFound if absent.
	GetAccount(ctx context.Context, id uuid.UUID) (model.Account, error)

	// SetStatus changes an account's lifecycle status. Takes the
	// account's exclusive lock for the duration of the write.
	SetStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error

	// ListTransactions returns an account's records newest first.
	// Read-only: it never blocks on row locks and may observe a
	// recent-but-stale snapshot.
	ListTransactions(ctx context.Context, id uuid.UUID, f Filter) ([]model.TransactionRecord, error)

	// Accounts returns every account, for audit sweeps.
	Accounts(ctx context.Context) ([]model.Account, error)

	// Begin opens an atomic unit.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic unit: every write staged through it becomes
// visible at Commit or not at all. Locks acquired through it are held
// until Commit or Rollback, whichever comes first.
type Tx interface {
	// LockAccount acquires exclusive access to the account's row and
	// returns its current state. Blocks concurrent lockers of the
	// same ID (never plain GetAccount readers) until the unit
	// finishes; if the lock cannot be acquired within the store's
	// bounded wait it fails with ErrBusy.
	LockAccount(ctx context.Context, id uuid.UUID) (model.Account, error)

	// UpdateBalance stages a balance write for an account this unit
	// has locked.
	UpdateBalance(id uuid.UUID, balance decimal.Decimal) error

	// AppendRecord stages an immutable transaction log append.
	AppendRecord(rec model.TransactionRecord) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
