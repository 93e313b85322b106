// Package ledger implements the transaction engine: the only code
// that mutates account balances or appends to the transaction log.
// Every operation runs inside one atomic unit; either the balance
// write and its log record commit together or neither does.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/money"
	"github.com/teller-dev/teller/internal/store"
)

// History paging bounds applied when the caller's filter leaves them
// unset or asks for too much.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Engine orchestrates deposits, withdrawals, and transfers over a
// backing store.
type Engine struct {
	store  store.Store
	logger *zap.Logger
}

// NewEngine creates an Engine. A nil logger disables logging.
func NewEngine(st store.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: st, logger: logger}
}

// TransferResult is the success result of a Transfer.
type TransferResult struct {
	SenderBalance decimal.Decimal
	Recipient     uuid.UUID
}

// Deposit adds amount to the account and returns the new balance.
func (e *Engine) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if !money.ValidAmount(amount) {
		return decimal.Zero, fmt.Errorf("deposit %s: %w", amount, model.ErrInvalidAmount)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return decimal.Zero, e.storageErr("deposit", err)
	}
	defer tx.Rollback(ctx)

	acct, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, e.operr("deposit", err)
	}
	if !acct.Active() {
		return decimal.Zero, fmt.Errorf("deposit to %s: %w", accountID, model.ErrAccountInactive)
	}

	newBalance := acct.Balance.Add(amount)
	if err := tx.UpdateBalance(accountID, newBalance); err != nil {
		return decimal.Zero, e.storageErr("deposit", err)
	}
	if err := tx.AppendRecord(model.TransactionRecord{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         model.TypeDeposit,
		Amount:       amount,
		Description:  description,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return decimal.Zero, e.storageErr("deposit", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, e.storageErr("deposit", err)
	}

	e.logger.Info("deposit committed",
		zap.String("account", accountID.String()),
		zap.String("amount", money.Format(amount)),
		zap.String("balance", money.Format(newBalance)))
	return newBalance, nil
}

// Withdraw removes amount from the account and returns the new
// balance. The funds check happens strictly after the row lock is
// held, so two racing withdrawals can never both pass it on the same
// funds.
func (e *Engine) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if !money.ValidAmount(amount) {
		return decimal.Zero, fmt.Errorf("withdraw %s: %w", amount, model.ErrInvalidAmount)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return decimal.Zero, e.storageErr("withdraw", err)
	}
	defer tx.Rollback(ctx)

	acct, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, e.operr("withdraw", err)
	}
	if !acct.Active() {
		return decimal.Zero, fmt.Errorf("withdraw from %s: %w", accountID, model.ErrAccountInactive)
	}
	if acct.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("withdraw %s from %s: %w", money.Format(amount), accountID, model.ErrInsufficientFunds)
	}

	newBalance := acct.Balance.Sub(amount)
	if err := tx.UpdateBalance(accountID, newBalance); err != nil {
		return decimal.Zero, e.storageErr("withdraw", err)
	}
	if err := tx.AppendRecord(model.TransactionRecord{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         model.TypeWithdrawal,
		Amount:       amount,
		Description:  description,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return decimal.Zero, e.storageErr("withdraw", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, e.storageErr("withdraw", err)
	}

	e.logger.Info("withdrawal committed",
		zap.String("account", accountID.String()),
		zap.String("amount", money.Format(amount)),
		zap.String("balance", money.Format(newBalance)))
	return newBalance, nil
}

// Transfer moves amount from one account to another. The debit, the
// credit, and both log records commit as one unit; a partial transfer
// is never observable. Both row locks are taken in ascending ID order
// regardless of which side is the sender, so two transfers targeting
// each other's accounts cannot deadlock.
func (e *Engine) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (TransferResult, error) {
	if !money.ValidAmount(amount) {
		return TransferResult{}, fmt.Errorf("transfer %s: %w", amount, model.ErrInvalidAmount)
	}
	if fromID == toID {
		return TransferResult{}, fmt.Errorf("transfer from %s: %w", fromID, model.ErrSameAccount)
	}

	// Fail fast on a dead destination before taking any lock.
	recipient, err := e.store.GetAccount(ctx, toID)
	if err != nil {
		return TransferResult{}, e.operr("transfer", err)
	}
	if !recipient.Active() {
		return TransferResult{}, fmt.Errorf("transfer to %s: %w", toID, model.ErrRecipientInactive)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return TransferResult{}, e.storageErr("transfer", err)
	}
	defer tx.Rollback(ctx)

	first, second := fromID, toID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	locked := make(map[uuid.UUID]model.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		acct, err := tx.LockAccount(ctx, id)
		if err != nil {
			return TransferResult{}, e.operr("transfer", err)
		}
		locked[id] = acct
	}
	sender, recipient := locked[fromID], locked[toID]

	// Re-check status under the lock: the pre-lock read was unlocked
	// and may be stale.
	if !sender.Active() {
		return TransferResult{}, fmt.Errorf("transfer from %s: %w", fromID, model.ErrAccountInactive)
	}
	if !recipient.Active() {
		return TransferResult{}, fmt.Errorf("transfer to %s: %w", toID, model.ErrRecipientInactive)
	}
	if sender.Balance.LessThan(amount) {
		return TransferResult{}, fmt.Errorf("transfer %s from %s: %w", money.Format(amount), fromID, model.ErrInsufficientFunds)
	}

	newSender := sender.Balance.Sub(amount)
	newRecipient := recipient.Balance.Add(amount)
	if err := tx.UpdateBalance(fromID, newSender); err != nil {
		return TransferResult{}, e.storageErr("transfer", err)
	}
	if err := tx.UpdateBalance(toID, newRecipient); err != nil {
		return TransferResult{}, e.storageErr("transfer", err)
	}

	now := time.Now().UTC()
	out := model.TransactionRecord{
		ID:           uuid.New(),
		AccountID:    fromID,
		Type:         model.TypeTransferOut,
		Amount:       amount,
		Counterparty: toID,
		Description:  description,
		BalanceAfter: newSender,
		CreatedAt:    now,
	}
	in := model.TransactionRecord{
		ID:           uuid.New(),
		AccountID:    toID,
		Type:         model.TypeTransferIn,
		Amount:       amount,
		Counterparty: fromID,
		Description:  description,
		BalanceAfter: newRecipient,
		CreatedAt:    now,
	}
	if err := tx.AppendRecord(out); err != nil {
		return TransferResult{}, e.storageErr("transfer", err)
	}
	if err := tx.AppendRecord(in); err != nil {
		return TransferResult{}, e.storageErr("transfer", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, e.storageErr("transfer", err)
	}

	e.logger.Info("transfer committed",
		zap.String("from", fromID.String()),
		zap.String("to", toID.String()),
		zap.String("amount", money.Format(amount)),
		zap.String("sender_balance", money.Format(newSender)))
	return TransferResult{SenderBalance: newSender, Recipient: toID}, nil
}

// GetBalance returns the committed balance of an account. Read-only,
// never blocks on row locks.
func (e *Engine) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, e.operr("get balance", err)
	}
	return acct.Balance, nil
}

// ListTransactions returns an account's history, newest first. A
// filter Type the log has never written matches nothing and yields an
// empty result, not an error. Limit is clamped to MaxHistoryLimit and
// defaults to DefaultHistoryLimit when unset.
func (e *Engine) ListTransactions(ctx context.Context, accountID uuid.UUID, f store.Filter) ([]model.TransactionRecord, error) {
	if _, err := e.store.GetAccount(ctx, accountID); err != nil {
		return nil, e.operr("list transactions", err)
	}
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	recs, err := e.store.ListTransactions(ctx, accountID, f)
	if err != nil {
		return nil, e.storageErr("list transactions", err)
	}
	return recs, nil
}

// operr passes domain failures through unchanged and downgrades
// anything else to a storage failure.
func (e *Engine) operr(op string, err error) error {
	for _, sentinel := range []error{
		model.ErrAccountNotFound,
		model.ErrAccountInactive,
		model.ErrRecipientInactive,
		model.ErrInsufficientFunds,
		model.ErrBusy,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return e.storageErr(op, err)
}

// storageErr logs the underlying error and returns the opaque storage
// sentinel; driver error text never reaches the caller.
func (e *Engine) storageErr(op string, err error) error {
	e.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, model.ErrStorage)
}
