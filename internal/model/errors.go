package model

import "errors"

// Stable failure kinds surfaced by ledger operations. Callers match
// with errors.Is; the wrapped text adds context but the sentinel is
// the contract.
var (
	// ErrInvalidAmount rejects non-positive amounts and amounts with
	// more fractional digits than the ledger's fixed-point scale.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates an account with the same ID already exists.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountInactive rejects operations on a suspended account.
	ErrAccountInactive = errors.New("account is not active")

	// ErrRecipientInactive rejects transfers whose destination cannot
	// receive funds.
	ErrRecipientInactive = errors.New("recipient account is not active")

	// ErrInsufficientFunds indicates the balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount rejects transfers from an account to itself.
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrBusy indicates a lock on the account could not be acquired
	// within the bounded wait. Safe to retry: nothing was committed.
	ErrBusy = errors.New("account is busy")

	// ErrStorage indicates an underlying durability failure. The
	// driver's error text is logged, never returned to callers.
	ErrStorage = errors.New("storage failure")
)

// Retryable reports whether the caller may safely retry the whole
// operation without changing the request.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy)
}
