package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction record.
type TransactionType string

const (
	TypeDeposit     TransactionType = "deposit"
	TypeWithdrawal  TransactionType = "withdrawal"
	TypeTransferOut TransactionType = "transfer-out"
	TypeTransferIn  TransactionType = "transfer-in"
)

// Credits reports whether the type increases the account balance.
func (t TransactionType) Credits() bool {
	return t == TypeDeposit || t == TypeTransferIn
}

// Debits reports whether the type decreases the account balance.
func (t TransactionType) Debits() bool {
	return t == TypeWithdrawal || t == TypeTransferOut
}

// TransactionRecord is one row in the append-only transaction log.
// Records are immutable once committed: never updated, never deleted.
type TransactionRecord struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Type         TransactionType
	Amount       decimal.Decimal // always positive; sign comes from Type
	Counterparty uuid.UUID       // uuid.Nil unless Type is a transfer leg
	Description  string
	BalanceAfter decimal.Decimal
	CreatedAt    time.Time
}

// Signed returns the amount with the sign implied by the record type.
func (r TransactionRecord) Signed() decimal.Decimal {
	if r.Type.Debits() {
		return r.Amount.Neg()
	}
	return r.Amount
}
