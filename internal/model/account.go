package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// Account is one row in the account store. Balance is only ever
// mutated inside a ledger engine operation; everything else reads it
// for display.
type Account struct {
	ID        uuid.UUID
	OwnerID   string // the identity that controls the account (1:1)
	Balance   decimal.Decimal
	Status    AccountStatus
	CreatedAt time.Time
}

// Active reports whether the account may originate or receive funds.
func (a Account) Active() bool {
	return a.Status == StatusActive
}
