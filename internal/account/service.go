// Package account manages the account lifecycle: opening, suspension,
// reinstatement. Balances are never touched here except for the
// opening deposit, which the store writes in the same atomic unit as
// the account row itself.
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/money"
	"github.com/teller-dev/teller/internal/store"
)

// Service provides account lifecycle operations over a backing store.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates an account Service. A nil logger disables logging.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// OpenParams holds parameters for opening an account.
type OpenParams struct {
	OwnerID        string
	InitialDeposit decimal.Decimal
	Description    string // defaults to "initial deposit"
}

// Open creates an account with a random ID and writes its initial
// deposit record in the same atomic unit. The initial deposit must be
// a valid positive amount: every account's history starts with the
// record that funded it.
func (s *Service) Open(ctx context.Context, p OpenParams) (model.Account, error) {
	if p.OwnerID == "" {
		return model.Account{}, fmt.Errorf("open account: owner is required")
	}
	if !money.ValidAmount(p.InitialDeposit) {
		return model.Account{}, fmt.Errorf("open account with deposit %s: %w", p.InitialDeposit, model.ErrInvalidAmount)
	}

	description := p.Description
	if description == "" {
		description = "initial deposit"
	}

	now := time.Now().UTC()
	acct := model.Account{
		ID:        uuid.New(),
		OwnerID:   p.OwnerID,
		Balance:   p.InitialDeposit,
		Status:    model.StatusActive,
		CreatedAt: now,
	}
	initial := model.TransactionRecord{
		ID:           uuid.New(),
		AccountID:    acct.ID,
		Type:         model.TypeDeposit,
		Amount:       p.InitialDeposit,
		Description:  description,
		BalanceAfter: p.InitialDeposit,
		CreatedAt:    now,
	}

	if err := s.store.CreateAccount(ctx, acct, initial); err != nil {
		return model.Account{}, fmt.Errorf("creating account: %w", err)
	}

	s.logger.Info("account opened",
		zap.String("account", acct.ID.String()),
		zap.String("owner", acct.OwnerID),
		zap.String("balance", money.Format(acct.Balance)))
	return acct, nil
}

// Get returns committed account state.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// Suspend blocks the account from originating or receiving funds.
// Accounts are never hard-deleted; this is the only terminal-adjacent
// transition.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SetStatus(ctx, id, model.StatusSuspended); err != nil {
		return err
	}
	s.logger.Info("account suspended", zap.String("account", id.String()))
	return nil
}

// Reinstate returns a suspended account to active.
func (s *Service) Reinstate(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SetStatus(ctx, id, model.StatusActive); err != nil {
		return err
	}
	s.logger.Info("account reinstated", zap.String("account", id.String()))
	return nil
}
