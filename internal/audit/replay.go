// Package audit verifies the ledger replay invariant: for every
// account, replaying its transaction records in order from zero must
// reproduce the stored balance exactly.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/money"
	"github.com/teller-dev/teller/internal/store"
)

// Violation describes a single replay invariant breach.
type Violation struct {
	Account     uuid.UUID
	RecordID    uuid.UUID // zero when the breach is account-level
	Description string
}

func (v Violation) Error() string {
	return fmt.Sprintf("account %s: %s", v.Account, v.Description)
}

// ReplayAccount replays records (given newest first, as the store
// returns them) from a zero balance and checks each record against
// its stated balance-after. Returns the final balance and any
// violations found.
func ReplayAccount(accountID uuid.UUID, records []model.TransactionRecord) (decimal.Decimal, []Violation) {
	var errs []Violation
	balance := decimal.Zero

	// Oldest first.
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.AccountID != accountID {
			errs = append(errs, Violation{
				Account:     accountID,
				RecordID:    rec.ID,
				Description: fmt.Sprintf("record belongs to account %s", rec.AccountID),
			})
			continue
		}
		if !money.ValidAmount(rec.Amount) {
			errs = append(errs, Violation{
				Account:     accountID,
				RecordID:    rec.ID,
				Description: fmt.Sprintf("amount %s is not a valid ledger amount", rec.Amount),
			})
		}
		balance = balance.Add(rec.Signed())
		if balance.IsNegative() {
			errs = append(errs, Violation{
				Account:     accountID,
				RecordID:    rec.ID,
				Description: fmt.Sprintf("replay balance went negative (%s)", money.Format(balance)),
			})
		}
		if !balance.Equal(rec.BalanceAfter) {
			errs = append(errs, Violation{
				Account:     accountID,
				RecordID:    rec.ID,
				Description: fmt.Sprintf("balance-after %s, replay says %s", money.Format(rec.BalanceAfter), money.Format(balance)),
			})
		}
	}
	return balance, errs
}

// Verify replays every account in the store and compares the replayed
// balance with the stored one.
func Verify(ctx context.Context, st store.Store) ([]Violation, error) {
	accounts, err := st.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	var errs []Violation
	for _, acct := range accounts {
		records, err := st.ListTransactions(ctx, acct.ID, store.Filter{})
		if err != nil {
			return nil, fmt.Errorf("listing transactions for %s: %w", acct.ID, err)
		}
		replayed, accountErrs := ReplayAccount(acct.ID, records)
		errs = append(errs, accountErrs...)
		if !replayed.Equal(acct.Balance) {
			errs = append(errs, Violation{
				Account:     acct.ID,
				Description: fmt.Sprintf("stored balance %s, replay says %s", money.Format(acct.Balance), money.Format(replayed)),
			})
		}
	}
	return errs, nil
}
