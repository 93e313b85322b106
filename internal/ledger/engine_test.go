package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/store"
	"github.com/teller-dev/teller/internal/store/memstore"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seed(t *testing.T, s *memstore.Store, balance string) uuid.UUID {
	t.Helper()
	acct := model.Account{
		ID:        uuid.New(),
		OwnerID:   "owner",
		Balance:   dec(balance),
		Status:    model.StatusActive,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateAccount(context.Background(), acct, model.TransactionRecord{
		ID:           uuid.New(),
		AccountID:    acct.ID,
		Type:         model.TypeDeposit,
		Amount:       acct.Balance,
		Description:  "initial deposit",
		BalanceAfter: acct.Balance,
		CreatedAt:    acct.CreatedAt,
	}))
	return acct.ID
}

func TestDeposit(t *testing.T) {
	s := memstore.New(0)
	e := NewEngine(s, nil)
	ctx := context.Background()
	id := seed(t, s, "100.00")

	balance, err := e.Deposit(ctx, id, dec("25.50"), "payday")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("125.50")))

	recs, err := e.ListTransactions(ctx, id, store.Filter{Type: model.TypeDeposit})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "payday", recs[0].Description)
	assert.True(t, recs[0].BalanceAfter.Equal(dec("125.50")))
}

func TestDeposit_Validation(t *testing.T) {
	s := memstore.New(0)
	e := NewEngine(s, nil)
	ctx := context.Background()
	id := seed(t, s, "100.00")

	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-10.00"},
		{"sub-cent precision", "1.005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Deposit(ctx, id, dec(tt.amount), "")
			assert.ErrorIs(t, err, model.ErrInvalidAmount)
		})
	}

	// Validation failures never touch storage.
	recs, err := e.ListTransactions(ctx, id, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestDeposit_AccountNotFound(t *testing.T) {
	e := NewEngine(memstore.New(0), nil)
	_, err := e.Deposit(context.Background(), uuid.New(), dec("10.00"), "")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestDeposit_SuspendedAccount(t *testing.T) {
	s := memstore.New(0)
	e := NewEngine(s, nil)
	ctx := context.Background()
	id := seed(t, s, "100.00")
	require.NoError(t, s.SetStatus(ctx, id, model.StatusSuspended))

	_, err := e.Deposit(ctx, id, dec("10.00"), "")
	assert.ErrorIs(t, err, model.ErrAccountInactive)
}

func TestWithdraw(t *testing.T) {
	s := memstore.New(0)
	e := NewEngine(s, nil)
	ctx := context.Background()
	id := seed(t, s, "100.00")

	balance, err := e.Withdraw(ctx, id, dec("40.00"), "rent")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("60.00")))

	_, err = e.Withdraw(ctx, id, dec("60.01"), "")
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	// A failed withdrawal leaves the balance untouched.
	got, err := e.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("60.00")))
}

func TestTransfer_WorkedExample(t *testing.T) {
	s := memstore.New(0)
	e := NewEngine(s, nil)
	ctx := context.Background()
	a := seed(t, s, "5000.00")
	b := seed(t, s, "10000.00")

	res, err := e.Transfer(ctx, a, b, dec("1500.00"), "invoice 42")
	require.NoError(t, err)
	assert.True(t, res.SenderBalance.Equal(dec("3500.00")))
	assert.Equal(t, b, res.Recipient)

	bBalance, err := e.GetBalance(ctx, b)
	require.NoError(t, err)
	assert.True(t, bBalance.Equal(dec("11500.00")))

	outRecs, err := e.ListTransactions(ctx, a, store.Filter{Type: model.TypeTransferOut})
	require.NoError(t, err)
	require.Len(t, outRecs, 1)
	assert.Equal(t, b, outRecs[0].Counterparty)
	assert.True(t, outRecs[0].BalanceAfter.Equal(dec("3500.00")))

	inRecs, err := e.ListTransactions(ctx, b, store.Filter{Type: model.TypeTransferIn})
	require.NoError(t, err)
	require.Len(t, inRecs, 1)
	assert.Equal(t, a, inRecs[0].Counterparty)
	assert.True(t, inRecs[0].BalanceAfter.Equal(dec("11500.00")))

	// Over-withdrawal fails and leaves A at 3500.00.
	_, err = e.Withdraw(ctx, a, dec("4000.00"), "")
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	aBalance, err := e.GetBalance(ctx, a)
	require.NoError(t, err)
	assert.True(t, aBalance.Equal(dec("3500.00")))
}

func TestTransfer_Validation(t *testing.T) {
	s := memstore.New(0)
	e := NewEngine(s, nil)
	ctx := context.Background()
	a := seed(t, s, "100.00")
	b := seed(t, s, "100.00")

	_, err := e.Transfer(ctx, a, a, dec("10.00"), "")
	assert.ErrorIs(t, err, model.ErrSameAccount)

	_, err = e.Transfer(ctx, a, b, dec("-1.00"), "")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = e.Transfer(ctx, a, uuid.New(), dec("10.00"), "")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	require.NoError(t, s.SetStatus(ctx, b, model.StatusSuspended))
	_, err = e.Transfer(ctx, a, b, dec("10.00"), "")
	assert.ErrorIs(t, err, model.ErrRecipientInactive)

	require.NoError(t, s.SetStatus(ctx, b, model.StatusActive))
	require.NoError(t, s.SetStatus(ctx, a, model.StatusSuspended))
	_, err = e.Transfer(ctx, a, b, dec("10.00"), "")
	assert.ErrorIs(t, err, model.ErrAccountInactive)
}

func TestDeposit_Busy(t *testing.T) {
	s := memstore.New(30 * time.Millisecond)
	e := NewEngine(s, nil)
	ctx := context.Background()
	id := seed(t, s, "100.00")

	// Hold the row lock from an outside unit so the deposit times out.
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.LockAccount(ctx, id)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = e.Deposit(ctx, id, dec("10.00"), "")
	assert.ErrorIs(t, err, model.ErrBusy)
	assert.True(t, model.Retryable(err))
}

// Concurrency safety: of N racing withdrawals of amount a against
// balance B, exactly floor(B/a) succeed.
func TestWithdraw_ConcurrentExactlyFloor(t *testing.T) {
	s := memstore.New(5 * time.Second)
	e := NewEngine(s, nil)
	ctx := context.Background()
	id := seed(t, s, "55.00") // floor(55/10) = 5

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Withdraw(ctx, id, dec("10.00"), "race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, model.ErrInsufficientFunds):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, n-5, insufficient)

	balance, err := e.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("5.00")))
	assert.False(t, balance.IsNegative())
}

// Deadlock freedom: transfers X->Y and Y->X racing each other both
// complete.
func TestTransfer_OpposingTransfersComplete(t *testing.T) {
	s := memstore.New(5 * time.Second)
	e := NewEngine(s, nil)
	ctx := context.Background()
	x := seed(t, s, "1000.00")
	y := seed(t, s, "1000.00")

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.Transfer(ctx, x, y, dec("1.00"), "")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := e.Transfer(ctx, y, x, dec("1.00"), "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Opposing transfers net to zero.
	xBalance, err := e.GetBalance(ctx, x)
	require.NoError(t, err)
	assert.True(t, xBalance.Equal(dec("1000.00")))
	yBalance, err := e.GetBalance(ctx, y)
	require.NoError(t, err)
	assert.True(t, yBalance.Equal(dec("1000.00")))
}

// Conservation: total balance across a closed set of accounts moves
// only by deposits and withdrawals; transfers net to zero.
func TestConservationUnderConcurrency(t *testing.T) {
	s := memstore.New(5 * time.Second)
	e := NewEngine(s, nil)
	ctx := context.Background()
	a := seed(t, s, "1000.00")
	b := seed(t, s, "1000.00")
	c := seed(t, s, "1000.00")

	const workers = 30
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Deposit(ctx, a, dec("5.00"), ""); err != nil {
				t.Errorf("deposit: %v", err)
			}
			if _, err := e.Withdraw(ctx, b, dec("3.00"), ""); err != nil {
				t.Errorf("withdraw: %v", err)
			}
			if _, err := e.Transfer(ctx, a, c, dec("2.00"), ""); err != nil {
				t.Errorf("transfer a->c: %v", err)
			}
			if _, err := e.Transfer(ctx, c, b, dec("1.00"), ""); err != nil {
				t.Errorf("transfer c->b: %v", err)
			}
		}()
	}
	wg.Wait()

	total := decimal.Zero
	for _, id := range []uuid.UUID{a, b, c} {
		balance, err := e.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.False(t, balance.IsNegative())
		total = total.Add(balance)
	}
	// 3000 + 30*5 - 30*3 = 3060.
	assert.True(t, total.Equal(dec("3060.00")), "total = %s", total)
}

// faultStore injects a failure into the unit after the debit has been
// staged, to prove the whole transfer aborts.
type faultStore struct {
	store.Store
	failOn model.TransactionType
}

func (f *faultStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := f.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultTx{Tx: tx, failOn: f.failOn}, nil
}

type faultTx struct {
	store.Tx
	failOn model.TransactionType
}

func (f *faultTx) AppendRecord(rec model.TransactionRecord) error {
	if rec.Type == f.failOn {
		return errors.New("disk gone")
	}
	return f.Tx.AppendRecord(rec)
}

func TestTransfer_MidUnitFailureAbortsBothSides(t *testing.T) {
	s := memstore.New(0)
	ctx := context.Background()
	a := seed(t, s, "500.00")
	b := seed(t, s, "500.00")

	// The transfer-out record is staged first, so failing on
	// transfer-in simulates a crash after the debit write.
	e := NewEngine(&faultStore{Store: s, failOn: model.TypeTransferIn}, nil)

	_, err := e.Transfer(ctx, a, b, dec("100.00"), "")
	require.ErrorIs(t, err, model.ErrStorage)

	// Neither side moved.
	for _, id := range []uuid.UUID{a, b} {
		balance, err := s.GetAccount(ctx, id)
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec("500.00")))
		recs, err := s.ListTransactions(ctx, id, store.Filter{})
		require.NoError(t, err)
		assert.Len(t, recs, 1) // initial deposit only
	}
}

func TestListTransactions(t *testing.T) {
	s := memstore.New(0)
	e := NewEngine(s, nil)
	ctx := context.Background()
	id := seed(t, s, "100.00")

	_, err := e.Deposit(ctx, id, dec("10.00"), "first")
	require.NoError(t, err)
	_, err = e.Withdraw(ctx, id, dec("5.00"), "second")
	require.NoError(t, err)

	recs, err := e.ListTransactions(ctx, id, store.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, model.TypeWithdrawal, recs[0].Type) // newest first

	// Unknown account.
	_, err = e.ListTransactions(ctx, uuid.New(), store.Filter{})
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	// Unrecognized type filter matches nothing.
	none, err := e.ListTransactions(ctx, id, store.Filter{Type: "refund"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetBalance_NotFound(t *testing.T) {
	e := NewEngine(memstore.New(0), nil)
	_, err := e.GetBalance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}
