// Package postgres is the durable store adapter. Row exclusivity is
// SELECT ... FOR UPDATE inside one database transaction, with a
// lock_timeout bounding the wait so contention surfaces as ErrBusy
// instead of an indefinite block.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/store"
)

const (
	// SQLSTATE codes the adapter translates into domain errors.
	codeLockNotAvailable = "55P03" // lock_timeout expired
	codeUniqueViolation  = "23505"
)

// Store is a Postgres-backed implementation of store.Store.
type Store struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	lockWait time.Duration
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string, lockWait time.Duration, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{pool: pool, logger: logger, lockWait: lockWait}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies pending schema migrations. sourceURL is a
// golang-migrate source like "file://migrations"; dsn must be a
// postgres:// URL.
func Migrate(sourceURL, dsn string, logger *zap.Logger) error {
	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	logger.Info("schema migrations applied")
	return nil
}

// CreateAccount inserts the account and its initial deposit record in
// one transaction.
func (s *Store) CreateAccount(ctx context.Context, account model.Account, initial model.TransactionRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning create account: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, owner_id, balance, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.OwnerID, account.Balance, account.Status, account.CreatedAt)
	if err != nil {
		if isPgCode(err, codeUniqueViolation) {
			return fmt.Errorf("create %s: %w", account.ID, model.ErrAccountExists)
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	if err := insertRecord(ctx, tx, initial); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetAccount reads committed account state without locking the row.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		SELECT id, owner_id, balance, status, created_at
		FROM accounts WHERE id = $1`, id), id)
}

// SetStatus changes the account status under its row lock.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("updating status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set status %s: %w", id, model.ErrAccountNotFound)
	}
	return nil
}

// ListTransactions serves history queries off the (account_id,
// created_at DESC) index; a plain read, never blocked by row locks.
func (s *Store) ListTransactions(ctx context.Context, id uuid.UUID, f store.Filter) ([]model.TransactionRecord, error) {
	query := `
		SELECT id, account_id, type, amount, counterparty, description, balance_after, created_at
		FROM transactions
		WHERE account_id = $1`
	args := []any{id}
	if f.Type != "" {
		query += ` AND type = $2`
		args = append(args, f.Type)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	var limit any // LIMIT NULL means no limit
	if f.Limit > 0 {
		limit = f.Limit
	}
	args = append(args, limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for %s: %w", id, err)
	}
	defer rows.Close()

	var out []model.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Accounts returns every account, for audit sweeps.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, balance, status, created_at FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var acct model.Account
		if err := rows.Scan(&acct.ID, &acct.OwnerID, &acct.Balance, &acct.Status, &acct.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

// Begin opens a database transaction with the lock wait bound applied.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning unit: %w", err)
	}
	if s.lockWait > 0 {
		_, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockWait.Milliseconds()))
		if err != nil {
			tx.Rollback(ctx)
			return nil, fmt.Errorf("setting lock_timeout: %w", err)
		}
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockAccount(ctx context.Context, id uuid.UUID) (model.Account, error) {
	acct, err := scanAccount(t.tx.QueryRow(ctx, `
		SELECT id, owner_id, balance, status, created_at
		FROM accounts WHERE id = $1 FOR UPDATE`, id), id)
	if err != nil {
		if isPgCode(err, codeLockNotAvailable) {
			return model.Account{}, fmt.Errorf("lock %s: %w", id, model.ErrBusy)
		}
		return model.Account{}, err
	}
	return acct, nil
}

func (t *pgTx) UpdateBalance(id uuid.UUID, balance decimal.Decimal) error {
	// The enclosing operation has already taken the row lock; the
	// write rides the same transaction.
	tag, err := t.tx.Exec(context.Background(), `
		UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("updating balance for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update balance %s: %w", id, model.ErrAccountNotFound)
	}
	return nil
}

func (t *pgTx) AppendRecord(rec model.TransactionRecord) error {
	return insertRecord(context.Background(), t.tx, rec)
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func insertRecord(ctx context.Context, tx pgx.Tx, rec model.TransactionRecord) error {
	var counterparty *uuid.UUID
	if rec.Counterparty != uuid.Nil {
		counterparty = &rec.Counterparty
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, type, amount, counterparty, description, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.AccountID, rec.Type, rec.Amount, counterparty, rec.Description, rec.BalanceAfter, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting transaction record: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row, id uuid.UUID) (model.Account, error) {
	var acct model.Account
	err := row.Scan(&acct.ID, &acct.OwnerID, &acct.Balance, &acct.Status, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", id, model.ErrAccountNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("scanning account %s: %w", id, err)
	}
	return acct, nil
}

func scanRecord(rows pgx.Rows) (model.TransactionRecord, error) {
	var rec model.TransactionRecord
	var counterparty *uuid.UUID
	err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Type, &rec.Amount,
		&counterparty, &rec.Description, &rec.BalanceAfter, &rec.CreatedAt)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("scanning transaction record: %w", err)
	}
	if counterparty != nil {
		rec.Counterparty = *counterparty
	}
	return rec, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ store.Store = (*Store)(nil)
