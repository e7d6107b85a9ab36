package postgres

import (
	"context"
	"errors"
	"fmt"

	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ensure implementation satisfies interface at compile time
var _ repository.AccountRepository = (*AccountRepositoryImpl)(nil)

// AccountRepositoryImpl is the PostgreSQL implementation of AccountRepository
type AccountRepositoryImpl struct {
	*TransactionManager
}

func NewAccountRepository(pool *pgxpool.Pool) repository.AccountRepository {
	return &AccountRepositoryImpl{
		TransactionManager: NewTransactionManager(pool),
	}
}

const accountColumns = `id, full_name, email, role, balance, blocked, login_attempts, version, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	acc := &model.Account{}
	err := row.Scan(&acc.ID, &acc.FullName, &acc.Email, &acc.Role, &acc.Balance,
		&acc.Blocked, &acc.LoginAttempts, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (r *AccountRepositoryImpl) GetAccount(ctx context.Context, accountID int64, tx ...pgx.Tx) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	executor := r.getExecutor(tx...)
	acc, err := scanAccount(executor.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// GetAccountForUpdate retrieves an account with a row-level lock
func (r *AccountRepositoryImpl) GetAccountForUpdate(ctx context.Context, accountID int64, tx pgx.Tx) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	acc, err := scanAccount(tx.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account for update: %w", err)
	}
	return acc, nil
}

func (r *AccountRepositoryImpl) GetBalance(ctx context.Context, accountID int64, tx ...pgx.Tx) (decimal.Decimal, error) {
	query := `SELECT balance FROM accounts WHERE id = $1`

	var balance decimal.Decimal
	executor := r.getExecutor(tx...)
	err := executor.QueryRow(ctx, query, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, model.ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *AccountRepositoryImpl) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal, tx pgx.Tx) error {
	query := `
        UPDATE accounts
        SET balance = $1, version = version + 1, updated_at = NOW()
        WHERE id = $2`

	commandTag, err := tx.Exec(ctx, query, balance, accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		// CONSTRAINT balance_non_negative CHECK (balance >= 0)
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return model.ErrInsufficientFunds
		}
		return fmt.Errorf("failed to update balance: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// InsertLedgerEntry appends one immutable ledger entry
func (r *AccountRepositoryImpl) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry, tx pgx.Tx) error {
	query := `
        INSERT INTO ledger_entries (account_id, amount, direction, reason, reference, balance_after)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	err := tx.QueryRow(ctx, query, entry.AccountID, entry.Amount, entry.Direction,
		entry.Reason, entry.Reference, entry.BalanceAfter).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.ErrDuplicateReference
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func (r *AccountRepositoryImpl) ListLedgerEntries(ctx context.Context, accountID int64, limit, offset int) ([]*model.LedgerEntry, error) {
	query := `
        SELECT id, account_id, amount, direction, reason, reference, balance_after, created_at
        FROM ledger_entries WHERE account_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		entry := &model.LedgerEntry{}
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Amount, &entry.Direction,
			&entry.Reason, &entry.Reference, &entry.BalanceAfter, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SumLedgerEntries returns the signed sum of all entries for an account
func (r *AccountRepositoryImpl) SumLedgerEntries(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
        FROM ledger_entries WHERE account_id = $1`

	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return sum, nil
}
