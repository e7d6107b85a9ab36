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
)

// Ensure implementation satisfies interface at compile time
var _ repository.ContestRepository = (*ContestRepositoryImpl)(nil)

// ContestRepositoryImpl is the PostgreSQL implementation of ContestRepository
type ContestRepositoryImpl struct {
	*TransactionManager
}

func NewContestRepository(pool *pgxpool.Pool) repository.ContestRepository {
	return &ContestRepositoryImpl{
		TransactionManager: NewTransactionManager(pool),
	}
}

const contestColumns = `id, test_id, prize_pool, entry_fee, max_spots, status, prize_distributed, winner_id, created_at, updated_at`

func scanContest(row pgx.Row) (*model.Contest, error) {
	c := &model.Contest{}
	err := row.Scan(&c.ID, &c.TestID, &c.PrizePool, &c.EntryFee, &c.MaxSpots,
		&c.Status, &c.PrizeDistributed, &c.WinnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrContestNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ContestRepositoryImpl) InsertContest(ctx context.Context, c *model.Contest) error {
	query := `
        INSERT INTO contests (test_id, prize_pool, entry_fee, max_spots, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, prize_distributed, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, c.TestID, c.PrizePool, c.EntryFee, c.MaxSpots, c.Status).
		Scan(&c.ID, &c.PrizeDistributed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contest: %w", err)
	}
	return nil
}

func (r *ContestRepositoryImpl) GetContest(ctx context.Context, contestID int64, tx ...pgx.Tx) (*model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`

	executor := r.getExecutor(tx...)
	c, err := scanContest(executor.QueryRow(ctx, query, contestID))
	if err != nil {
		if errors.Is(err, model.ErrContestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return c, nil
}

// GetContestForUpdate retrieves a contest with an exclusive row lock
func (r *ContestRepositoryImpl) GetContestForUpdate(ctx context.Context, contestID int64, tx pgx.Tx) (*model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1 FOR UPDATE`

	c, err := scanContest(tx.QueryRow(ctx, query, contestID))
	if err != nil {
		if errors.Is(err, model.ErrContestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get contest for update: %w", err)
	}
	return c, nil
}

// GetContestForShare retrieves a contest with a shared row lock
func (r *ContestRepositoryImpl) GetContestForShare(ctx context.Context, contestID int64, tx pgx.Tx) (*model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1 FOR SHARE`

	c, err := scanContest(tx.QueryRow(ctx, query, contestID))
	if err != nil {
		if errors.Is(err, model.ErrContestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get contest for share: %w", err)
	}
	return c, nil
}

func (r *ContestRepositoryImpl) ListContests(ctx context.Context, status model.ContestStatus, limit, offset int) ([]*model.Contest, error) {
	query := `
        SELECT ` + contestColumns + ` FROM contests
        WHERE ($1 = '' OR status = $1)
        ORDER BY id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query contests: %w", err)
	}
	defer rows.Close()

	var contests []*model.Contest
	for rows.Next() {
		c := &model.Contest{}
		if err := rows.Scan(&c.ID, &c.TestID, &c.PrizePool, &c.EntryFee, &c.MaxSpots,
			&c.Status, &c.PrizeDistributed, &c.WinnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contest: %w", err)
		}
		contests = append(contests, c)
	}
	return contests, nil
}

// UpdateContestStatus moves status forward only from the expected value
func (r *ContestRepositoryImpl) UpdateContestStatus(ctx context.Context, contestID int64, from, to model.ContestStatus, tx pgx.Tx) (bool, error) {
	query := `
        UPDATE contests
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3`

	commandTag, err := tx.Exec(ctx, query, to, contestID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update contest status: %w", err)
	}
	return commandTag.RowsAffected() == 1, nil
}

// MarkSettled completes a contest and records the payout outcome
func (r *ContestRepositoryImpl) MarkSettled(ctx context.Context, contestID int64, winnerID *int64, tx pgx.Tx) error {
	query := `
        UPDATE contests
        SET status = 'completed', prize_distributed = TRUE, winner_id = $1, updated_at = NOW()
        WHERE id = $2`

	commandTag, err := tx.Exec(ctx, query, winnerID, contestID)
	if err != nil {
		return fmt.Errorf("failed to mark contest settled: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return model.ErrContestNotFound
	}
	return nil
}

// InsertEntry adds an account to the roster
func (r *ContestRepositoryImpl) InsertEntry(ctx context.Context, contestID, accountID int64, tx pgx.Tx) error {
	query := `INSERT INTO contest_entries (contest_id, account_id) VALUES ($1, $2)`

	_, err := tx.Exec(ctx, query, contestID, accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.ErrAlreadyJoined
		}
		return fmt.Errorf("failed to insert contest entry: %w", err)
	}
	return nil
}

func (r *ContestRepositoryImpl) CountEntries(ctx context.Context, contestID int64, tx ...pgx.Tx) (int, error) {
	query := `SELECT COUNT(*) FROM contest_entries WHERE contest_id = $1`

	var count int
	executor := r.getExecutor(tx...)
	if err := executor.QueryRow(ctx, query, contestID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contest entries: %w", err)
	}
	return count, nil
}

func (r *ContestRepositoryImpl) HasEntry(ctx context.Context, contestID, accountID int64, tx ...pgx.Tx) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM contest_entries WHERE contest_id = $1 AND account_id = $2)`

	var exists bool
	executor := r.getExecutor(tx...)
	if err := executor.QueryRow(ctx, query, contestID, accountID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check contest entry: %w", err)
	}
	return exists, nil
}
