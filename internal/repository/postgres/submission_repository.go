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
var _ repository.SubmissionRepository = (*SubmissionRepositoryImpl)(nil)

// SubmissionRepositoryImpl is the PostgreSQL implementation of SubmissionRepository
type SubmissionRepositoryImpl struct {
	*TransactionManager
}

func NewSubmissionRepository(pool *pgxpool.Pool) repository.SubmissionRepository {
	return &SubmissionRepositoryImpl{
		TransactionManager: NewTransactionManager(pool),
	}
}

const submissionColumns = `id, contest_id, account_id, test_id, score, total_questions, answers, time_taken_seconds, created_at`

// InsertSubmission persists one submission; the (contest_id, account_id)
// unique constraint is the re-submission guarantee
func (r *SubmissionRepositoryImpl) InsertSubmission(ctx context.Context, sub *model.Submission, tx pgx.Tx) error {
	query := `
        INSERT INTO submissions (contest_id, account_id, test_id, score, total_questions, answers, time_taken_seconds)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	if sub.Answers == nil {
		sub.Answers = []model.AnswerDetail{}
	}
	err := tx.QueryRow(ctx, query, sub.ContestID, sub.AccountID, sub.TestID,
		sub.Score, sub.TotalQuestions, sub.Answers, sub.TimeTakenSeconds).
		Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.ErrAlreadySubmitted
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// ListByContestRanked returns submissions ordered by score descending, time
// taken ascending, then submission id ascending (first submitted wins ties)
func (r *SubmissionRepositoryImpl) ListByContestRanked(ctx context.Context, contestID int64, tx ...pgx.Tx) ([]*model.Submission, error) {
	query := `
        SELECT ` + submissionColumns + ` FROM submissions
        WHERE contest_id = $1
        ORDER BY score DESC, time_taken_seconds ASC, id ASC`

	executor := r.getExecutor(tx...)
	rows, err := executor.Query(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked submissions: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func (r *SubmissionRepositoryImpl) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*model.Submission, error) {
	query := `
        SELECT ` + submissionColumns + ` FROM submissions
        WHERE account_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func scanSubmissions(rows pgx.Rows) ([]*model.Submission, error) {
	var submissions []*model.Submission
	for rows.Next() {
		sub := &model.Submission{}
		if err := rows.Scan(&sub.ID, &sub.ContestID, &sub.AccountID, &sub.TestID,
			&sub.Score, &sub.TotalQuestions, &sub.Answers, &sub.TimeTakenSeconds, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, sub)
	}
	return submissions, nil
}
