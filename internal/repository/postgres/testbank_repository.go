package postgres

import (
	"context"
	"errors"
	"fmt"

	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure implementations satisfy interfaces at compile time
var (
	_ repository.QuestionRepository = (*QuestionRepositoryImpl)(nil)
	_ repository.TestRepository     = (*TestRepositoryImpl)(nil)
)

// QuestionRepositoryImpl is the PostgreSQL implementation of QuestionRepository
type QuestionRepositoryImpl struct {
	*TransactionManager
}

func NewQuestionRepository(pool *pgxpool.Pool) repository.QuestionRepository {
	return &QuestionRepositoryImpl{
		TransactionManager: NewTransactionManager(pool),
	}
}

func (r *QuestionRepositoryImpl) InsertQuestion(ctx context.Context, q *model.Question) error {
	query := `
        INSERT INTO questions (text, options, correct_option, difficulty)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, q.Text, q.Options, q.CorrectOption, q.Difficulty).
		Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

func (r *QuestionRepositoryImpl) GetQuestion(ctx context.Context, questionID int64, tx ...pgx.Tx) (*model.Question, error) {
	query := `
        SELECT id, text, options, correct_option, difficulty, created_at
        FROM questions WHERE id = $1`

	q := &model.Question{}
	err := r.getExecutor(tx...).QueryRow(ctx, query, questionID).
		Scan(&q.ID, &q.Text, &q.Options, &q.CorrectOption, &q.Difficulty, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

func (r *QuestionRepositoryImpl) ListQuestions(ctx context.Context, limit, offset int) ([]*model.Question, error) {
	query := `
        SELECT id, text, options, correct_option, difficulty, created_at
        FROM questions ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (r *QuestionRepositoryImpl) CountQuestions(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// SampleQuestions returns n distinct questions chosen uniformly at random
func (r *QuestionRepositoryImpl) SampleQuestions(ctx context.Context, n int) ([]*model.Question, error) {
	query := `
        SELECT id, text, options, correct_option, difficulty, created_at
        FROM questions ORDER BY random() LIMIT $1`

	rows, err := r.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	if len(questions) < n {
		return nil, model.ErrInsufficientQuestions
	}
	return questions, nil
}

func scanQuestions(rows pgx.Rows) ([]*model.Question, error) {
	var questions []*model.Question
	for rows.Next() {
		q := &model.Question{}
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectOption, &q.Difficulty, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// TestRepositoryImpl is the PostgreSQL implementation of TestRepository
type TestRepositoryImpl struct {
	*TransactionManager
}

func NewTestRepository(pool *pgxpool.Pool) repository.TestRepository {
	return &TestRepositoryImpl{
		TransactionManager: NewTransactionManager(pool),
	}
}

const testColumns = `id, name, duration_minutes, questions, is_draft, is_active, created_at, updated_at`

func scanTest(row pgx.Row) (*model.Test, error) {
	t := &model.Test{}
	err := row.Scan(&t.ID, &t.Name, &t.DurationMinutes, &t.Questions,
		&t.IsDraft, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTestNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TestRepositoryImpl) InsertTest(ctx context.Context, t *model.Test) error {
	query := `
        INSERT INTO tests (name, duration_minutes, questions, is_draft, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	if t.Questions == nil {
		t.Questions = []model.TestQuestion{}
	}
	err := r.pool.QueryRow(ctx, query, t.Name, t.DurationMinutes, t.Questions, t.IsDraft, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert test: %w", err)
	}
	return nil
}

func (r *TestRepositoryImpl) GetTest(ctx context.Context, testID int64, tx ...pgx.Tx) (*model.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE id = $1`

	executor := r.getExecutor(tx...)
	t, err := scanTest(executor.QueryRow(ctx, query, testID))
	if err != nil {
		if errors.Is(err, model.ErrTestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return t, nil
}

func (r *TestRepositoryImpl) GetTestForUpdate(ctx context.Context, testID int64, tx pgx.Tx) (*model.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE id = $1 FOR UPDATE`

	t, err := scanTest(tx.QueryRow(ctx, query, testID))
	if err != nil {
		if errors.Is(err, model.ErrTestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get test for update: %w", err)
	}
	return t, nil
}

func (r *TestRepositoryImpl) UpdateTestQuestions(ctx context.Context, testID int64, questions []model.TestQuestion, tx pgx.Tx) error {
	query := `UPDATE tests SET questions = $1, updated_at = NOW() WHERE id = $2`

	commandTag, err := tx.Exec(ctx, query, questions, testID)
	if err != nil {
		return fmt.Errorf("failed to update test questions: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return model.ErrTestNotFound
	}
	return nil
}

// FinalizeTest flips draft to active only if the test is still a draft
func (r *TestRepositoryImpl) FinalizeTest(ctx context.Context, testID int64, tx pgx.Tx) (bool, error) {
	query := `
        UPDATE tests
        SET is_draft = FALSE, is_active = TRUE, updated_at = NOW()
        WHERE id = $1 AND is_draft = TRUE`

	commandTag, err := tx.Exec(ctx, query, testID)
	if err != nil {
		return false, fmt.Errorf("failed to finalize test: %w", err)
	}
	return commandTag.RowsAffected() == 1, nil
}

func (r *TestRepositoryImpl) DeactivateActiveTests(ctx context.Context) (int64, error) {
	query := `UPDATE tests SET is_active = FALSE, updated_at = NOW() WHERE is_active = TRUE`

	commandTag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate tests: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

func (r *TestRepositoryImpl) ListActiveTests(ctx context.Context) ([]*model.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE is_active = TRUE ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tests: %w", err)
	}
	defer rows.Close()

	var tests []*model.Test
	for rows.Next() {
		t := &model.Test{}
		if err := rows.Scan(&t.ID, &t.Name, &t.DurationMinutes, &t.Questions,
			&t.IsDraft, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, nil
}
