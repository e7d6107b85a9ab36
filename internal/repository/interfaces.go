package repository

import (
	"context"

	"contest-engine/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DBManager provides database transaction management
type DBManager interface {
	// WithTransaction executes a function within a database transaction
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// AccountRepository defines operations for account balances and the ledger.
// Balance mutations and ledger inserts are always combined inside one
// transaction by the caller; the repository never writes one without the other.
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID int64, tx ...pgx.Tx) (*model.Account, error)

	// GetAccountForUpdate retrieves an account with a row-level lock (must be in transaction)
	GetAccountForUpdate(ctx context.Context, accountID int64, tx pgx.Tx) (*model.Account, error)

	GetBalance(ctx context.Context, accountID int64, tx ...pgx.Tx) (decimal.Decimal, error)

	UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal, tx pgx.Tx) error

	// InsertLedgerEntry appends one immutable entry; a duplicate external
	// reference fails with model.ErrDuplicateReference.
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry, tx pgx.Tx) error

	ListLedgerEntries(ctx context.Context, accountID int64, limit, offset int) ([]*model.LedgerEntry, error)

	// SumLedgerEntries returns the signed sum of all entries for an account.
	// It must equal the stored balance at all times.
	SumLedgerEntries(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

// QuestionRepository defines operations on the question bank
type QuestionRepository interface {
	InsertQuestion(ctx context.Context, q *model.Question) error

	GetQuestion(ctx context.Context, questionID int64, tx ...pgx.Tx) (*model.Question, error)

	ListQuestions(ctx context.Context, limit, offset int) ([]*model.Question, error)

	CountQuestions(ctx context.Context) (int, error)

	// SampleQuestions returns n distinct questions chosen uniformly at random
	SampleQuestions(ctx context.Context, n int) ([]*model.Question, error)
}

// TestRepository defines operations on tests and their embedded questions
type TestRepository interface {
	InsertTest(ctx context.Context, t *model.Test) error

	GetTest(ctx context.Context, testID int64, tx ...pgx.Tx) (*model.Test, error)

	GetTestForUpdate(ctx context.Context, testID int64, tx pgx.Tx) (*model.Test, error)

	UpdateTestQuestions(ctx context.Context, testID int64, questions []model.TestQuestion, tx pgx.Tx) error

	// FinalizeTest flips draft to active only if the test is still a draft
	FinalizeTest(ctx context.Context, testID int64, tx pgx.Tx) (bool, error)

	DeactivateActiveTests(ctx context.Context) (int64, error)

	ListActiveTests(ctx context.Context) ([]*model.Test, error)
}

// ContestRepository defines operations on contests and their rosters
type ContestRepository interface {
	InsertContest(ctx context.Context, c *model.Contest) error

	GetContest(ctx context.Context, contestID int64, tx ...pgx.Tx) (*model.Contest, error)

	// GetContestForUpdate retrieves a contest with an exclusive row lock
	GetContestForUpdate(ctx context.Context, contestID int64, tx pgx.Tx) (*model.Contest, error)

	// GetContestForShare retrieves a contest with a shared row lock, so
	// concurrent submissions do not serialize but settlement excludes them
	GetContestForShare(ctx context.Context, contestID int64, tx pgx.Tx) (*model.Contest, error)

	ListContests(ctx context.Context, status model.ContestStatus, limit, offset int) ([]*model.Contest, error)

	// UpdateContestStatus moves status from one value to another and reports
	// whether the transition happened (compare-and-swap)
	UpdateContestStatus(ctx context.Context, contestID int64, from, to model.ContestStatus, tx pgx.Tx) (bool, error)

	// MarkSettled completes a contest and records the payout outcome
	MarkSettled(ctx context.Context, contestID int64, winnerID *int64, tx pgx.Tx) error

	// InsertEntry adds an account to the roster; a duplicate fails with
	// model.ErrAlreadyJoined
	InsertEntry(ctx context.Context, contestID, accountID int64, tx pgx.Tx) error

	CountEntries(ctx context.Context, contestID int64, tx ...pgx.Tx) (int, error)

	HasEntry(ctx context.Context, contestID, accountID int64, tx ...pgx.Tx) (bool, error)
}

// SubmissionRepository defines operations on contest submissions
type SubmissionRepository interface {
	// InsertSubmission persists one submission; a second submission for the
	// same (contest, account) fails with model.ErrAlreadySubmitted
	InsertSubmission(ctx context.Context, sub *model.Submission, tx pgx.Tx) error

	// ListByContestRanked returns all submissions for a contest ordered by
	// score descending, time taken ascending, submission id ascending
	ListByContestRanked(ctx context.Context, contestID int64, tx ...pgx.Tx) ([]*model.Submission, error)

	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*model.Submission, error)
}
