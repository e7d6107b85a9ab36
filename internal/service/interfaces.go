package service

import (
	"context"

	"contest-engine/internal/model"
)

// LedgerService defines the business logic for balance changes and the
// append-only ledger
type LedgerService interface {
	Credit(ctx context.Context, accountID int64, req *model.LedgerRequest) (*model.LedgerResponse, error)
	Debit(ctx context.Context, accountID int64, req *model.LedgerRequest) (*model.LedgerResponse, error)
	GetBalance(ctx context.Context, accountID int64) (*model.BalanceResponse, error)
	GetLedgerEntries(ctx context.Context, accountID int64, limit, offset int) ([]*model.LedgerEntry, error)
}

// TestBankService defines the business logic for the question bank and test
// lifecycle
type TestBankService interface {
	CreateQuestion(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error)
	SampleQuestions(ctx context.Context, n int) ([]*model.Question, error)
	CreateDraftTest(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error)
	AppendQuestion(ctx context.Context, testID, questionID int64) (*model.Test, error)
	FinalizeTest(ctx context.Context, testID int64) (*model.Test, error)
	DeactivateActiveTests(ctx context.Context) (int64, error)
	GetTest(ctx context.Context, testID int64) (*model.Test, error)
	ListActiveTests(ctx context.Context) ([]*model.Test, error)
}

// ContestService defines the business logic for the contest lifecycle up to
// settlement
type ContestService interface {
	CreateContest(ctx context.Context, req *model.CreateContestRequest) (*model.Contest, error)
	OpenContest(ctx context.Context, contestID int64) (*model.Contest, error)
	JoinContest(ctx context.Context, contestID, accountID int64) (*model.JoinContestResponse, error)
	GetContest(ctx context.Context, contestID int64) (*model.Contest, error)
	ListContests(ctx context.Context, status model.ContestStatus, limit, offset int) ([]*model.Contest, error)
}

// SubmissionService defines the business logic for answer submission and
// scoring
type SubmissionService interface {
	Submit(ctx context.Context, accountID int64, req *model.SubmitResultRequest) (*model.SubmitResultResponse, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*model.Submission, error)
	Leaderboard(ctx context.Context, contestID int64, limit int) ([]*model.Submission, error)
}

// SettlementService owns the only path from live to completed
type SettlementService interface {
	CloseContest(ctx context.Context, contestID int64) (*model.SettlementResponse, error)
}

// RotationService rotates the daily contest: settle yesterday's, build and
// open today's
type RotationService interface {
	RotateDailyContest(ctx context.Context) error
}
