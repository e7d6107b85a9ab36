package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID            int64           `json:"id"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Role          Role            `json:"role"`
	Balance       decimal.Decimal `json:"balance"`
	Blocked       bool            `json:"blocked"`
	LoginAttempts int             `json:"login_attempts"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LedgerEntry is append-only: the sum of signed amounts for an account always
// reconstructs its balance, and BalanceAfter records the balance the mutation
// produced.
type LedgerEntry struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    LedgerDirection `json:"direction"`
	Reason       string          `json:"reason"`
	Reference    *string         `json:"reference,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Question struct {
	ID            int64      `json:"id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correct_option"`
	Difficulty    Difficulty `json:"difficulty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TestQuestion is a question snapshot embedded in a test. Edits to the bank
// after a test is finalized never change what participants answered against.
type TestQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

type Test struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	DurationMinutes int            `json:"duration_minutes"`
	Questions       []TestQuestion `json:"questions"`
	IsDraft         bool           `json:"is_draft"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type Contest struct {
	ID               int64           `json:"id"`
	TestID           int64           `json:"test_id"`
	PrizePool        decimal.Decimal `json:"prize_pool"`
	EntryFee         decimal.Decimal `json:"entry_fee"`
	MaxSpots         int             `json:"max_spots"`
	Status           ContestStatus   `json:"status"`
	PrizeDistributed bool            `json:"prize_distributed"`
	WinnerID         *int64          `json:"winner_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type AnswerDetail struct {
	Question      string       `json:"question"`
	CorrectAnswer string       `json:"correct_answer"`
	UserAnswer    string       `json:"user_answer"`
	Status        AnswerStatus `json:"status"`
}

type Submission struct {
	ID               int64          `json:"id"`
	AccountID        int64          `json:"account_id"`
	TestID           int64          `json:"test_id"`
	ContestID        int64          `json:"contest_id"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"total_questions"`
	Answers          []AnswerDetail `json:"answers"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	CreatedAt        time.Time      `json:"created_at"`
}

type LedgerRequest struct {
	Amount    string `json:"amount" binding:"required" example:"25.00"`
	Reason    string `json:"reason" binding:"required" example:"promo credit"`
	Reference string `json:"reference,omitempty" example:"order_9f2c"`
}

type LedgerResponse struct {
	Msg     string `json:"msg" example:"balance updated"`
	Balance string `json:"balance" example:"125.00"`
}

type BalanceResponse struct {
	AccountID int64  `json:"account_id" example:"1"`
	Balance   string `json:"balance" example:"100.00"`
}

type LedgerListResponse struct {
	Entries []*LedgerEntry `json:"entries"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

type CreateQuestionRequest struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required"`
	CorrectOption *int     `json:"correct_option" binding:"required"`
	Difficulty    string   `json:"difficulty,omitempty" example:"easy"`
}

type CreateTestRequest struct {
	Name            string `json:"name" binding:"required" example:"Daily Test"`
	DurationMinutes int    `json:"duration_minutes" binding:"required" example:"10"`
}

type AppendQuestionRequest struct {
	QuestionID int64 `json:"question_id" binding:"required" example:"7"`
}

type CreateContestRequest struct {
	TestID    int64  `json:"test_id" binding:"required" example:"3"`
	PrizePool string `json:"prize_pool" binding:"required" example:"100"`
	EntryFee  string `json:"entry_fee" binding:"required" example:"10"`
	MaxSpots  int    `json:"max_spots" binding:"required" example:"100"`
}

type JoinContestResponse struct {
	Msg     string `json:"msg" example:"contest joined successfully"`
	Balance string `json:"balance" example:"90.00"`
}

type SubmitResultRequest struct {
	ContestID int64  `json:"contest_id" binding:"required" example:"5"`
	Answers   []*int `json:"answers" binding:"required"`
	TimeTaken int    `json:"time_taken" example:"420"`
}

type SubmitResultResponse struct {
	Msg            string `json:"msg" example:"result saved successfully"`
	ResultID       int64  `json:"result_id" example:"12"`
	Score          int    `json:"score" example:"4"`
	TotalQuestions int    `json:"total_questions" example:"5"`
}

type PaymentWebhookRequest struct {
	AccountID int64  `json:"account_id" binding:"required" example:"1"`
	Amount    string `json:"amount" binding:"required" example:"25.00"`
	Reference string `json:"reference" binding:"required" example:"pay_9f2c"`
}

type Payout struct {
	Rank      int    `json:"rank"`
	AccountID int64  `json:"account_id"`
	Amount    string `json:"amount"`
}

type SettlementResponse struct {
	Msg            string   `json:"msg" example:"contest settled"`
	ContestID      int64    `json:"contest_id"`
	WinnerID       *int64   `json:"winner_id,omitempty"`
	Payouts        []Payout `json:"payouts"`
	SkippedPayouts []Payout `json:"skipped_payouts,omitempty"`
}

type ErrorResponse struct {
	Msg     string `json:"msg" example:"insufficient funds"`
	Code    string `json:"code,omitempty" example:"INSUFFICIENT_FUNDS"`
	Details string `json:"details,omitempty"`
}
