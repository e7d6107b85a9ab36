package model

import "errors"

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDirection  = errors.New("invalid ledger direction")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrQuestionNotFound  = errors.New("question not found")

	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateReference = errors.New("duplicate ledger reference")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountBlocked     = errors.New("account blocked")

	ErrTestNotFound          = errors.New("test not found")
	ErrTestFinalized         = errors.New("test already finalized")
	ErrTestNotFinalized      = errors.New("test not finalized")
	ErrEmptyTest             = errors.New("test has no questions")
	ErrInsufficientQuestions = errors.New("not enough questions in the bank")

	ErrContestNotFound   = errors.New("contest not found")
	ErrContestNotLive    = errors.New("contest not live")
	ErrContestFull       = errors.New("contest full")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrInvalidTransition = errors.New("invalid contest transition")

	ErrNotJoined        = errors.New("account has not joined this contest")
	ErrAlreadySubmitted = errors.New("result already submitted")

	ErrRateLimited      = errors.New("too many requests")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
