package model

type ContestStatus string

const (
	ContestDraft     ContestStatus = "draft"
	ContestLive      ContestStatus = "live"
	ContestCompleted ContestStatus = "completed"
)

func (s ContestStatus) String() string {
	return string(s)
}

type LedgerDirection string

const (
	DirectionCredit LedgerDirection = "credit"
	DirectionDebit  LedgerDirection = "debit"
)

func ParseLedgerDirection(s string) (LedgerDirection, error) {
	switch s {
	case string(DirectionCredit):
		return DirectionCredit, nil
	case string(DirectionDebit):
		return DirectionDebit, nil
	default:
		return "", ErrInvalidDirection
	}
}

func (d LedgerDirection) String() string {
	return string(d)
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch s {
	case "", string(DifficultyEasy):
		return DifficultyEasy, nil
	case string(DifficultyMedium):
		return DifficultyMedium, nil
	case string(DifficultyHard):
		return DifficultyHard, nil
	default:
		return "", ErrInvalidDifficulty
	}
}

type AnswerStatus string

const (
	AnswerRight AnswerStatus = "Right"
	AnswerWrong AnswerStatus = "Wrong"
)

// NotAttempted is recorded as the user answer when no option was selected.
const NotAttempted = "Not Attempted"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Ledger reasons written by the engine itself. External flows (webhook, admin
// adjustments) carry their own reasons.
const (
	ReasonEntryFee     = "contest entry fee"
	ReasonContestPrize = "contest prize"
	ReasonDeposit      = "gateway deposit"
)
