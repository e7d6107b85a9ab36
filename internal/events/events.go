// Package events carries fire-and-forget notifications out of the engine.
// Publishing failures are logged by callers and never abort the operation
// that triggered them.
package events

import "context"

const (
	TopicContestSettled = "contest.settled"
	TopicPrizeAwarded   = "prize.awarded"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

type ContestSettled struct {
	ContestID   int64  `json:"contest_id"`
	WinnerID    *int64 `json:"winner_id,omitempty"`
	Submissions int    `json:"submissions"`
}

type PrizeAwarded struct {
	ContestID int64  `json:"contest_id"`
	AccountID int64  `json:"account_id"`
	Rank      int    `json:"rank"`
	Amount    string `json:"amount"`
}

// NopPublisher discards events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}
