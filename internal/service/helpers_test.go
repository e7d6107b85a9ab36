package service

import (
	"context"
	"sync"
	"testing"

	"contest-engine/internal/config"
	"contest-engine/internal/model"
	"contest-engine/internal/repository/memory"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testContestConfig(poolAccountID int64) config.ContestConfig {
	return config.ContestConfig{
		PoolAccountID:       poolAccountID,
		PrizeSplit:          []int{60, 30, 10},
		DailyPrizePool:      "100",
		DailyEntryFee:       "10",
		DailyMaxSpots:       100,
		QuestionsPerTest:    5,
		TestDurationMinutes: 10,
	}
}

func seedAccount(t *testing.T, store *memory.Store, balance string) model.Account {
	t.Helper()
	return store.SeedAccount(model.Account{
		FullName: "Test Account",
		Balance:  decimal.RequireFromString(balance),
	})
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

// buildFinalizedTest creates and finalizes a test holding the given questions.
// Each question's correct option index is taken from correctOptions.
func buildFinalizedTest(t *testing.T, store *memory.Store, correctOptions []int) *model.Test {
	t.Helper()
	ctx := context.Background()
	svc := NewTestBankService(store, store, store, testLogger())

	test, err := svc.CreateDraftTest(ctx, &model.CreateTestRequest{
		Name:            "Sample Test",
		DurationMinutes: 10,
	})
	require.NoError(t, err)

	for i, correct := range correctOptions {
		correct := correct
		q, err := svc.CreateQuestion(ctx, &model.CreateQuestionRequest{
			Text:          "Question " + string(rune('A'+i)),
			Options:       []string{"opt0", "opt1", "opt2", "opt3"},
			CorrectOption: &correct,
		})
		require.NoError(t, err)

		_, err = svc.AppendQuestion(ctx, test.ID, q.ID)
		require.NoError(t, err)
	}

	finalized, err := svc.FinalizeTest(ctx, test.ID)
	require.NoError(t, err)
	return finalized
}

// buildLiveContest creates a live contest over a freshly finalized test.
func buildLiveContest(t *testing.T, store *memory.Store, cfg config.ContestConfig, prizePool, entryFee string, maxSpots int, correctOptions []int) *model.Contest {
	t.Helper()
	ctx := context.Background()

	test := buildFinalizedTest(t, store, correctOptions)

	svc := NewContestService(store, store, store, store, cfg, testLogger())
	contest, err := svc.CreateContest(ctx, &model.CreateContestRequest{
		TestID:    test.ID,
		PrizePool: prizePool,
		EntryFee:  entryFee,
		MaxSpots:  maxSpots,
	})
	require.NoError(t, err)

	opened, err := svc.OpenContest(ctx, contest.ID)
	require.NoError(t, err)
	return opened
}

func intPtr(v int) *int {
	return &v
}
