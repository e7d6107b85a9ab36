package service

import (
	"context"
	"testing"

	"contest-engine/internal/config"
	"contest-engine/internal/events"
	"contest-engine/internal/model"
	"contest-engine/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlementFixture struct {
	store      *memory.Store
	cfg        config.ContestConfig
	pool       model.Account
	contests   ContestService
	results    SubmissionService
	settlement SettlementService
	publisher  *recordingPublisher
}

func newSettlementFixture(t *testing.T, poolBalance string) *settlementFixture {
	t.Helper()
	store := memory.NewStore()
	pool := seedAccount(t, store, poolBalance)
	cfg := testContestConfig(pool.ID)
	publisher := &recordingPublisher{}

	return &settlementFixture{
		store:      store,
		cfg:        cfg,
		pool:       pool,
		contests:   NewContestService(store, store, store, store, cfg, testLogger()),
		results:    NewSubmissionService(store, store, store, store, testLogger()),
		settlement: NewSettlementService(store, store, store, store, publisher, cfg, testLogger()),
		publisher:  publisher,
	}
}

// joinAndScore enters a player and records a submission with the wanted score
// profile. correctOption 1 is right under buildLiveContest([]int{1,...}).
func (f *settlementFixture) joinAndScore(t *testing.T, contestID int64, answers []*int, timeTaken int) int64 {
	t.Helper()
	ctx := context.Background()
	player := f.store.SeedAccount(model.Account{Balance: decimal.RequireFromString("100")})
	_, err := f.contests.JoinContest(ctx, contestID, player.ID)
	require.NoError(t, err)
	_, err = f.results.Submit(ctx, player.ID, &model.SubmitResultRequest{
		ContestID: contestID,
		Answers:   answers,
		TimeTaken: timeTaken,
	})
	require.NoError(t, err)
	return player.ID
}

func TestSettlementService_FullPrizeSplit(t *testing.T) {
	f := newSettlementFixture(t, "1000")
	ctx := context.Background()

	contest := buildLiveContest(t, f.store, f.cfg, "100", "0", 10, []int{1, 1})

	first := f.joinAndScore(t, contest.ID, []*int{intPtr(1), intPtr(1)}, 60)
	second := f.joinAndScore(t, contest.ID, []*int{intPtr(1), intPtr(0)}, 60)
	third := f.joinAndScore(t, contest.ID, []*int{intPtr(0), intPtr(0)}, 60)

	resp, err := f.settlement.CloseContest(ctx, contest.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.WinnerID)
	assert.Equal(t, first, *resp.WinnerID)
	require.Len(t, resp.Payouts, 3)
	assert.Empty(t, resp.SkippedPayouts)

	assert.Equal(t, model.Payout{Rank: 0, AccountID: first, Amount: "60.00"}, resp.Payouts[0])
	assert.Equal(t, model.Payout{Rank: 1, AccountID: second, Amount: "30.00"}, resp.Payouts[1])
	assert.Equal(t, model.Payout{Rank: 2, AccountID: third, Amount: "10.00"}, resp.Payouts[2])

	// winners' balances moved, pool funded the difference
	winnerBalance, err := f.store.GetBalance(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "160", winnerBalance.String())

	poolBalance, err := f.store.GetBalance(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "900", poolBalance.String())

	settled, err := f.store.GetContest(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContestCompleted, settled.Status)
	assert.True(t, settled.PrizeDistributed)
	require.NotNil(t, settled.WinnerID)
	assert.Equal(t, first, *settled.WinnerID)

	// one settled event plus one per payout
	require.Len(t, f.publisher.topics, 4)
	assert.Equal(t, events.TopicContestSettled, f.publisher.topics[0])
	assert.Equal(t, events.TopicPrizeAwarded, f.publisher.topics[1])
}

func TestSettlementService_UnfilledRanksForfeit(t *testing.T) {
	f := newSettlementFixture(t, "1000")
	ctx := context.Background()

	contest := buildLiveContest(t, f.store, f.cfg, "100", "0", 10, []int{1})
	only := f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 30)

	resp, err := f.settlement.CloseContest(ctx, contest.ID)
	require.NoError(t, err)
	require.Len(t, resp.Payouts, 1)
	assert.Equal(t, "60.00", resp.Payouts[0].Amount)
	assert.Equal(t, only, resp.Payouts[0].AccountID)

	// the 30 and 10 shares stay in the pool
	poolBalance, err := f.store.GetBalance(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "940", poolBalance.String())
}

func TestSettlementService_NoSubmissions(t *testing.T) {
	f := newSettlementFixture(t, "1000")
	ctx := context.Background()

	contest := buildLiveContest(t, f.store, f.cfg, "100", "0", 10, []int{1})

	resp, err := f.settlement.CloseContest(ctx, contest.ID)
	require.NoError(t, err)
	assert.Nil(t, resp.WinnerID)
	assert.Empty(t, resp.Payouts)

	settled, err := f.store.GetContest(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContestCompleted, settled.Status)
	assert.Nil(t, settled.WinnerID)

	poolBalance, err := f.store.GetBalance(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", poolBalance.String())
}

func TestSettlementService_CloseIsExactlyOnce(t *testing.T) {
	f := newSettlementFixture(t, "1000")
	ctx := context.Background()

	contest := buildLiveContest(t, f.store, f.cfg, "100", "0", 10, []int{1})
	winner := f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 30)

	_, err := f.settlement.CloseContest(ctx, contest.ID)
	require.NoError(t, err)

	_, err = f.settlement.CloseContest(ctx, contest.ID)
	assert.ErrorIs(t, err, model.ErrContestNotLive)

	// prize paid exactly once
	sum, err := f.store.SumLedgerEntries(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, "60", sum.String())
}

func TestSettlementService_FloorRounding(t *testing.T) {
	f := newSettlementFixture(t, "1000")
	ctx := context.Background()

	// 99.99 * 60% = 59.994 -> 59; * 30% = 29.997 -> 29; * 10% = 9.999 -> 9
	contest := buildLiveContest(t, f.store, f.cfg, "99.99", "0", 10, []int{1})
	f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 10)
	f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 20)
	f.joinAndScore(t, contest.ID, []*int{intPtr(0)}, 30)

	resp, err := f.settlement.CloseContest(ctx, contest.ID)
	require.NoError(t, err)
	require.Len(t, resp.Payouts, 3)
	assert.Equal(t, "59.00", resp.Payouts[0].Amount)
	assert.Equal(t, "29.00", resp.Payouts[1].Amount)
	assert.Equal(t, "9.00", resp.Payouts[2].Amount)
}

func TestSettlementService_TieBreaksByTimeThenSubmission(t *testing.T) {
	f := newSettlementFixture(t, "1000")
	ctx := context.Background()

	contest := buildLiveContest(t, f.store, f.cfg, "100", "0", 10, []int{1})

	slow := f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 120)
	fast := f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 60)
	// same score and time as fast, but submitted later
	tied := f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 60)

	resp, err := f.settlement.CloseContest(ctx, contest.ID)
	require.NoError(t, err)
	require.Len(t, resp.Payouts, 3)
	assert.Equal(t, fast, resp.Payouts[0].AccountID)
	assert.Equal(t, tied, resp.Payouts[1].AccountID)
	assert.Equal(t, slow, resp.Payouts[2].AccountID)
}

func TestSettlementService_PoolShortfallSkipsPayouts(t *testing.T) {
	f := newSettlementFixture(t, "65")
	ctx := context.Background()

	contest := buildLiveContest(t, f.store, f.cfg, "100", "0", 10, []int{1})
	first := f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 10)
	second := f.joinAndScore(t, contest.ID, []*int{intPtr(1)}, 20)
	third := f.joinAndScore(t, contest.ID, []*int{intPtr(0)}, 30)

	resp, err := f.settlement.CloseContest(ctx, contest.ID)
	require.NoError(t, err)

	// 60 paid, 30 skipped (pool at 5), 10 skipped
	require.Len(t, resp.Payouts, 1)
	assert.Equal(t, first, resp.Payouts[0].AccountID)
	require.Len(t, resp.SkippedPayouts, 2)
	assert.Equal(t, second, resp.SkippedPayouts[0].AccountID)
	assert.Equal(t, third, resp.SkippedPayouts[1].AccountID)

	// contest still completes
	settled, err := f.store.GetContest(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContestCompleted, settled.Status)
	assert.True(t, settled.PrizeDistributed)

	poolBalance, err := f.store.GetBalance(ctx, f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", poolBalance.String())
}

func TestSettlementService_MissingContest(t *testing.T) {
	f := newSettlementFixture(t, "1000")

	_, err := f.settlement.CloseContest(context.Background(), 404)
	assert.ErrorIs(t, err, model.ErrContestNotFound)
	assert.Empty(t, f.publisher.topics)
}

func TestSettlementService_DraftContestCannotSettle(t *testing.T) {
	f := newSettlementFixture(t, "1000")
	ctx := context.Background()

	test := buildFinalizedTest(t, f.store, []int{0})
	contest, err := f.contests.CreateContest(ctx, &model.CreateContestRequest{
		TestID: test.ID, PrizePool: "100", EntryFee: "0", MaxSpots: 5,
	})
	require.NoError(t, err)

	_, err = f.settlement.CloseContest(ctx, contest.ID)
	assert.ErrorIs(t, err, model.ErrContestNotLive)
}
