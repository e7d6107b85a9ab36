package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"contest-engine/internal/model"
	"contest-engine/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestContestService_CreateContestValidation(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "1000")
	svc := NewContestService(store, store, store, store, testContestConfig(pool.ID), testLogger())
	ctx := context.Background()

	test := buildFinalizedTest(t, store, []int{0})

	cases := []struct {
		name string
		req  *model.CreateContestRequest
		want error
	}{
		{"bad prize pool", &model.CreateContestRequest{TestID: test.ID, PrizePool: "x", EntryFee: "10", MaxSpots: 5}, model.ErrInvalidAmount},
		{"negative prize pool", &model.CreateContestRequest{TestID: test.ID, PrizePool: "-1", EntryFee: "10", MaxSpots: 5}, model.ErrInvalidAmount},
		{"bad entry fee", &model.CreateContestRequest{TestID: test.ID, PrizePool: "100", EntryFee: "-2", MaxSpots: 5}, model.ErrInvalidAmount},
		{"zero spots", &model.CreateContestRequest{TestID: test.ID, PrizePool: "100", EntryFee: "10", MaxSpots: 0}, model.ErrInvalidAmount},
		{"missing test", &model.CreateContestRequest{TestID: 404, PrizePool: "100", EntryFee: "10", MaxSpots: 5}, model.ErrTestNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateContest(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	contest, err := svc.CreateContest(ctx, &model.CreateContestRequest{
		TestID: test.ID, PrizePool: "100", EntryFee: "10", MaxSpots: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ContestDraft, contest.Status)
}

func TestContestService_OpenRequiresFinalizedTest(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "1000")
	svc := NewContestService(store, store, store, store, testContestConfig(pool.ID), testLogger())
	bank := NewTestBankService(store, store, store, testLogger())
	ctx := context.Background()

	draft, err := bank.CreateDraftTest(ctx, &model.CreateTestRequest{Name: "Draft", DurationMinutes: 5})
	require.NoError(t, err)

	contest, err := svc.CreateContest(ctx, &model.CreateContestRequest{
		TestID: draft.ID, PrizePool: "100", EntryFee: "10", MaxSpots: 5,
	})
	require.NoError(t, err)

	_, err = svc.OpenContest(ctx, contest.ID)
	assert.ErrorIs(t, err, model.ErrTestNotFinalized)

	got, err := svc.GetContest(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContestDraft, got.Status)
}

func TestContestService_OpenIsForwardOnly(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "1000")
	cfg := testContestConfig(pool.ID)
	svc := NewContestService(store, store, store, store, cfg, testLogger())
	ctx := context.Background()

	contest := buildLiveContest(t, store, cfg, "100", "10", 5, []int{0})

	_, err := svc.OpenContest(ctx, contest.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = svc.OpenContest(ctx, 404)
	assert.ErrorIs(t, err, model.ErrContestNotFound)
}

func TestContestService_JoinContest(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "0")
	cfg := testContestConfig(pool.ID)
	svc := NewContestService(store, store, store, store, cfg, testLogger())
	ctx := context.Background()

	contest := buildLiveContest(t, store, cfg, "100", "10", 5, []int{0})
	player := seedAccount(t, store, "25.00")

	resp, err := svc.JoinContest(ctx, contest.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, "15.00", resp.Balance)

	// fee landed in the pooled account
	poolBalance, err := store.GetBalance(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", poolBalance.String())

	// both sides of the transfer hit the ledger
	playerSum, err := store.SumLedgerEntries(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, "-10", playerSum.String())

	_, err = svc.JoinContest(ctx, contest.ID, player.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyJoined)
}

func TestContestService_JoinRejections(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "0")
	cfg := testContestConfig(pool.ID)
	svc := NewContestService(store, store, store, store, cfg, testLogger())
	bank := NewTestBankService(store, store, store, testLogger())
	ctx := context.Background()

	t.Run("not live", func(t *testing.T) {
		draft, err := bank.CreateDraftTest(ctx, &model.CreateTestRequest{Name: "D", DurationMinutes: 5})
		require.NoError(t, err)
		contest, err := svc.CreateContest(ctx, &model.CreateContestRequest{
			TestID: draft.ID, PrizePool: "100", EntryFee: "10", MaxSpots: 5,
		})
		require.NoError(t, err)

		player := seedAccount(t, store, "50")
		_, err = svc.JoinContest(ctx, contest.ID, player.ID)
		assert.ErrorIs(t, err, model.ErrContestNotLive)
	})

	t.Run("insufficient funds keeps the roster clean", func(t *testing.T) {
		contest := buildLiveContest(t, store, cfg, "100", "10", 5, []int{0})
		broke := seedAccount(t, store, "9.99")

		_, err := svc.JoinContest(ctx, contest.ID, broke.ID)
		assert.ErrorIs(t, err, model.ErrInsufficientFunds)

		joined, err := store.HasEntry(ctx, contest.ID, broke.ID)
		require.NoError(t, err)
		assert.False(t, joined, "failed join must not occupy a spot")

		balance, err := store.GetBalance(ctx, broke.ID)
		require.NoError(t, err)
		assert.Equal(t, "9.99", balance.String())
	})

	t.Run("full contest", func(t *testing.T) {
		contest := buildLiveContest(t, store, cfg, "100", "10", 1, []int{0})
		first := seedAccount(t, store, "50")
		second := seedAccount(t, store, "50")

		_, err := svc.JoinContest(ctx, contest.ID, first.ID)
		require.NoError(t, err)

		_, err = svc.JoinContest(ctx, contest.ID, second.ID)
		assert.ErrorIs(t, err, model.ErrContestFull)
	})

	t.Run("missing contest", func(t *testing.T) {
		player := seedAccount(t, store, "50")
		_, err := svc.JoinContest(ctx, 404, player.ID)
		assert.ErrorIs(t, err, model.ErrContestNotFound)
	})
}

func TestContestService_ConcurrentDuplicateJoins(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "0")
	cfg := testContestConfig(pool.ID)
	svc := NewContestService(store, store, store, store, cfg, testLogger())
	ctx := context.Background()

	contest := buildLiveContest(t, store, cfg, "100", "10", 100, []int{0})
	player := seedAccount(t, store, "1000")

	var successes atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := svc.JoinContest(ctx, contest.ID, player.ID)
			if err == nil {
				successes.Add(1)
				return nil
			}
			if errors.Is(err, model.ErrAlreadyJoined) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, successes.Load())

	// exactly one fee debited
	sum, err := store.SumLedgerEntries(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, "-10", sum.String())
}

func TestContestService_ConcurrentJoinsNeverOversell(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "0")
	cfg := testContestConfig(pool.ID)
	svc := NewContestService(store, store, store, store, cfg, testLogger())
	ctx := context.Background()

	maxSpots := 2
	contest := buildLiveContest(t, store, cfg, "100", "10", maxSpots, []int{0})

	var players []model.Account
	for i := 0; i < 5; i++ {
		players = append(players, seedAccount(t, store, "100"))
	}

	var successes atomic.Int32
	var g errgroup.Group
	for _, p := range players {
		p := p
		g.Go(func() error {
			_, err := svc.JoinContest(ctx, contest.ID, p.ID)
			if err == nil {
				successes.Add(1)
				return nil
			}
			if errors.Is(err, model.ErrContestFull) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, maxSpots, successes.Load())

	count, err := store.CountEntries(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, maxSpots, count)

	// pool holds exactly the collected fees
	poolBalance, err := store.GetBalance(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "20", poolBalance.String())
}

func TestContestService_ListContestsByStatus(t *testing.T) {
	store := memory.NewStore()
	pool := seedAccount(t, store, "0")
	cfg := testContestConfig(pool.ID)
	svc := NewContestService(store, store, store, store, cfg, testLogger())
	ctx := context.Background()

	test := buildFinalizedTest(t, store, []int{0})
	draft, err := svc.CreateContest(ctx, &model.CreateContestRequest{
		TestID: test.ID, PrizePool: "100", EntryFee: "10", MaxSpots: 5,
	})
	require.NoError(t, err)
	buildLiveContest(t, store, cfg, "100", "10", 5, []int{0})

	drafts, err := svc.ListContests(ctx, model.ContestDraft, 10, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)

	all, err := svc.ListContests(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
