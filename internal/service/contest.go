package service

import (
	"context"
	"fmt"

	"contest-engine/internal/config"
	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// canGoLive is the single precondition for the draft to live transition: the
// linked test must be finalized and still active. Every code path that opens
// a contest goes through this check.
func canGoLive(test *model.Test) bool {
	return test != nil && !test.IsDraft && test.IsActive
}

type ContestServiceImpl struct {
	contestRepo repository.ContestRepository
	testRepo    repository.TestRepository
	accountRepo repository.AccountRepository
	dbManager   repository.DBManager
	cfg         config.ContestConfig
	logger      zerolog.Logger
}

func NewContestService(
	contestRepo repository.ContestRepository,
	testRepo repository.TestRepository,
	accountRepo repository.AccountRepository,
	dbManager repository.DBManager,
	cfg config.ContestConfig,
	logger zerolog.Logger,
) ContestService {
	return &ContestServiceImpl{
		contestRepo: contestRepo,
		testRepo:    testRepo,
		accountRepo: accountRepo,
		dbManager:   dbManager,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *ContestServiceImpl) CreateContest(ctx context.Context, req *model.CreateContestRequest) (*model.Contest, error) {
	prizePool, err := decimal.NewFromString(req.PrizePool)
	if err != nil || prizePool.IsNegative() {
		return nil, fmt.Errorf("%w: prize pool", model.ErrInvalidAmount)
	}
	entryFee, err := decimal.NewFromString(req.EntryFee)
	if err != nil || entryFee.IsNegative() {
		return nil, fmt.Errorf("%w: entry fee", model.ErrInvalidAmount)
	}
	if req.MaxSpots <= 0 {
		return nil, fmt.Errorf("%w: max spots must be positive", model.ErrInvalidAmount)
	}

	if _, err := s.testRepo.GetTest(ctx, req.TestID); err != nil {
		return nil, err
	}

	contest := &model.Contest{
		TestID:    req.TestID,
		PrizePool: prizePool,
		EntryFee:  entryFee,
		MaxSpots:  req.MaxSpots,
		Status:    model.ContestDraft,
	}
	if err := s.contestRepo.InsertContest(ctx, contest); err != nil {
		return nil, fmt.Errorf("insert contest: %w", err)
	}

	s.logger.Info().Int64("contest_id", contest.ID).Int64("test_id", contest.TestID).
		Str("prize_pool", prizePool.String()).Msg("contest created")
	return contest, nil
}

// OpenContest moves a contest from draft to live. Status only ever moves
// forward, so reopening a live or completed contest is rejected.
func (s *ContestServiceImpl) OpenContest(ctx context.Context, contestID int64) (*model.Contest, error) {
	var result *model.Contest

	err := s.dbManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		contest, err := s.contestRepo.GetContestForUpdate(ctx, contestID, tx)
		if err != nil {
			return err
		}
		if contest.Status != model.ContestDraft {
			return model.ErrInvalidTransition
		}

		test, err := s.testRepo.GetTest(ctx, contest.TestID, tx)
		if err != nil {
			return err
		}
		if !canGoLive(test) {
			return model.ErrTestNotFinalized
		}

		moved, err := s.contestRepo.UpdateContestStatus(ctx, contestID, model.ContestDraft, model.ContestLive, tx)
		if err != nil {
			return fmt.Errorf("update contest status: %w", err)
		}
		if !moved {
			return model.ErrInvalidTransition
		}

		contest.Status = model.ContestLive
		result = contest
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("contest_id", contestID).Msg("contest live")
	return result, nil
}

// JoinContest admits one account: debit the entry fee, credit the pooled
// account, add the account to the roster. The three effects commit or roll
// back as a unit, and the roster's unique constraint makes the whole thing
// exactly-once under concurrent duplicates.
func (s *ContestServiceImpl) JoinContest(ctx context.Context, contestID, accountID int64) (*model.JoinContestResponse, error) {
	var newBalance decimal.Decimal

	err := s.dbManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		contest, err := s.contestRepo.GetContestForUpdate(ctx, contestID, tx)
		if err != nil {
			return err
		}
		if contest.Status != model.ContestLive {
			return model.ErrContestNotLive
		}

		// Optimization only; the insert below is the real guarantee.
		joined, err := s.contestRepo.HasEntry(ctx, contestID, accountID, tx)
		if err != nil {
			return fmt.Errorf("check contest entry: %w", err)
		}
		if joined {
			return model.ErrAlreadyJoined
		}

		// The contest row lock serializes this count against other joins.
		spots, err := s.contestRepo.CountEntries(ctx, contestID, tx)
		if err != nil {
			return fmt.Errorf("count contest entries: %w", err)
		}
		if spots >= contest.MaxSpots {
			return model.ErrContestFull
		}

		if err := s.contestRepo.InsertEntry(ctx, contestID, accountID, tx); err != nil {
			return err
		}

		if contest.EntryFee.IsPositive() {
			newBalance, err = applyLedger(ctx, tx, s.accountRepo, accountID,
				contest.EntryFee, model.DirectionDebit, model.ReasonEntryFee, nil)
			if err != nil {
				return err
			}
			if _, err = applyLedger(ctx, tx, s.accountRepo, s.cfg.PoolAccountID,
				contest.EntryFee, model.DirectionCredit, model.ReasonEntryFee, nil); err != nil {
				return fmt.Errorf("credit pool account: %w", err)
			}
		} else {
			newBalance, err = s.accountRepo.GetBalance(ctx, accountID, tx)
			if err != nil {
				return fmt.Errorf("get balance: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("contest_id", contestID).Int64("account_id", accountID).
		Str("balance", newBalance.StringFixed(2)).Msg("contest joined")

	return &model.JoinContestResponse{
		Msg:     "contest joined successfully",
		Balance: newBalance.StringFixed(2),
	}, nil
}

func (s *ContestServiceImpl) GetContest(ctx context.Context, contestID int64) (*model.Contest, error) {
	return s.contestRepo.GetContest(ctx, contestID)
}

func (s *ContestServiceImpl) ListContests(ctx context.Context, status model.ContestStatus, limit, offset int) ([]*model.Contest, error) {
	contests, err := s.contestRepo.ListContests(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	return contests, nil
}
