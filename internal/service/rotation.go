package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contest-engine/internal/config"
	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/rs/zerolog"
)

type RotationServiceImpl struct {
	settlement  SettlementService
	testBank    TestBankService
	contests    ContestService
	contestRepo repository.ContestRepository
	cfg         config.ContestConfig
	logger      zerolog.Logger
}

func NewRotationService(
	settlement SettlementService,
	testBank TestBankService,
	contests ContestService,
	contestRepo repository.ContestRepository,
	cfg config.ContestConfig,
	logger zerolog.Logger,
) RotationService {
	return &RotationServiceImpl{
		settlement:  settlement,
		testBank:    testBank,
		contests:    contests,
		contestRepo: contestRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// RotateDailyContest runs the daily cycle: settle every live contest, retire
// the active tests, then assemble and open a fresh contest from a random
// sample of the question bank. Settlement failures on individual contests are
// logged and the rotation moves on, so one stuck contest never blocks the
// next day's contest from opening.
func (s *RotationServiceImpl) RotateDailyContest(ctx context.Context) error {
	live, err := s.contestRepo.ListContests(ctx, model.ContestLive, 100, 0)
	if err != nil {
		return fmt.Errorf("list live contests: %w", err)
	}
	for _, contest := range live {
		if _, err := s.settlement.CloseContest(ctx, contest.ID); err != nil {
			s.logger.Error().Err(err).Int64("contest_id", contest.ID).
				Msg("failed to settle contest during rotation")
		}
	}

	deactivated, err := s.testBank.DeactivateActiveTests(ctx)
	if err != nil {
		return fmt.Errorf("deactivate tests: %w", err)
	}
	s.logger.Info().Int("settled", len(live)).Int64("deactivated", deactivated).
		Msg("previous cycle closed")

	questions, err := s.testBank.SampleQuestions(ctx, s.cfg.QuestionsPerTest)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientQuestions) {
			s.logger.Warn().Int("needed", s.cfg.QuestionsPerTest).
				Msg("question bank too small, skipping contest creation")
			return nil
		}
		return fmt.Errorf("sample questions: %w", err)
	}

	test, err := s.testBank.CreateDraftTest(ctx, &model.CreateTestRequest{
		Name:            fmt.Sprintf("Daily Test - %s", time.Now().UTC().Format("2006-01-02")),
		DurationMinutes: s.cfg.TestDurationMinutes,
	})
	if err != nil {
		return fmt.Errorf("create daily test: %w", err)
	}
	for _, q := range questions {
		if _, err := s.testBank.AppendQuestion(ctx, test.ID, q.ID); err != nil {
			return fmt.Errorf("append question %d: %w", q.ID, err)
		}
	}
	if _, err := s.testBank.FinalizeTest(ctx, test.ID); err != nil {
		return fmt.Errorf("finalize daily test: %w", err)
	}

	contest, err := s.contests.CreateContest(ctx, &model.CreateContestRequest{
		TestID:    test.ID,
		PrizePool: s.cfg.DailyPrizePool,
		EntryFee:  s.cfg.DailyEntryFee,
		MaxSpots:  s.cfg.DailyMaxSpots,
	})
	if err != nil {
		return fmt.Errorf("create daily contest: %w", err)
	}
	if _, err := s.contests.OpenContest(ctx, contest.ID); err != nil {
		return fmt.Errorf("open daily contest: %w", err)
	}

	s.logger.Info().Int64("contest_id", contest.ID).Int64("test_id", test.ID).
		Int("questions", len(questions)).Msg("daily contest rotated")
	return nil
}
