package service

import (
	"context"
	"errors"
	"fmt"

	"contest-engine/internal/config"
	"contest-engine/internal/events"
	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type SettlementServiceImpl struct {
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
	accountRepo    repository.AccountRepository
	dbManager      repository.DBManager
	publisher      events.Publisher
	cfg            config.ContestConfig
	logger         zerolog.Logger
}

func NewSettlementService(
	contestRepo repository.ContestRepository,
	submissionRepo repository.SubmissionRepository,
	accountRepo repository.AccountRepository,
	dbManager repository.DBManager,
	publisher events.Publisher,
	cfg config.ContestConfig,
	logger zerolog.Logger,
) SettlementService {
	return &SettlementServiceImpl{
		contestRepo:    contestRepo,
		submissionRepo: submissionRepo,
		accountRepo:    accountRepo,
		dbManager:      dbManager,
		publisher:      publisher,
		cfg:            cfg,
		logger:         logger,
	}
}

// CloseContest is the only path from live to completed. The exclusive contest
// lock is the settlement gate: a concurrent second close, join, or submit on
// the same contest waits here and then fails the live-status check. Ranking,
// every payout, and the status flip commit as one transaction.
func (s *SettlementServiceImpl) CloseContest(ctx context.Context, contestID int64) (*model.SettlementResponse, error) {
	var (
		resp        *model.SettlementResponse
		awardEvents []events.PrizeAwarded
		submissions int
	)

	err := s.dbManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		contest, err := s.contestRepo.GetContestForUpdate(ctx, contestID, tx)
		if err != nil {
			return err
		}
		if contest.Status != model.ContestLive {
			return model.ErrContestNotLive
		}

		ranked, err := s.submissionRepo.ListByContestRanked(ctx, contestID, tx)
		if err != nil {
			return fmt.Errorf("list ranked submissions: %w", err)
		}
		submissions = len(ranked)

		var winnerID *int64
		if len(ranked) > 0 {
			id := ranked[0].AccountID
			winnerID = &id
		}

		resp = &model.SettlementResponse{
			Msg:       "contest settled",
			ContestID: contestID,
			WinnerID:  winnerID,
			Payouts:   []model.Payout{},
		}
		awardEvents = nil

		// A contest that somehow already paid out still completes, but the
		// money never moves twice.
		if !contest.PrizeDistributed {
			for rank, percent := range s.cfg.PrizeSplit {
				if rank >= len(ranked) {
					// Unfilled ranks forfeit their share.
					break
				}
				amount := contest.PrizePool.
					Mul(decimal.NewFromInt(int64(percent))).
					Div(decimal.NewFromInt(100)).
					Floor()
				if !amount.IsPositive() {
					continue
				}

				winner := ranked[rank].AccountID
				payout := model.Payout{Rank: rank, AccountID: winner, Amount: amount.StringFixed(2)}

				_, err := applyLedger(ctx, tx, s.accountRepo, s.cfg.PoolAccountID,
					amount, model.DirectionDebit, model.ReasonContestPrize, nil)
				if err != nil {
					// An exhausted pool skips this payout and reports it;
					// settlement itself goes on.
					if errors.Is(err, model.ErrInsufficientFunds) {
						s.logger.Warn().Int64("contest_id", contestID).Int("rank", rank).
							Str("amount", amount.String()).
							Msg("pool account cannot cover payout, skipping")
						resp.SkippedPayouts = append(resp.SkippedPayouts, payout)
						continue
					}
					return fmt.Errorf("debit pool account: %w", err)
				}
				if _, err := applyLedger(ctx, tx, s.accountRepo, winner,
					amount, model.DirectionCredit, model.ReasonContestPrize, nil); err != nil {
					return fmt.Errorf("credit winner: %w", err)
				}

				resp.Payouts = append(resp.Payouts, payout)
				awardEvents = append(awardEvents, events.PrizeAwarded{
					ContestID: contestID,
					AccountID: winner,
					Rank:      rank,
					Amount:    amount.StringFixed(2),
				})
			}
		}

		if err := s.contestRepo.MarkSettled(ctx, contestID, winnerID, tx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("contest_id", contestID).
		Int("submissions", submissions).
		Int("payouts", len(resp.Payouts)).
		Int("skipped", len(resp.SkippedPayouts)).
		Msg("contest settled")

	s.publish(ctx, events.TopicContestSettled, events.ContestSettled{
		ContestID:   contestID,
		WinnerID:    resp.WinnerID,
		Submissions: submissions,
	})
	for _, ev := range awardEvents {
		s.publish(ctx, events.TopicPrizeAwarded, ev)
	}

	return resp, nil
}

// publish is fire-and-forget: notification failures never affect settlement.
func (s *SettlementServiceImpl) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}
