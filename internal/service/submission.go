package service

import (
	"context"
	"fmt"

	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type SubmissionServiceImpl struct {
	submissionRepo repository.SubmissionRepository
	contestRepo    repository.ContestRepository
	testRepo       repository.TestRepository
	dbManager      repository.DBManager
	logger         zerolog.Logger
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	contestRepo repository.ContestRepository,
	testRepo repository.TestRepository,
	dbManager repository.DBManager,
	logger zerolog.Logger,
) SubmissionService {
	return &SubmissionServiceImpl{
		submissionRepo: submissionRepo,
		contestRepo:    contestRepo,
		testRepo:       testRepo,
		dbManager:      dbManager,
		logger:         logger,
	}
}

// scoreAnswers compares each selected option against the embedded question.
// A missing or out-of-range selection counts as wrong, never as an error.
func scoreAnswers(questions []model.TestQuestion, answers []*int) (int, []model.AnswerDetail) {
	score := 0
	details := make([]model.AnswerDetail, 0, len(questions))

	for i, q := range questions {
		var selected *int
		if i < len(answers) {
			selected = answers[i]
		}

		detail := model.AnswerDetail{
			Question:      q.Text,
			CorrectAnswer: q.Options[q.CorrectOption],
			UserAnswer:    model.NotAttempted,
			Status:        model.AnswerWrong,
		}
		if selected != nil && *selected >= 0 && *selected < len(q.Options) {
			detail.UserAnswer = q.Options[*selected]
			if *selected == q.CorrectOption {
				detail.Status = model.AnswerRight
				score++
			}
		}
		details = append(details, detail)
	}
	return score, details
}

func (s *SubmissionServiceImpl) Submit(ctx context.Context, accountID int64, req *model.SubmitResultRequest) (*model.SubmitResultResponse, error) {
	timeTaken := req.TimeTaken
	if timeTaken < 0 {
		timeTaken = 0
	}

	var result *model.SubmitResultResponse

	err := s.dbManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Shared lock: concurrent submissions proceed in parallel, but a
		// settlement holding the exclusive lock shuts the door first.
		contest, err := s.contestRepo.GetContestForShare(ctx, req.ContestID, tx)
		if err != nil {
			return err
		}
		if contest.Status != model.ContestLive {
			return model.ErrContestNotLive
		}

		joined, err := s.contestRepo.HasEntry(ctx, req.ContestID, accountID, tx)
		if err != nil {
			return fmt.Errorf("check contest entry: %w", err)
		}
		if !joined {
			return model.ErrNotJoined
		}

		test, err := s.testRepo.GetTest(ctx, contest.TestID, tx)
		if err != nil {
			return err
		}

		score, details := scoreAnswers(test.Questions, req.Answers)

		submission := &model.Submission{
			AccountID:        accountID,
			TestID:           test.ID,
			ContestID:        contest.ID,
			Score:            score,
			TotalQuestions:   len(test.Questions),
			Answers:          details,
			TimeTakenSeconds: timeTaken,
		}
		// The (contest, account) unique constraint makes re-submission
		// impossible even when duplicates race.
		if err := s.submissionRepo.InsertSubmission(ctx, submission, tx); err != nil {
			return err
		}

		result = &model.SubmitResultResponse{
			Msg:            "result saved successfully",
			ResultID:       submission.ID,
			Score:          score,
			TotalQuestions: submission.TotalQuestions,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("contest_id", req.ContestID).Int64("account_id", accountID).
		Int("score", result.Score).Int("total", result.TotalQuestions).
		Msg("result submitted")
	return result, nil
}

func (s *SubmissionServiceImpl) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*model.Submission, error) {
	submissions, err := s.submissionRepo.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

func (s *SubmissionServiceImpl) Leaderboard(ctx context.Context, contestID int64, limit int) ([]*model.Submission, error) {
	if _, err := s.contestRepo.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	ranked, err := s.submissionRepo.ListByContestRanked(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("list ranked submissions: %w", err)
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
