package service

import (
	"context"
	"fmt"

	"contest-engine/internal/model"
	"contest-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const optionsPerQuestion = 4

type TestBankServiceImpl struct {
	questionRepo repository.QuestionRepository
	testRepo     repository.TestRepository
	dbManager    repository.DBManager
	logger       zerolog.Logger
}

func NewTestBankService(
	questionRepo repository.QuestionRepository,
	testRepo repository.TestRepository,
	dbManager repository.DBManager,
	logger zerolog.Logger,
) TestBankService {
	return &TestBankServiceImpl{
		questionRepo: questionRepo,
		testRepo:     testRepo,
		dbManager:    dbManager,
		logger:       logger,
	}
}

func (s *TestBankServiceImpl) CreateQuestion(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	if req.Text == "" || len(req.Options) != optionsPerQuestion {
		return nil, fmt.Errorf("%w: a question needs text and exactly %d options", model.ErrInvalidQuestion, optionsPerQuestion)
	}
	if req.CorrectOption == nil || *req.CorrectOption < 0 || *req.CorrectOption >= optionsPerQuestion {
		return nil, fmt.Errorf("%w: correct option out of range", model.ErrInvalidQuestion)
	}
	difficulty, err := model.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	q := &model.Question{
		Text:          req.Text,
		Options:       req.Options,
		CorrectOption: *req.CorrectOption,
		Difficulty:    difficulty,
	}
	if err := s.questionRepo.InsertQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *TestBankServiceImpl) SampleQuestions(ctx context.Context, n int) ([]*model.Question, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample size must be positive", model.ErrInvalidAmount)
	}
	questions, err := s.questionRepo.SampleQuestions(ctx, n)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *TestBankServiceImpl) CreateDraftTest(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Questions:       []model.TestQuestion{},
		IsDraft:         true,
	}
	if err := s.testRepo.InsertTest(ctx, t); err != nil {
		return nil, fmt.Errorf("insert test: %w", err)
	}
	return t, nil
}

// AppendQuestion embeds a bank question into a draft test by value, so later
// bank edits never change a finalized test.
func (s *TestBankServiceImpl) AppendQuestion(ctx context.Context, testID, questionID int64) (*model.Test, error) {
	var result *model.Test

	err := s.dbManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		t, err := s.testRepo.GetTestForUpdate(ctx, testID, tx)
		if err != nil {
			return err
		}
		if !t.IsDraft {
			return model.ErrTestFinalized
		}

		q, err := s.questionRepo.GetQuestion(ctx, questionID, tx)
		if err != nil {
			return err
		}

		updated := append(t.Questions, model.TestQuestion{
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
		})
		if err := s.testRepo.UpdateTestQuestions(ctx, testID, updated, tx); err != nil {
			return fmt.Errorf("update test questions: %w", err)
		}

		t.Questions = updated
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TestBankServiceImpl) FinalizeTest(ctx context.Context, testID int64) (*model.Test, error) {
	var result *model.Test

	err := s.dbManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		t, err := s.testRepo.GetTestForUpdate(ctx, testID, tx)
		if err != nil {
			return err
		}
		if !t.IsDraft {
			return model.ErrTestFinalized
		}
		if len(t.Questions) == 0 {
			return model.ErrEmptyTest
		}

		flipped, err := s.testRepo.FinalizeTest(ctx, testID, tx)
		if err != nil {
			return fmt.Errorf("finalize test: %w", err)
		}
		if !flipped {
			return model.ErrTestFinalized
		}

		t.IsDraft = false
		t.IsActive = true
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("test_id", testID).Int("questions", len(result.Questions)).Msg("test finalized")
	return result, nil
}

func (s *TestBankServiceImpl) DeactivateActiveTests(ctx context.Context) (int64, error) {
	n, err := s.testRepo.DeactivateActiveTests(ctx)
	if err != nil {
		return 0, fmt.Errorf("deactivate tests: %w", err)
	}
	return n, nil
}

func (s *TestBankServiceImpl) GetTest(ctx context.Context, testID int64) (*model.Test, error) {
	return s.testRepo.GetTest(ctx, testID)
}

func (s *TestBankServiceImpl) ListActiveTests(ctx context.Context) ([]*model.Test, error) {
	return s.testRepo.ListActiveTests(ctx)
}
