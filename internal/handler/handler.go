package handler

import (
	"errors"
	"net/http"

	"contest-engine/internal/model"
	"contest-engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handler struct {
	ledgerService     service.LedgerService
	testBankService   service.TestBankService
	contestService    service.ContestService
	submissionService service.SubmissionService
	settlementService service.SettlementService
	webhookSecret     string
	limiter           *RateLimiter
	logger            zerolog.Logger
}

func NewHandler(
	ledgerService service.LedgerService,
	testBankService service.TestBankService,
	contestService service.ContestService,
	submissionService service.SubmissionService,
	settlementService service.SettlementService,
	webhookSecret string,
	limiter *RateLimiter,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		ledgerService:     ledgerService,
		testBankService:   testBankService,
		contestService:    contestService,
		submissionService: submissionService,
		settlementService: settlementService,
		webhookSecret:     webhookSecret,
		limiter:           limiter,
		logger:            logger,
	}
}

func (h *Handler) SetupRoutes() *gin.Engine {
	router := gin.New()

	// Middlewares
	router.Use(
		RequestIDMiddleware(),
		LoggingMiddleware(),
		gin.Recovery(),
	)

	// Swagger and health checks
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhooks authenticate by signature, not by account headers
	router.POST("/webhooks/payments", h.PaymentWebhook)

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(h.limiter.Middleware(), AuthMiddleware())

	contests := v1.Group("/contests")
	contests.POST("", AdminMiddleware(), h.CreateContest)
	contests.GET("", h.ListContests)
	contests.GET("/:id", h.GetContest)
	contests.POST("/:id/open", AdminMiddleware(), h.OpenContest)
	contests.POST("/:id/join", h.JoinContest)
	contests.POST("/:id/close", AdminMiddleware(), h.CloseContest)

	results := v1.Group("/results")
	results.POST("", h.SubmitResult)
	results.GET("/mine", h.MyResults)
	results.GET("/leaderboard/:id", h.Leaderboard)

	accounts := v1.Group("/accounts")
	accounts.GET("/:id/balance", h.GetBalance)
	accounts.GET("/:id/ledger", h.GetLedgerEntries)
	accounts.POST("/:id/credit", AdminMiddleware(), h.CreditAccount)
	accounts.POST("/:id/debit", AdminMiddleware(), h.DebitAccount)

	questions := v1.Group("/questions")
	questions.POST("", AdminMiddleware(), h.CreateQuestion)

	tests := v1.Group("/tests")
	tests.POST("", AdminMiddleware(), h.CreateTest)
	tests.POST("/:id/questions", AdminMiddleware(), h.AppendQuestion)
	tests.POST("/:id/finalize", AdminMiddleware(), h.FinalizeTest)
	tests.GET("", h.ListActiveTests)
	tests.GET("/:id", h.GetTest)

	return router
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_SERVER_ERROR"

	resp := model.ErrorResponse{Msg: err.Error()}

	switch {
	case errors.Is(err, model.ErrInvalidAmount):
		status = http.StatusBadRequest
		code = "INVALID_AMOUNT"
	case errors.Is(err, model.ErrInvalidDirection):
		status = http.StatusBadRequest
		code = "INVALID_DIRECTION"
	case errors.Is(err, model.ErrInvalidQuestion):
		status = http.StatusBadRequest
		code = "INVALID_QUESTION"
	case errors.Is(err, model.ErrInvalidDifficulty):
		status = http.StatusBadRequest
		code = "INVALID_DIFFICULTY"
	case errors.Is(err, model.ErrInvalidSignature):
		status = http.StatusBadRequest
		code = "INVALID_SIGNATURE"
	case errors.Is(err, model.ErrInsufficientFunds):
		status = http.StatusBadRequest
		code = "INSUFFICIENT_FUNDS"
	case errors.Is(err, model.ErrContestNotLive):
		status = http.StatusBadRequest
		code = "CONTEST_NOT_LIVE"
	case errors.Is(err, model.ErrContestFull):
		status = http.StatusBadRequest
		code = "CONTEST_FULL"
	case errors.Is(err, model.ErrAlreadyJoined):
		status = http.StatusBadRequest
		code = "ALREADY_JOINED"
	case errors.Is(err, model.ErrAlreadySubmitted):
		status = http.StatusBadRequest
		code = "ALREADY_SUBMITTED"
	case errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusBadRequest
		code = "INVALID_TRANSITION"
	case errors.Is(err, model.ErrTestFinalized):
		status = http.StatusBadRequest
		code = "TEST_FINALIZED"
	case errors.Is(err, model.ErrTestNotFinalized):
		status = http.StatusBadRequest
		code = "TEST_NOT_FINALIZED"
	case errors.Is(err, model.ErrEmptyTest):
		status = http.StatusBadRequest
		code = "EMPTY_TEST"
	case errors.Is(err, model.ErrInsufficientQuestions):
		status = http.StatusBadRequest
		code = "INSUFFICIENT_QUESTIONS"
	case errors.Is(err, model.ErrNotJoined):
		status = http.StatusForbidden
		code = "NOT_JOINED"
	case errors.Is(err, model.ErrAccountBlocked):
		status = http.StatusForbidden
		code = "ACCOUNT_BLOCKED"
	case errors.Is(err, model.ErrAccountNotFound):
		status = http.StatusNotFound
		code = "ACCOUNT_NOT_FOUND"
	case errors.Is(err, model.ErrQuestionNotFound):
		status = http.StatusNotFound
		code = "QUESTION_NOT_FOUND"
	case errors.Is(err, model.ErrTestNotFound):
		status = http.StatusNotFound
		code = "TEST_NOT_FOUND"
	case errors.Is(err, model.ErrContestNotFound):
		status = http.StatusNotFound
		code = "CONTEST_NOT_FOUND"
	case errors.Is(err, model.ErrRateLimited):
		status = http.StatusTooManyRequests
		code = "RATE_LIMITED"
	}
	resp.Code = code

	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("internal server error")
	}

	c.JSON(status, resp)
}
