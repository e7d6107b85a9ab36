package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"contest-engine/internal/config"
	"contest-engine/internal/database"
	"contest-engine/internal/events"
	kafkaevents "contest-engine/internal/events/kafka"
	"contest-engine/internal/handler"
	"contest-engine/internal/logger"
	"contest-engine/internal/repository/postgres"
	"contest-engine/internal/service"
	"contest-engine/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	_ "contest-engine/docs"
)

// NewServeCmd builds the CLI subcommand to start the API server.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the contest API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// @title Contest Engine API
// @version 1.0
// @description Quiz contest platform with ledger-backed balances
// @host localhost:8080
// @BasePath /api/v1
func runServer(parentCtx context.Context) error {
	log := logger.New(true)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbCtx, cancel := context.WithTimeout(parentCtx, 10*time.Second)
	defer cancel()

	dbPool, err := database.NewPool(dbCtx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer dbPool.Close()

	// Repositories
	accountRepo := postgres.NewAccountRepository(dbPool)
	questionRepo := postgres.NewQuestionRepository(dbPool)
	testRepo := postgres.NewTestRepository(dbPool)
	contestRepo := postgres.NewContestRepository(dbPool)
	submissionRepo := postgres.NewSubmissionRepository(dbPool)

	// Transaction manager used by services
	txManager := postgres.NewTransactionManager(dbPool)

	// Event publisher; without brokers, settlement events go nowhere
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Brokers[0] != "" {
		kp := kafkaevents.NewPublisher(cfg.Kafka.Brokers)
		defer kp.Close()
		publisher = kp
	}

	// Services
	ledgerService := service.NewLedgerService(accountRepo, txManager, log)
	testBankService := service.NewTestBankService(questionRepo, testRepo, txManager, log)
	contestService := service.NewContestService(contestRepo, testRepo, accountRepo, txManager, cfg.Contest, log)
	submissionService := service.NewSubmissionService(submissionRepo, contestRepo, testRepo, txManager, log)
	settlementService := service.NewSettlementService(contestRepo, submissionRepo, accountRepo, txManager, publisher, cfg.Contest, log)
	rotationService := service.NewRotationService(settlementService, testBankService, contestService, contestRepo, cfg.Contest, log)

	// Root context to be canceled on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Daily rotation worker
	if cfg.Scheduler.Enabled {
		rotationWorker := worker.NewRotationWorker(rotationService, cfg.Scheduler.RotationInterval, log)
		rotationWorker.Start(ctx)
		defer rotationWorker.Stop()
	}

	// Rate limiter; without redis, requests pass through
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	limiter := handler.NewRateLimiter(redisClient, cfg.Redis.RateLimit, cfg.Redis.RateLimitWindow, log)

	// http handler
	h := handler.NewHandler(ledgerService, testBankService, contestService,
		submissionService, settlementService, cfg.Webhook.PaymentSecret, limiter, log)
	router := h.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Str("port", cfg.Server.Port).Msg("Server started")

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}
	log.Info().Msg("Shutdown complete")
	return nil
}
