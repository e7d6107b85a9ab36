package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Contest   ContestConfig
	Scheduler SchedulerConfig
	Webhook   WebhookConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string        `env:"DB_NAME" envDefault:"contests"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`
}

// RedisConfig drives the rate limiter. An empty Addr disables limiting.
type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR" envDefault:""`
	Password        string        `env:"REDIS_PASSWORD" envDefault:""`
	DB              int           `env:"REDIS_DB" envDefault:"0"`
	RateLimit       int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
}

// KafkaConfig drives the notification publisher. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:""`
}

type ContestConfig struct {
	// PoolAccountID designates the pooled-funds account that collects entry
	// fees and funds payouts. Injected here rather than looked up by role.
	PoolAccountID int64 `env:"CONTEST_POOL_ACCOUNT_ID" envDefault:"1"`

	// PrizeSplit holds percentages per rank, best rank first. Shares of
	// unfilled ranks are forfeited, not redistributed.
	PrizeSplit []int `env:"CONTEST_PRIZE_SPLIT" envSeparator:"," envDefault:"60,30,10"`

	DailyPrizePool      string `env:"CONTEST_DAILY_PRIZE_POOL" envDefault:"100"`
	DailyEntryFee       string `env:"CONTEST_DAILY_ENTRY_FEE" envDefault:"10"`
	DailyMaxSpots       int    `env:"CONTEST_DAILY_MAX_SPOTS" envDefault:"100"`
	QuestionsPerTest    int    `env:"CONTEST_QUESTIONS_PER_TEST" envDefault:"5"`
	TestDurationMinutes int    `env:"CONTEST_TEST_DURATION_MINUTES" envDefault:"10"`
}

type SchedulerConfig struct {
	Enabled          bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	RotationInterval time.Duration `env:"SCHEDULER_ROTATION_INTERVAL" envDefault:"24h"`
}

type WebhookConfig struct {
	PaymentSecret string `env:"PAYMENT_WEBHOOK_SECRET" envDefault:""`
}

func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Contest.PrizeSplit) == 0 {
		return nil, fmt.Errorf("prize split must name at least one rank")
	}
	return cfg, nil
}
