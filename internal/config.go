package internal

import (
	"chat-relay/repositories"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	MailboxCapacity   int           `env:"MAILBOX_CAPACITY,default=256" validate:"gte=0"`
	EnqueueTimeout    time.Duration `env:"ENQUEUE_TIMEOUT,default=2s" validate:"gt=0"`
	FanoutParallelism int           `env:"FANOUT_PARALLELISM,default=0" validate:"gte=0"`
	AllowSelfSend     bool          `env:"ALLOW_SELF_SEND,default=false"`
	GatewayRatePerSec float64       `env:"GATEWAY_RATE_PER_SEC,default=0" validate:"gte=0"`
	GatewayBurst      int           `env:"GATEWAY_BURST,default=1" validate:"gte=0"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	JournalBackend    string        `env:"JOURNAL_BACKEND,default=none" validate:"oneof=none badger sqlite"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,default=./data/badger" validate:"required_if=JournalBackend badger"`
	SQLiteFilepath    string        `env:"SQLITE_FILEPATH,default=./data/journal.db" validate:"required_if=JournalBackend sqlite"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	MetricsAddr       string        `env:"METRICS_ADDR"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=5s" validate:"gt=0"`
	Colours           bool          `env:"COLOURS,default=true"`
}

func (c Config) Journal() repositories.JournalOptions {
	return repositories.JournalOptions{
		Backend:        c.JournalBackend,
		BadgerFilepath: c.BadgerFilepath,
		SQLiteFilepath: c.SQLiteFilepath,
		LimitMessages:  c.LimitMessages,
	}
}

// LoadConfig reads an optional .env file then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
