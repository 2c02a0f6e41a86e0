package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

var (
	errMissingDSN      = errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")
	errInvalidRakeRate = errors.New("RAKE_RATE must be within [0, 1)")
)

type MatchConfig struct {
	QueueTimeout time.Duration `env:"QUEUE_TIMEOUT" envDefault:"15s"`
	RoundTimeout time.Duration `env:"ROUND_TIMEOUT" envDefault:"2s"`
	WinThreshold int           `env:"WIN_THRESHOLD" envDefault:"2"`
	RakeRate     string        `env:"RAKE_RATE" envDefault:"0.10"`
	EloK         int           `env:"ELO_K" envDefault:"32"`

	RateWindow time.Duration `env:"MATCH_RATE_WINDOW" envDefault:"60s"`
	RateLimit  int           `env:"MATCH_RATE_LIMIT" envDefault:"10"`

	FarmLookback  int `env:"FARM_LOOKBACK" envDefault:"5"`
	FarmThreshold int `env:"FARM_THRESHOLD" envDefault:"3"`

	WithdrawMin      int64 `env:"WITHDRAW_MIN" envDefault:"100"`
	WithdrawDailyCap int64 `env:"WITHDRAW_DAILY_CAP" envDefault:"5000"`

	StartingBalance int64 `env:"STARTING_BALANCE" envDefault:"1000"`
}

func LoadMatch() (MatchConfig, error) {
	var cfg MatchConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if _, err := cfg.Rake(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Rake parses RakeRate as an exact decimal.
func (c MatchConfig) Rake() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.RakeRate)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, errInvalidRakeRate
	}
	return d, nil
}
