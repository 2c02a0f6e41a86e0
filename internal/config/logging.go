package config

import (
	"errors"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

var errInvalidLogLevel = errors.New("LOG_LEVEL must be one of trace, debug, info, warn, error")

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
	// Service tags every line so arena-server and rps-bot logs can share a sink.
	Service string `env:"LOG_SERVICE" envDefault:"arena-server"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if _, ok := cfg.parseLevel(); !ok {
		return cfg, errInvalidLogLevel
	}
	return cfg, nil
}

// ZerologLevel returns the configured level, or info when it is unset or
// unknown.
func (c LogConfig) ZerologLevel() zerolog.Level {
	if lvl, ok := c.parseLevel(); ok {
		return lvl
	}
	return zerolog.InfoLevel
}

func (c LogConfig) parseLevel() (zerolog.Level, bool) {
	v := strings.ToLower(strings.TrimSpace(c.Level))
	if v == "" {
		return zerolog.InfoLevel, true
	}
	switch v {
	case "trace", "debug", "info", "warn", "error":
	default:
		return zerolog.InfoLevel, false
	}
	lvl, err := zerolog.ParseLevel(v)
	if err != nil {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}
