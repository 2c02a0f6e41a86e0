package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	BaseURL  string `env:"ARENA_URL" envDefault:"http://localhost:8080"`
	PlayerID string `env:"PLAYER_ID,required,notEmpty"`
	Stake    int64  `env:"BOT_STAKE" envDefault:"100"`
	Matches  int    `env:"BOT_MATCHES" envDefault:"1"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
