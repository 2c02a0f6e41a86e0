package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string   `env:"ADMIN_API_KEY"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	QueueBackend  string `env:"QUEUE_BACKEND" envDefault:"memory"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisPrefix   string `env:"REDIS_QUEUE_PREFIX" envDefault:"arena:queue"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"arena.match.finished"`

	EventWorkers      int `env:"EVENT_WORKERS" envDefault:"2"`
	EventBuffer       int `env:"EVENT_BUFFER" envDefault:"1024"`
	EventRetryMax     int `env:"EVENT_RETRY_MAX" envDefault:"3"`
	EventRetryBase    int `env:"EVENT_RETRY_BASE_MS" envDefault:"200"`
	EventDrainTimeout int `env:"EVENT_DRAIN_TIMEOUT_MS" envDefault:"5000"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.StoreDriver == "postgres" && cfg.PostgresDSN == "" {
		return cfg, errMissingDSN
	}
	return cfg, nil
}
