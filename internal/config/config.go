package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

// Config holds the runtime tunables of a stream session.
type Config struct {
	CatalogPath    string        `env:"GHOSTSTREAM_CATALOG" envDefault:"catalog.json"`
	Seed           int64         `env:"GHOSTSTREAM_SEED" envDefault:"0"` // 0 = time-based
	MinActiveUsers int           `env:"GHOSTSTREAM_MIN_ACTIVE_USERS" envDefault:"0"`
	RetryMaxWait   time.Duration `env:"GHOSTSTREAM_RETRY_MAX_WAIT" envDefault:"5s"`
	BaseChatRate   float64       `env:"GHOSTSTREAM_CHAT_RATE" envDefault:"1.5"`
	TickInterval   time.Duration `env:"GHOSTSTREAM_TICK" envDefault:"500ms"`
	IdleInterval   time.Duration `env:"GHOSTSTREAM_IDLE_TICK" envDefault:"6s"`
}

// New parses the environment into a Config.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
