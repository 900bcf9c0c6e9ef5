package newsletter

import (
	"time"

	"compound-site/internal/common/config"
)

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func LoadConfig(cfg config.NewsletterConfig) *Config {
	return &Config{
		Endpoint: cfg.Endpoint,
		Timeout:  config.GetDuration(cfg.Timeout),
	}
}
