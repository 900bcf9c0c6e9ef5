package contact

import (
	"time"

	"compound-site/internal/common/config"
)

type Config struct {
	Enabled       bool
	FromEmail     string
	ToEmail       string
	AlertTopicARN string
	Timeout       time.Duration
}

func LoadConfig(cfg config.ContactConfig) *Config {
	return &Config{
		Enabled:       cfg.Enabled,
		FromEmail:     cfg.FromEmail,
		ToEmail:       cfg.ToEmail,
		AlertTopicARN: cfg.AlertTopicARN,
		Timeout:       config.GetDuration(cfg.Timeout),
	}
}
