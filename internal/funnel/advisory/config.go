package advisory

import (
	"time"

	"compound-site/internal/common/config"
)

type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	DemoMode  bool
	MockDelay time.Duration
}

func LoadConfig(cfg config.AdvisoryConfig) *Config {
	return &Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		Timeout:   config.GetDuration(cfg.Timeout),
		DemoMode:  cfg.DemoMode,
		MockDelay: config.GetDuration(cfg.MockDelay),
	}
}
