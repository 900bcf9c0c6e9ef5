package search

import (
	"time"

	"compound-site/internal/common/config"
)

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig(cfg config.BlogConfig) *Config {
	return &Config{
		Index:   cfg.SearchIndex,
		Timeout: config.GetDuration(cfg.SearchTimeout),
	}
}
