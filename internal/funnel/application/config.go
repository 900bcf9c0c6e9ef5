package application

import (
	"time"

	"compound-site/internal/common/config"
)

type Config struct {
	SubmitEndpoint       string
	Timeout              time.Duration
	DraftTTL             time.Duration
	EnforceSelectionCaps bool
}

func LoadConfig(cfg config.ApplicationConfig) *Config {
	return &Config{
		SubmitEndpoint:       cfg.SubmitEndpoint,
		Timeout:              config.GetDuration(cfg.Timeout),
		DraftTTL:             config.GetDuration(cfg.DraftTTL),
		EnforceSelectionCaps: cfg.EnforceSelectionCaps,
	}
}
