package web

import (
	"time"

	"compound-site/internal/common/config"
)

type Config struct {
	SecureCookies bool
	// CookieMaxAge bounds the application cookie; it follows the draft TTL.
	CookieMaxAge time.Duration
	ReadyTimeout time.Duration
	MaxBodyBytes int64
}

func LoadConfig(server config.ServerConfig, app config.ApplicationConfig) *Config {
	return &Config{
		SecureCookies: server.SecureCookies,
		CookieMaxAge:  config.GetDuration(app.DraftTTL),
		ReadyTimeout:  2 * time.Second,
		MaxBodyBytes:  1 << 20,
	}
}
