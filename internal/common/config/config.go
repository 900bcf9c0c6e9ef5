package config

import "fmt"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Application ApplicationConfig `mapstructure:"application"`
	Advisory    AdvisoryConfig    `mapstructure:"advisory"`
	Newsletter  NewsletterConfig  `mapstructure:"newsletter"`
	Contact     ContactConfig     `mapstructure:"contact"`
	Blog        BlogConfig        `mapstructure:"blog"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	SecureCookies   bool   `mapstructure:"secure_cookies"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// Enabled reports whether the submission audit database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether drafts go to Redis instead of process memory.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

type ApplicationConfig struct {
	SubmitEndpoint       string `mapstructure:"submit_endpoint"`
	Timeout              int    `mapstructure:"timeout"`   // milliseconds
	DraftTTL             int    `mapstructure:"draft_ttl"` // milliseconds
	EnforceSelectionCaps bool   `mapstructure:"enforce_selection_caps"`
}

type AdvisoryConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
	DemoMode  bool   `mapstructure:"demo_mode"`
	MockDelay int    `mapstructure:"mock_delay"` // milliseconds
}

type NewsletterConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

type ContactConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Region        string `mapstructure:"region"`
	FromEmail     string `mapstructure:"from_email"`
	ToEmail       string `mapstructure:"to_email"`
	AlertTopicARN string `mapstructure:"alert_topic_arn"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type BlogConfig struct {
	ContentDir    string `mapstructure:"content_dir"`
	SearchIndex   string `mapstructure:"search_index"`
	SearchTimeout int    `mapstructure:"search_timeout"` // milliseconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
