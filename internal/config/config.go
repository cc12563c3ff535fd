// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported upstream providers.
const (
	ProviderGitLab = "gitlab"
	ProviderGitHub = "github"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
	DBURL          string `mapstructure:"DB_URL"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	UpstreamProvider   string        `mapstructure:"UPSTREAM_PROVIDER"`
	GitLabBaseURL      string        `mapstructure:"GITLAB_BASE_URL"`
	GitHubBaseURL      string        `mapstructure:"GITHUB_BASE_URL"`
	UpstreamTimeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	UpstreamMaxRetries int           `mapstructure:"UPSTREAM_MAX_RETRIES"`
	CommitPageLimit    int           `mapstructure:"COMMIT_PAGE_LIMIT"`
	CacheTTL           time.Duration `mapstructure:"CACHE_TTL"`

	GitLabClientID     string `mapstructure:"GITLAB_CLIENT_ID"`
	GitLabClientSecret string `mapstructure:"GITLAB_CLIENT_SECRET"`
	GitLabRedirectURI  string `mapstructure:"GITLAB_REDIRECT_URI"`

	OpenAIAPIKey  string  `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string  `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string  `mapstructure:"OPENAI_MODEL"`
	AIMaxTokens   int     `mapstructure:"AI_MAX_TOKENS"`
	AITemperature float32 `mapstructure:"AI_TEMPERATURE"`

	ServiceToken      string        `mapstructure:"SERVICE_TOKEN"`
	SyncRepositoryIDs []string      `mapstructure:"SYNC_REPOSITORY_IDS"`
	SyncInterval      time.Duration `mapstructure:"SYNC_INTERVAL"`
}

var defaults = map[string]any{
	"LOG_LEVEL":            "info",
	"HTTP_ADDR":            ":8080",
	"MIGRATIONS_PATH":      "file://migrations",
	"UPSTREAM_PROVIDER":    ProviderGitLab,
	"GITLAB_BASE_URL":      "https://gitlab.com",
	"GITHUB_BASE_URL":      "",
	"UPSTREAM_TIMEOUT":     "15s",
	"UPSTREAM_MAX_RETRIES": 3,
	"COMMIT_PAGE_LIMIT":    1,
	"CACHE_TTL":            "5m",
	"OPENAI_MODEL":         "gpt-4",
	"AI_MAX_TOKENS":        200,
	"AI_TEMPERATURE":       0.7,
	"SYNC_INTERVAL":        "1h",
}

// keys without a default still need binding so AutomaticEnv picks them up on Unmarshal.
var unsetKeys = []string{
	"DB_URL",
	"GITLAB_CLIENT_ID",
	"GITLAB_CLIENT_SECRET",
	"GITLAB_REDIRECT_URI",
	"OPENAI_API_KEY",
	"OPENAI_BASE_URL",
	"SERVICE_TOKEN",
	"SYNC_REPOSITORY_IDS",
}

// LoadConfig reads configuration from an optional .env file in dir and environment variables.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	// Set default values
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read .env file: %w", err)
		}
	}

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range unsetKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.SyncRepositoryIDs = splitList(cfg.SyncRepositoryIDs)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	switch c.UpstreamProvider {
	case ProviderGitLab, ProviderGitHub:
	default:
		return fmt.Errorf("UPSTREAM_PROVIDER must be %q or %q, got %q", ProviderGitLab, ProviderGitHub, c.UpstreamProvider)
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be a positive duration")
	}
	if c.UpstreamMaxRetries < 0 {
		return errors.New("UPSTREAM_MAX_RETRIES must not be negative")
	}
	if c.CommitPageLimit <= 0 {
		return errors.New("COMMIT_PAGE_LIMIT must be at least 1")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be a positive duration")
	}
	if c.AITemperature < 0 || c.AITemperature > 2 {
		return errors.New("AI_TEMPERATURE must be between 0 and 2")
	}
	if len(c.SyncRepositoryIDs) > 0 {
		if c.ServiceToken == "" {
			return errors.New("SERVICE_TOKEN is required when SYNC_REPOSITORY_IDS is set")
		}
		if c.SyncInterval <= 0 {
			return errors.New("SYNC_INTERVAL must be a positive duration")
		}
	}
	return nil
}

// splitList accepts both space separated values from viper and comma separated env values.
func splitList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
