// Package config loads settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sponte/internal/logger"

	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when Load gets no path.
const DefaultFile = "sponte.yaml"

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// SecretKey derives the key that seals OAuth tokens.
	SecretKey string
	// SystemSecret guards /internal routes. Empty disables them.
	SystemSecret string

	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string

	ResendAPIKey  string
	ResendBaseURL string
	EmailFrom     string

	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURL     string
	GoogleBusinessBaseURL string

	FrontendURL string
	CORSOrigins []string

	SchedulerEnabled  bool
	SchedulerLocation *time.Location
	StaleTaskTimeout  time.Duration

	RateLimit      float64
	RateLimitBurst int

	OTelEndpoint string
	LogLevel     string
}

// env lists the variables each key is read from, in priority order.
var env = map[string][]string{
	"database_url":             {"DATABASE_URL"},
	"http_port":                {"PORT", "HTTP_PORT"},
	"secret_key":               {"SECRET_KEY"},
	"system_secret":            {"SYSTEM_SECRET"},
	"anthropic_api_key":        {"ANTHROPIC_API_KEY"},
	"anthropic_base_url":       {"ANTHROPIC_BASE_URL"},
	"anthropic_model":          {"ANTHROPIC_MODEL"},
	"resend_api_key":           {"RESEND_API_KEY"},
	"resend_base_url":          {"RESEND_BASE_URL"},
	"email_from":               {"EMAIL_FROM"},
	"google_client_id":         {"GOOGLE_CLIENT_ID"},
	"google_client_secret":     {"GOOGLE_CLIENT_SECRET"},
	"google_redirect_url":      {"GOOGLE_REDIRECT_URI", "GOOGLE_REDIRECT_URL"},
	"google_business_base_url": {"GOOGLE_BUSINESS_BASE_URL"},
	"frontend_url":             {"FRONTEND_URL"},
	"cors_origins":             {"CORS_ORIGINS"},
	"scheduler_enabled":        {"SCHEDULER_ENABLED"},
	"scheduler_timezone":       {"SCHEDULER_TIMEZONE"},
	"stale_task_timeout":       {"STALE_TASK_TIMEOUT"},
	"rate_limit":               {"RATE_LIMIT"},
	"rate_limit_burst":         {"RATE_LIMIT_BURST"},
	"otel_endpoint":            {"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_ENDPOINT"},
	"log_level":                {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8000)
	v.SetDefault("anthropic_model", "claude-sonnet-4-5")
	v.SetDefault("email_from", "Sponte <reports@sponte.app>")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_timezone", "UTC")
	v.SetDefault("stale_task_timeout", "30m")
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("log_level", "info")
}

// Load reads configuration. path names a YAML file; when empty, DefaultFile is
// used if it exists. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:           v.GetString("database_url"),
		SecretKey:             v.GetString("secret_key"),
		SystemSecret:          v.GetString("system_secret"),
		AnthropicAPIKey:       v.GetString("anthropic_api_key"),
		AnthropicBaseURL:      v.GetString("anthropic_base_url"),
		AnthropicModel:        v.GetString("anthropic_model"),
		ResendAPIKey:          v.GetString("resend_api_key"),
		ResendBaseURL:         v.GetString("resend_base_url"),
		EmailFrom:             v.GetString("email_from"),
		GoogleClientID:        v.GetString("google_client_id"),
		GoogleClientSecret:    v.GetString("google_client_secret"),
		GoogleRedirectURL:     v.GetString("google_redirect_url"),
		GoogleBusinessBaseURL: v.GetString("google_business_base_url"),
		FrontendURL:           strings.TrimRight(v.GetString("frontend_url"), "/"),
		CORSOrigins:           splitList(v.GetStringSlice("cors_origins")),
		OTelEndpoint:          v.GetString("otel_endpoint"),
		LogLevel:              strings.ToLower(v.GetString("log_level")),
	}

	if cfg.DatabaseURL == "" {
		return nil, required("database_url")
	}
	if cfg.SecretKey == "" {
		return nil, required("secret_key")
	}

	port, err := strconv.Atoi(v.GetString("http_port"))
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", v.GetString("http_port"))
	}
	cfg.HTTPPort = port

	enabled, err := strconv.ParseBool(v.GetString("scheduler_enabled"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_ENABLED: %w", err)
	}
	cfg.SchedulerEnabled = enabled

	loc, err := time.LoadLocation(v.GetString("scheduler_timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}
	cfg.SchedulerLocation = loc

	stale, err := time.ParseDuration(v.GetString("stale_task_timeout"))
	if err != nil || stale <= 0 {
		return nil, fmt.Errorf("invalid STALE_TASK_TIMEOUT %q", v.GetString("stale_task_timeout"))
	}
	cfg.StaleTaskTimeout = stale

	rps, err := strconv.ParseFloat(v.GetString("rate_limit"), 64)
	if err != nil || rps < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT %q", v.GetString("rate_limit"))
	}
	cfg.RateLimit = rps

	burst, err := strconv.Atoi(v.GetString("rate_limit_burst"))
	if err != nil || burst < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST %q", v.GetString("rate_limit_burst"))
	}
	cfg.RateLimitBurst = burst

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func required(key string) error {
	return fmt.Errorf("%s is required (env: %s)", key, env[key][0])
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
