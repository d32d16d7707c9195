package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	EstimateRateLimitAllowedPerMin int `toml:"estimate_rate_limit_allowed_per_min"`
	EstimateMaxBodyMB              int `toml:"estimate_max_body_mb"`

	// analyzer backend: http, gemini or none
	AnalyzerBackend           string  `toml:"analyzer_backend"`
	AnalyzerBaseURL           string  `toml:"analyzer_base_url"`
	AnalyzerTimeoutSeconds    int     `toml:"analyzer_timeout_seconds"`
	AnalyzerRequestsPerSecond float64 `toml:"analyzer_requests_per_second"`
	AnalyzerCacheSizeMB       int     `toml:"analyzer_cache_size_mb"`
	GeminiModel               string  `toml:"gemini_model"`

	CalorieProfile       string `toml:"calorie_profile"`
	VoISessionTTLMinutes int    `toml:"voi_session_ttl_minutes"`
	DailyCalorieGoal     int    `toml:"daily_calorie_goal"`
	NutritionSeedPath    string `toml:"nutrition_seed_path"`
	PriorsCacheTTLHours  int    `toml:"priors_cache_ttl_hours"`
}

const (
	AnalyzerBackendHTTP   = "http"
	AnalyzerBackendGemini = "gemini"
	AnalyzerBackendNone   = "none"
)

var ErrUnknownEnv = errors.New("unknown env")

type Toml struct {
	Development *Config `toml:"development"`
	Production  *Config `toml:"production"`
	Docker      *Config `toml:"docker"`
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	case "ddev", "docker", "dockerdev":
		cfg = t.Docker
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnv, env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env,
// with defaults applied and the result validated.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.AnalyzerBackend == "" {
		c.AnalyzerBackend = AnalyzerBackendNone
	}
	if c.AnalyzerTimeoutSeconds <= 0 {
		c.AnalyzerTimeoutSeconds = 30
	}
	if c.VoISessionTTLMinutes <= 0 {
		c.VoISessionTTLMinutes = 10
	}
	if c.DailyCalorieGoal <= 0 {
		c.DailyCalorieGoal = 2000
	}
	if c.PriorsCacheTTLHours <= 0 {
		c.PriorsCacheTTLHours = 6
	}
	if c.EstimateRateLimitAllowedPerMin <= 0 {
		c.EstimateRateLimitAllowedPerMin = 30
	}
	if c.EstimateMaxBodyMB <= 0 {
		c.EstimateMaxBodyMB = 16
	}
}

func (c *Config) Validate() error {
	switch c.AnalyzerBackend {
	case AnalyzerBackendHTTP:
		if c.AnalyzerBaseURL == "" {
			return errors.New("analyzer_base_url is required for the http analyzer backend")
		}
	case AnalyzerBackendGemini, AnalyzerBackendNone:
	default:
		return fmt.Errorf("unknown analyzer backend: %s", c.AnalyzerBackend)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}
