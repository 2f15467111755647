// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds all application configuration.
type Config struct {
	// Input tables
	Input InputConfig `yaml:"input"`

	// Evaluation parameters
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Report output
	Output OutputConfig `yaml:"output"`

	// Event publishing
	Bus BusConfig `yaml:"bus"`

	// Run history
	History HistoryConfig `yaml:"history"`

	// Prometheus textfile export
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// InputConfig points at the precomputed query result tables.
type InputConfig struct {
	ResultsPath     string `envconfig:"SHAPEEVAL_RESULTS" yaml:"results"`
	ClassCountsPath string `envconfig:"SHAPEEVAL_CLASS_COUNTS" yaml:"class_counts"`
	Dataset         string `envconfig:"SHAPEEVAL_DATASET" yaml:"dataset" validate:"required"`
}

// EvaluationConfig holds the retrieval evaluation parameters.
type EvaluationConfig struct {
	MinK         int `envconfig:"SHAPEEVAL_MIN_K" yaml:"min_k" validate:"min=1"`
	MaxK         int `envconfig:"SHAPEEVAL_MAX_K" yaml:"max_k" validate:"min=1"`
	PerQueryMaxK int `envconfig:"SHAPEEVAL_PER_QUERY_MAX_K" yaml:"per_query_max_k" validate:"min=1"`
	NumTiers     int `envconfig:"SHAPEEVAL_NUM_TIERS" yaml:"num_tiers" validate:"min=1,max=100"`
	MAPDecimals  int `envconfig:"SHAPEEVAL_MAP_DECIMALS" yaml:"map_decimals" validate:"min=0,max=10"`
	Workers      int `envconfig:"SHAPEEVAL_WORKERS" yaml:"workers" validate:"min=1,max=256"`
}

// OutputConfig selects where and how reports are written.
type OutputConfig struct {
	Dir    string `envconfig:"SHAPEEVAL_OUTPUT_DIR" yaml:"dir"`
	Format string `envconfig:"SHAPEEVAL_OUTPUT_FORMAT" yaml:"format" validate:"oneof=csv json yaml text"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type          string  `envconfig:"SHAPEEVAL_BUS_TYPE" yaml:"type" validate:"oneof=none memory kafka"`
	KafkaBrokers  string  `envconfig:"SHAPEEVAL_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaClientID string  `envconfig:"SHAPEEVAL_KAFKA_CLIENT_ID" yaml:"kafka_client_id"`
	KafkaVersion  string  `envconfig:"SHAPEEVAL_KAFKA_VERSION" yaml:"kafka_version"`
	TopicPrefix   string  `envconfig:"SHAPEEVAL_TOPIC_PREFIX" yaml:"topic_prefix"`
	RateLimit     float64 `envconfig:"SHAPEEVAL_BUS_RATE_LIMIT" yaml:"rate_limit" validate:"min=0"` // events/s, 0 = unlimited
	EventLog      string  `envconfig:"SHAPEEVAL_BUS_EVENT_LOG" yaml:"event_log"`                  // JSON lines copy of published events
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Type     string        `envconfig:"SHAPEEVAL_HISTORY_TYPE" yaml:"type" validate:"oneof=none memory redis"`
	RedisURL string        `envconfig:"SHAPEEVAL_REDIS_URL" yaml:"redis_url"`
	TTL      time.Duration `envconfig:"SHAPEEVAL_HISTORY_TTL" yaml:"ttl" validate:"min=0"`
}

// MetricsConfig holds Prometheus export settings.
type MetricsConfig struct {
	Enabled      bool   `envconfig:"SHAPEEVAL_METRICS_ENABLED" yaml:"enabled"`
	TextfilePath string `envconfig:"SHAPEEVAL_METRICS_TEXTFILE" yaml:"textfile"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"SHAPEEVAL_LOG_LEVEL" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `envconfig:"SHAPEEVAL_LOG_FORMAT" yaml:"format" validate:"oneof=text json"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// Default returns a configuration populated with defaults. The k ranges
// follow the usual PSB benchmark settings: a 1..30 sweep and 20 ranks per query.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Dataset: "default",
		},
		Evaluation: EvaluationConfig{
			MinK:         1,
			MaxK:         30,
			PerQueryMaxK: 20,
			NumTiers:     6,
			MAPDecimals:  2,
			Workers:      4,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Bus: BusConfig{
			Type:          "none",
			KafkaClientID: "shapeeval",
			KafkaVersion:  "2.8.0",
			TopicPrefix:   "shapeeval.",
		},
		History: HistoryConfig{
			Type:     "none",
			RedisURL: "redis://localhost:6379",
			TTL:      30 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, describeFieldError(fe))
		}
	}

	if c.Evaluation.MinK > c.Evaluation.MaxK {
		errs = append(errs, "evaluation.min_k must not exceed evaluation.max_k")
	}

	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "bus.kafka_brokers is required when bus.type is kafka")
	}

	if c.History.Type == "redis" && c.History.RedisURL == "" {
		errs = append(errs, "history.redis_url is required when history.type is redis")
	}

	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		errs = append(errs, "metrics.textfile is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// describeFieldError renders a validator error using the YAML-ish field path,
// e.g. "Evaluation.MinK" -> "evaluation.min_k".
func describeFieldError(fe validator.FieldError) string {
	path := strings.TrimPrefix(fe.Namespace(), "Config.")
	field := snakePath(path)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("invalid %s: %v (must be one of: %s)", field, fe.Value(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func snakePath(path string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KafkaBrokerList splits the comma-separated broker setting.
func (b BusConfig) KafkaBrokerList() []string {
	var brokers []string
	for _, s := range strings.Split(b.KafkaBrokers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			brokers = append(brokers, s)
		}
	}
	return brokers
}
