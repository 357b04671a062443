package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds settings for the aggregate and render commands, populated
// from environment variables.
type Config struct {
	MicrodataPath string
	WageTablePath string
	ShowProgress  bool
	SummaryTopN   int

	MapOutputPath     string
	MapTitle          string
	MapClipQuantile   float64
	MapExcludedStates []string

	// Optional sinks for aggregated wages; empty disables them.
	KafkaBrokers   []string
	KafkaWageTopic string
	DatabaseURL    string

	MetricsTextfile string
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	quantile, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("MAP_CLIP_QUANTILE", "0.95"), 64)
	if err != nil || quantile <= 0 || quantile > 1 {
		return nil, errors.New("invalid MAP_CLIP_QUANTILE: must be in (0, 1]")
	}

	topN, err := strconv.Atoi(sharedcfg.EnvOrDefault("SUMMARY_TOP_N", "10"))
	if err != nil || topN < 0 {
		return nil, errors.New("invalid SUMMARY_TOP_N: must be a non-negative integer")
	}

	showProgress, err := strconv.ParseBool(sharedcfg.EnvOrDefault("SHOW_PROGRESS", "true"))
	if err != nil {
		return nil, errors.New("invalid SHOW_PROGRESS: must be a boolean")
	}

	cfg := &Config{
		MicrodataPath: sharedcfg.EnvOrDefault("MICRODATA_PATH", "usa_00002.dat"),
		WageTablePath: sharedcfg.EnvOrDefault("WAGE_TABLE_PATH", "puma_hourly_wages.csv"),
		ShowProgress:  showProgress,
		SummaryTopN:   topN,

		MapOutputPath:     sharedcfg.EnvOrDefault("MAP_OUTPUT_PATH", "usa_hourly_wage_map.svg"),
		MapTitle:          sharedcfg.EnvOrDefault("MAP_TITLE", "Average Hourly Wage by PUMA (2024 ACS)"),
		MapClipQuantile:   quantile,
		MapExcludedStates: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("MAP_EXCLUDED_STATES", "02,15,72")),

		KafkaBrokers:   sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaWageTopic: sharedcfg.EnvOrDefault("KAFKA_WAGE_TOPIC", "puma-hourly-wages"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
	}

	if strings.TrimSpace(cfg.MicrodataPath) == "" {
		return nil, errors.New("MICRODATA_PATH is required")
	}
	if strings.TrimSpace(cfg.WageTablePath) == "" {
		return nil, errors.New("WAGE_TABLE_PATH is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaWageTopic == "" {
		return nil, errors.New("KAFKA_WAGE_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether aggregated wages are published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// PostgresEnabled reports whether aggregated wages are upserted to Postgres.
func (c *Config) PostgresEnabled() bool { return c.DatabaseURL != "" }
