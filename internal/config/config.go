package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dolor/internal/log"
)

// Supported DATA_BACKEND values.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendPostgres, BackendMongo}

type Config struct {
	// HTTP Server
	Port               string `yaml:"port"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	// Record store
	DataBackend       string        `yaml:"data_backend"`
	SQLiteDBPath      string        `yaml:"sqlite_db_path"`
	PostgresURL       string        `yaml:"postgres_url"`
	MongoURL          string        `yaml:"mongo_url"`
	MongoDatabase     string        `yaml:"mongo_database"`
	StoreTimeout      time.Duration `yaml:"store_timeout"`
	DeleteConcurrency int           `yaml:"delete_concurrency"`

	// AMQP, disabled when the URL is empty
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets summary export, disabled when the spreadsheet id is empty
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleSummarySheet       string `yaml:"google_summary_sheet"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`
	GoogleServiceAccountJSON string `yaml:"google_service_account_json"`
	GoogleOAuthClientFile    string `yaml:"google_oauth_client_file"`
	GoogleOAuthClientJSON    string `yaml:"google_oauth_client_json"`
	GoogleOAuthTokenFile     string `yaml:"google_oauth_token_file"`
	GoogleOAuthTokenJSON     string `yaml:"google_oauth_token_json"`

	// Summary
	SummaryInterval time.Duration `yaml:"summary_interval"`
	SummaryCacheTTL time.Duration `yaml:"summary_cache_ttl"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,

		DataBackend:       BackendMemory,
		SQLiteDBPath:      "./data/dolor.db",
		MongoDatabase:     "dolor",
		StoreTimeout:      10 * time.Second,
		DeleteConcurrency: 8,

		AMQPExchange: "dolor",
		AMQPQueue:    "record_events",

		GoogleSummarySheet: "Summary",

		SummaryInterval: 5 * time.Minute,
		SummaryCacheTTL: 30 * time.Second,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// DOLOR_CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("DOLOR_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.Port, "PORT")
	setString(&c.DataBackend, "DATA_BACKEND")
	setString(&c.SQLiteDBPath, "SQLITE_DB_PATH")
	setString(&c.PostgresURL, "POSTGRES_URL")
	setString(&c.MongoURL, "MONGO_URL")
	setString(&c.MongoDatabase, "MONGO_DATABASE")

	setString(&c.AMQPURL, "AMQP_URL")
	setString(&c.AMQPExchange, "AMQP_EXCHANGE")
	setString(&c.AMQPQueue, "AMQP_QUEUE")

	setString(&c.GoogleSpreadsheetID, "GOOGLE_SPREADSHEET_ID")
	setString(&c.GoogleSummarySheet, "GOOGLE_SUMMARY_SHEET")
	setString(&c.GoogleServiceAccountFile, "GOOGLE_SERVICE_ACCOUNT_FILE")
	setString(&c.GoogleServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	setString(&c.GoogleOAuthClientFile, "GOOGLE_OAUTH_CLIENT_FILE")
	setString(&c.GoogleOAuthClientJSON, "GOOGLE_OAUTH_CLIENT_JSON")
	setString(&c.GoogleOAuthTokenFile, "GOOGLE_OAUTH_TOKEN_FILE")
	setString(&c.GoogleOAuthTokenJSON, "GOOGLE_OAUTH_TOKEN_JSON")

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	errs = append(errs,
		setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"),
		setInt(&c.DeleteConcurrency, "DELETE_CONCURRENCY"),
		setDuration(&c.StoreTimeout, "STORE_TIMEOUT"),
		setDuration(&c.SummaryInterval, "SUMMARY_INTERVAL"),
		setDuration(&c.SummaryCacheTTL, "SUMMARY_CACHE_TTL"),
	)
	return errors.Join(errs...)
}

// AMQPEnabled reports whether change events are published.
func (c *Config) AMQPEnabled() bool { return strings.TrimSpace(c.AMQPURL) != "" }

// SheetsEnabled reports whether the summary is exported to Google Sheets.
func (c *Config) SheetsEnabled() bool { return strings.TrimSpace(c.GoogleSpreadsheetID) != "" }

// ValidateWorker runs Validate plus the checks that only matter to the
// summary worker. The worker reads the records the API server wrote, so it
// needs a shared backend: an in-memory store would be empty and the export
// would overwrite the sheet with zero buckets.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DataBackend == BackendMemory {
		return fmt.Errorf("configuration validation failed:\n- data backend '%s' is private to one process: the worker needs sqlite, postgres or mongo", BackendMemory)
	}
	return nil
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if msg := checkURL("POSTGRES_URL", c.PostgresURL, "postgres", "postgresql"); msg != "" {
			problems = append(problems, msg)
		}
	case BackendMongo:
		if msg := checkURL("MONGO_URL", c.MongoURL, "mongodb", "mongodb+srv"); msg != "" {
			problems = append(problems, msg)
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			problems = append(problems, "MONGO_DATABASE cannot be empty when using mongo backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.AMQPEnabled() {
		if msg := checkURL("AMQP_URL", c.AMQPURL, "amqp", "amqps"); msg != "" {
			problems = append(problems, msg)
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		hasServiceAccount := c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != ""
		hasClient := c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
		hasToken := c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != ""
		switch {
		case hasServiceAccount:
		case hasClient && hasToken:
		case hasClient:
			problems = append(problems, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided with an OAuth client")
		default:
			problems = append(problems, "Google credentials are required when GOOGLE_SPREADSHEET_ID is set")
		}
		for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleOAuthClientFile, c.GoogleOAuthTokenFile} {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google credentials file does not exist: %s", f))
			}
		}
	}

	if c.StoreTimeout < 100*time.Millisecond || c.StoreTimeout > 5*time.Minute {
		problems = append(problems, fmt.Sprintf("invalid store timeout %v: must be between 100ms and 5m", c.StoreTimeout))
	}
	if c.DeleteConcurrency < 1 || c.DeleteConcurrency > 256 {
		problems = append(problems, fmt.Sprintf("invalid delete concurrency %d: must be between 1 and 256", c.DeleteConcurrency))
	}
	if c.SummaryInterval < time.Second || c.SummaryInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid summary interval %v: must be between 1s and 24h", c.SummaryInterval))
	}
	if c.SummaryCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid summary cache ttl %v: must not be negative", c.SummaryCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func checkURL(name, raw string, schemes ...string) string {
	if strings.TrimSpace(raw) == "" {
		return fmt.Sprintf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid %s: %v", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return ""
		}
	}
	return fmt.Sprintf("invalid %s scheme '%s': must be one of %v", name, u.Scheme, schemes)
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = i
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
