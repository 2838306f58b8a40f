package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP Server
	Port               string `yaml:"port"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	// Backend selection
	DataBackend string `yaml:"data_backend"`

	// SQLite
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// MongoDB
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	// Memory backend seed data
	SeedFile string `yaml:"seed_file"`

	// AMQP
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets export
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleSheetName          string `yaml:"google_sheet_name"`
	GoogleServiceAccountJSON string `yaml:"-"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`

	// Alerts
	AlertCron       string `yaml:"alert_cron"`
	AlertWindowDays int    `yaml:"alert_window_days"`
	RunOnStart      bool   `yaml:"run_on_start"`

	// Sync worker
	SyncInterval time.Duration `yaml:"sync_interval"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a value.
func Defaults() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		DataBackend:        "memory",
		SQLiteDBPath:       "./data/bountytracker.db",
		MongoDatabase:      "bountytracker",
		SeedFile:           "./data/sales.json",
		AMQPExchange:       "bountytracker",
		AMQPQueue:          "sale_events",
		GoogleSheetName:    "Bounties",
		AlertCron:          "0 0 8 * * *",
		AlertWindowDays:    14,
		SyncInterval:       5 * time.Minute,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by CONFIG_FILE (default config.yaml), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	path := getEnv("CONFIG_FILE", "config.yaml")
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.SeedFile = getEnv("SEED_FILE", c.SeedFile)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)

	c.AlertCron = getEnv("ALERT_CRON", c.AlertCron)
	c.AlertWindowDays = getEnvInt("ALERT_WINDOW_DAYS", c.AlertWindowDays)
	c.RunOnStart = getEnvBool("RUN_ON_START", c.RunOnStart)

	c.SyncInterval = getEnvDuration("SYNC_INTERVAL", c.SyncInterval)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// SheetsConfigured reports whether the spreadsheet export has enough settings to run.
func (c *Config) SheetsConfigured() bool {
	return c.GoogleSpreadsheetID != "" && (c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "")
}

// problems collects every configuration error so one run reports them all.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks the whole configuration. It may create the SQLite
// database directory as a side effect.
func (c *Config) Validate() error {
	var p problems
	c.validateServer(&p)
	c.validateBackend(&p)
	c.validateMessaging(&p)
	c.validateAlerts(&p)
	c.validateLogging(&p)

	if len(p) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(p, "\n- "))
	}
	return nil
}

func (c *Config) validateServer(p *problems) {
	port, err := strconv.Atoi(c.Port)
	switch {
	case err != nil:
		p.addf("invalid port '%s': must be a number", c.Port)
	case port < 1 || port > 65535:
		p.addf("invalid port %d: must be between 1 and 65535", port)
	}
	if c.RateLimitPerMinute < 1 {
		p.addf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute)
	}
}

var dataBackends = []string{"memory", "sqlite", "mongo"}

func (c *Config) validateBackend(p *problems) {
	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			p.addf("SQLite database path cannot be empty when using sqlite backend")
			return
		}
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir == "." {
			return
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			p.addf("cannot create SQLite database directory '%s': %v", dir, err)
		}
	case "mongo":
		if c.MongoURI == "" {
			p.addf("MongoDB URI is required when using mongo backend")
			return
		}
		if u, err := url.Parse(c.MongoURI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			p.addf("invalid MongoDB URI: scheme must be 'mongodb' or 'mongodb+srv'")
		}
	default:
		p.addf("invalid data backend '%s': must be one of %v", c.DataBackend, dataBackends)
	}
}

// validateMessaging covers the optional broker and spreadsheet settings.
func (c *Config) validateMessaging(p *problems) {
	if c.AMQPURL != "" {
		u, err := url.Parse(c.AMQPURL)
		if err != nil {
			p.addf("invalid AMQP URL '%s': %v", c.AMQPURL, err)
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			p.addf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
		}
		if c.AMQPExchange == "" {
			p.addf("AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			p.addf("AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		p.addf("Google Sheet name is required when a spreadsheet ID is set")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); errors.Is(err, os.ErrNotExist) {
			p.addf("Google service account file does not exist: %s", c.GoogleServiceAccountFile)
		}
	}

	if c.SyncInterval < time.Second || c.SyncInterval > 24*time.Hour {
		p.addf("invalid sync interval %v: must be between 1s and 24h", c.SyncInterval)
	}
}

// cronParser matches the scheduler: it accepts both five-field and six-field (with seconds) schedules.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func (c *Config) validateAlerts(p *problems) {
	if _, err := cronParser.Parse(c.AlertCron); err != nil {
		p.addf("invalid alert cron '%s': %v", c.AlertCron, err)
	}
	if c.AlertWindowDays < 0 || c.AlertWindowDays > 365 {
		p.addf("invalid alert window %d: must be between 0 and 365 days", c.AlertWindowDays)
	}
}

func (c *Config) validateLogging(p *problems) {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		p.addf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		p.addf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
