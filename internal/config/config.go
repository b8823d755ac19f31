package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/notion"
	"github.com/joho/godotenv"
)

// Supported DATA_BACKEND values.
const (
	BackendNotion = "notion"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Notion workspace
	NotionAPIKey            string
	NotionPeopleDBID        string
	NotionSensitiveDataDBID string
	NotionPayeesDBID        string
	NotionTransactionsDBID  string
	NotionVacationsDBID     string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// Dashboard
	CacheTTL     time.Duration
	ReleaseMonth string

	// Warehouse and snapshots
	BigQueryProject string
	BigQueryDataset string
	SnapshotBucket  string

	// AMQP job transport; empty URL keeps jobs in process
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Load reads the configuration from the environment. A .env file in the working
// directory, when present, fills in variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		NotionAPIKey:            getEnv("NOTION_API_KEY", ""),
		NotionPeopleDBID:        getEnv("NOTION_PEOPLE_DB_ID", ""),
		NotionSensitiveDataDBID: getEnv("NOTION_SENSITIVE_DATA_DB_ID", ""),
		NotionPayeesDBID:        getEnv("NOTION_PAYEES_DB_ID", ""),
		NotionTransactionsDBID:  getEnv("NOTION_TRANSACTIONS_DB_ID", ""),
		NotionVacationsDBID:     getEnv("NOTION_VACATIONS_DB_ID", ""),

		DataBackend:  getEnv("DATA_BACKEND", BackendNotion),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finances.db"),

		CacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		ReleaseMonth: getEnv("RELEASE_MONTH", "2027-10"),

		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "finances"),
		SnapshotBucket:  getEnv("SNAPSHOT_BUCKET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finances"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_jobs"),
	}
}

// NotionDatabases returns the configured workspace database ids.
func (c *Config) NotionDatabases() notion.Databases {
	return notion.Databases{
		People:        c.NotionPeopleDBID,
		SensitiveData: c.NotionSensitiveDataDBID,
		Payees:        c.NotionPayeesDBID,
		Transactions:  c.NotionTransactionsDBID,
		Vacations:     c.NotionVacationsDBID,
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	switch c.DataBackend {
	case BackendNotion:
		required := []struct{ key, value string }{
			{"NOTION_API_KEY", c.NotionAPIKey},
			{"NOTION_PEOPLE_DB_ID", c.NotionPeopleDBID},
			{"NOTION_SENSITIVE_DATA_DB_ID", c.NotionSensitiveDataDBID},
			{"NOTION_PAYEES_DB_ID", c.NotionPayeesDBID},
			{"NOTION_TRANSACTIONS_DB_ID", c.NotionTransactionsDBID},
			{"NOTION_VACATIONS_DB_ID", c.NotionVacationsDBID},
		}
		for _, r := range required {
			if r.value == "" {
				errors = append(errors, fmt.Sprintf("%s is required when using notion backend", r.key))
			}
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendNotion, BackendSQLite))
	}

	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}

	if _, _, err := calendar.ParseMonthStrict(c.ReleaseMonth); err != nil {
		errors = append(errors, fmt.Sprintf("invalid release month '%s': %v", c.ReleaseMonth, err))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
