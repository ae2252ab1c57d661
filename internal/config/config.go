// Package config centralizes runtime configuration. Settings come from
// environment variables with defaults applied at load time and a single
// validation pass that reports every problem at once, so a misconfigured
// run fails fast and completely.
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/graphload/graphload/internal/csv"
)

// Config holds all runtime settings.
type Config struct {
	API     APIConfig
	Import  ImportConfig
	Export  ExportConfig
	CSV     CSVConfig
	Logging LoggingConfig
}

// APIConfig holds the graph API endpoint settings.
type APIConfig struct {
	// URL is the GraphQL endpoint (required).
	URL string `env:"GRAPH_API_URL" required:"true"`

	// Token, when set, is sent as a bearer Authorization header.
	Token string `env:"GRAPH_API_TOKEN"`

	// Timeout bounds a single document execution (default: 30s).
	Timeout time.Duration `env:"GRAPH_API_TIMEOUT" default:"30s"`
}

// ImportConfig holds the import pipeline settings.
type ImportConfig struct {
	// BatchSize is the number of records compiled into one composite
	// document (default: 10). It is fixed for a whole run: failure
	// reports locate records by batch-size arithmetic.
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"10"`
}

// ExportConfig holds the export settings.
type ExportConfig struct {
	// PageSize is the number of records requested per connection page
	// (default: 100).
	PageSize int `env:"EXPORT_PAGE_SIZE" default:"100"`
}

// CSVConfig holds the delimited-text conventions. Delimiter values may
// use the escape sequences \n, \r and \t.
type CSVConfig struct {
	// FieldDelimiter separates columns (default: ",").
	FieldDelimiter string `env:"CSV_FIELD_DELIMITER" default:","`

	// RecordDelimiter terminates output rows (default: "\n").
	RecordDelimiter string `env:"CSV_RECORD_DELIMITER" default:"\n"`

	// ArrayDelimiter separates list elements within one cell (default: "|").
	ArrayDelimiter string `env:"CSV_ARRAY_DELIMITER" default:"|"`

	// NullToken is the sentinel for absent values (default: "NULL").
	NullToken string `env:"CSV_NULL_TOKEN" default:"NULL"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json (default: text).
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Dialect materializes the CSV settings as a csv.Dialect.
func (c *Config) Dialect() csv.Dialect {
	field, _ := utf8.DecodeRuneInString(csv.DecodeDelimiter(c.CSV.FieldDelimiter))
	return csv.Dialect{
		Field:  field,
		Record: csv.DecodeDelimiter(c.CSV.RecordDelimiter),
		Array:  csv.DecodeDelimiter(c.CSV.ArrayDelimiter),
		Null:   c.CSV.NullToken,
	}
}

// Validate checks the configuration, reporting every failure.
func (c *Config) Validate() error {
	var errs []string

	if c.API.URL == "" {
		errs = append(errs, "GRAPH_API_URL is required")
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "GRAPH_API_TIMEOUT must be positive")
	}
	if c.Import.BatchSize <= 0 {
		errs = append(errs, "IMPORT_BATCH_SIZE must be positive")
	}
	if c.Export.PageSize <= 0 {
		errs = append(errs, "EXPORT_PAGE_SIZE must be positive")
	}

	if n := utf8.RuneCountInString(csv.DecodeDelimiter(c.CSV.FieldDelimiter)); n != 1 {
		errs = append(errs, fmt.Sprintf("CSV_FIELD_DELIMITER (%q) must be a single character", c.CSV.FieldDelimiter))
	}
	if err := c.Dialect().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a loggable rendition of the config with the API token
// masked.
func (c *Config) String() string {
	token := "[unset]"
	if c.API.Token != "" {
		token = "[MASKED]"
	}
	return fmt.Sprintf(
		"Config{API: {URL: %q, Token: %s, Timeout: %s}, Import: {BatchSize: %d}, Export: {PageSize: %d}, CSV: {Field: %q, Array: %q, Null: %q}, Logging: {Level: %q, Format: %q}}",
		c.API.URL, token, c.API.Timeout,
		c.Import.BatchSize, c.Export.PageSize,
		c.CSV.FieldDelimiter, c.CSV.ArrayDelimiter, c.CSV.NullToken,
		c.Logging.Level, c.Logging.Format,
	)
}
