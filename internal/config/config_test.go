package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseline(t *testing.T) {
	t.Helper()
	t.Setenv("GRAPH_API_URL", "https://api.example.com/graph")
	t.Setenv("GRAPH_API_TOKEN", "")
	t.Setenv("GRAPH_API_TIMEOUT", "")
	t.Setenv("IMPORT_BATCH_SIZE", "")
	t.Setenv("EXPORT_PAGE_SIZE", "")
	t.Setenv("CSV_FIELD_DELIMITER", "")
	t.Setenv("CSV_RECORD_DELIMITER", "")
	t.Setenv("CSV_ARRAY_DELIMITER", "")
	t.Setenv("CSV_NULL_TOKEN", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseline(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.API.URL != "https://api.example.com/graph" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %s, want 30s", cfg.API.Timeout)
	}
	if cfg.Import.BatchSize != 10 {
		t.Errorf("Import.BatchSize = %d, want 10", cfg.Import.BatchSize)
	}
	if cfg.Export.PageSize != 100 {
		t.Errorf("Export.PageSize = %d, want 100", cfg.Export.PageSize)
	}

	d := cfg.Dialect()
	if d.Field != ',' || d.Record != "\n" || d.Array != "|" || d.Null != "NULL" {
		t.Errorf("Dialect() = %+v, want defaults", d)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseline(t)
	t.Setenv("GRAPH_API_TOKEN", "tok-123")
	t.Setenv("GRAPH_API_TIMEOUT", "90s")
	t.Setenv("IMPORT_BATCH_SIZE", "25")
	t.Setenv("EXPORT_PAGE_SIZE", "500")
	t.Setenv("CSV_FIELD_DELIMITER", `\t`)
	t.Setenv("CSV_RECORD_DELIMITER", `\r\n`)
	t.Setenv("CSV_ARRAY_DELIMITER", ";")
	t.Setenv("CSV_NULL_TOKEN", `\N`)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.API.Token != "tok-123" {
		t.Errorf("API.Token = %q", cfg.API.Token)
	}
	if cfg.API.Timeout != 90*time.Second {
		t.Errorf("API.Timeout = %s, want 90s", cfg.API.Timeout)
	}
	if cfg.Import.BatchSize != 25 || cfg.Export.PageSize != 500 {
		t.Errorf("sizes = %d/%d, want 25/500", cfg.Import.BatchSize, cfg.Export.PageSize)
	}

	d := cfg.Dialect()
	if d.Field != '\t' {
		t.Errorf("Dialect().Field = %q, want tab", d.Field)
	}
	if d.Record != "\r\n" {
		t.Errorf("Dialect().Record = %q, want CRLF", d.Record)
	}
	if d.Array != ";" || d.Null != `\N` {
		t.Errorf("Dialect() = %+v", d)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setBaseline(t)
	t.Setenv("GRAPH_API_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded without GRAPH_API_URL, want error")
	}
	if !strings.Contains(err.Error(), "GRAPH_API_URL") {
		t.Errorf("error %q does not name the missing variable", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{name: "batch size not a number", env: "IMPORT_BATCH_SIZE", value: "lots"},
		{name: "timeout not a duration", env: "GRAPH_API_TIMEOUT", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseline(t)
			t.Setenv(tt.env, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.env) {
				t.Errorf("error %q does not name %s", err, tt.env)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	cfg.Import.BatchSize = -1
	cfg.Export.PageSize = 0
	cfg.CSV.FieldDelimiter = ",,"
	cfg.Logging.Level = "chatty"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() succeeded, want error")
	}
	for _, want := range []string{
		"GRAPH_API_URL",
		"GRAPH_API_TIMEOUT",
		"IMPORT_BATCH_SIZE",
		"EXPORT_PAGE_SIZE",
		"CSV_FIELD_DELIMITER",
		"LOG_LEVEL",
		"LOG_FORMAT",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s:\n%s", want, err)
		}
	}
}

func TestValidateRejectsMatchingDelimiters(t *testing.T) {
	setBaseline(t)
	t.Setenv("CSV_ARRAY_DELIMITER", ",")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with array delimiter equal to field delimiter, want error")
	}
}

func TestConfigStringMasksToken(t *testing.T) {
	cfg := &Config{}
	cfg.API.URL = "https://api.example.com"
	cfg.API.Token = "super-secret"

	s := cfg.String()
	if strings.Contains(s, "super-secret") {
		t.Errorf("String() leaks the token: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked token marker", s)
	}
}
