// Package config provides configuration for the sheetquery server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/parser"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/source"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "SHEETQUERY_"

// Config holds the complete configuration.
type Config struct {
	// Source locates the workbook
	Source SourceConfig `json:"source" yaml:"source" toml:"source"`

	// Sheets lists the served sheets; the first one is the default sheet
	Sheets []SheetConfig `json:"sheets" yaml:"sheets" toml:"sheets"`

	// HTTP server configuration
	HTTP HTTPConfig `json:"http" yaml:"http" toml:"http"`

	// Auth configuration for the API
	Auth AuthConfig `json:"auth" yaml:"auth" toml:"auth"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log" toml:"log"`
}

// SourceConfig holds workbook source configuration.
type SourceConfig struct {
	// Path is the local workbook path
	Path string `json:"path" yaml:"path" toml:"path"`

	// URL is a share link or s3://bucket/key. When set the source is remote.
	URL string `json:"url" yaml:"url" toml:"url"`

	// FetchTTL is the freshness window of a fetched document
	FetchTTL Duration `json:"fetch_ttl" yaml:"fetch_ttl" toml:"fetch_ttl"`

	// FetchTimeout bounds one retrieval
	FetchTimeout Duration `json:"fetch_timeout" yaml:"fetch_timeout" toml:"fetch_timeout"`

	// S3 client options for s3:// locators
	S3 S3Config `json:"s3" yaml:"s3" toml:"s3"`
}

// S3Config holds S3 client configuration.
type S3Config struct {
	// Region is the AWS region
	Region string `json:"region" yaml:"region" toml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`

	// UsePathStyle forces path-style addressing
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style" toml:"use_path_style"`
}

// SheetConfig describes one served sheet.
type SheetConfig struct {
	// Name is the worksheet name
	Name string `json:"name" yaml:"name" toml:"name"`

	// Range gives header row, width and last row at once, e.g. A5:AB4847.
	// It must start at column A. Explicit fields below take precedence.
	Range string `json:"range,omitempty" yaml:"range,omitempty" toml:"range,omitempty"`

	// HeaderRow is the 1-based header row
	HeaderRow int `json:"header_row,omitempty" yaml:"header_row,omitempty" toml:"header_row,omitempty"`

	// DataStartRow is the first data row (default: header_row + 1)
	DataStartRow int `json:"data_start_row,omitempty" yaml:"data_start_row,omitempty" toml:"data_start_row,omitempty"`

	// DataEndRow is the last data row; 0 means discovered at parse time
	DataEndRow int `json:"data_end_row,omitempty" yaml:"data_end_row,omitempty" toml:"data_end_row,omitempty"`

	// Columns is the number of columns starting at A
	Columns int `json:"columns,omitempty" yaml:"columns,omitempty" toml:"columns,omitempty"`

	// SearchColumn is a column letter or 1-based number (default: A)
	SearchColumn ColumnRef `json:"search_column,omitempty" yaml:"search_column,omitempty" toml:"search_column,omitempty"`

	// SearchLabel names the search column; the header text is used when empty
	SearchLabel string `json:"search_label,omitempty" yaml:"search_label,omitempty" toml:"search_label,omitempty"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout Duration `json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`

	// ReadHeaderTimeout is the HTTP read header timeout
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout"`

	// WriteTimeout must cover a refresh, which downloads and decodes the workbook
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`
}

// AuthConfig holds API authentication configuration.
type AuthConfig struct {
	// Secret is the shared API secret. Empty disables the check.
	Secret string `json:"secret" yaml:"secret" toml:"secret"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is a logrus level name
	Level string `json:"level" yaml:"level" toml:"level"`

	// Format is text or json
	Format string `json:"format" yaml:"format" toml:"format"`
}

// DefaultConfig returns the configuration of the stock management workbook.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:         "workbook.xlsm",
			FetchTTL:     Duration(source.DefaultTTL),
			FetchTimeout: Duration(source.DefaultFetchTimeout),
		},
		Sheets: []SheetConfig{DefaultSheet()},
		HTTP: HTTPConfig{
			Addr:              ":5000",
			ReadTimeout:       Duration(30 * time.Second),
			ReadHeaderTimeout: Duration(10 * time.Second),
			WriteTimeout:      Duration(120 * time.Second),
			IdleTimeout:       Duration(120 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultSheet returns the stock sheet: header on row 5, data rows 6 to 4847,
// columns A to AB, searched by column B.
func DefaultSheet() SheetConfig {
	return SheetConfig{
		Name:         "仕入・在庫管理表",
		Range:        "A5:AB4847",
		SearchColumn: "B",
	}
}

// Resolve fills derived defaults.
func (c *Config) Resolve() {
	c.Source.URL = strings.TrimSpace(c.Source.URL)
	if c.Source.FetchTTL <= 0 {
		c.Source.FetchTTL = Duration(source.DefaultTTL)
	}
	if c.Source.FetchTimeout <= 0 {
		c.Source.FetchTimeout = Duration(source.DefaultFetchTimeout)
	}
	if len(c.Sheets) == 0 {
		c.Sheets = []SheetConfig{DefaultSheet()}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Source.URL == "" && c.Source.Path == "" {
		return fmt.Errorf("source.path or source.url is required")
	}
	if source.IsS3URL(c.Source.URL) {
		if _, _, err := source.ParseS3URL(c.Source.URL); err != nil {
			return err
		}
	}

	if _, err := c.Schemas(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}

	return nil
}

// SourceOptions converts the source section for sheetquery.Open.
func (c *Config) SourceOptions() sheetquery.SourceOptions {
	return sheetquery.SourceOptions{
		Path:           c.Source.Path,
		URL:            c.Source.URL,
		FetchTTL:       time.Duration(c.Source.FetchTTL),
		FetchTimeout:   time.Duration(c.Source.FetchTimeout),
		S3Region:       c.Source.S3.Region,
		S3Endpoint:     c.Source.S3.Endpoint,
		S3UsePathStyle: c.Source.S3.UsePathStyle,
	}
}

// Schemas converts and validates every sheet section.
func (c *Config) Schemas() ([]models.SheetSchema, error) {
	if len(c.Sheets) == 0 {
		return nil, fmt.Errorf("at least one sheet is required")
	}
	schemas := make([]models.SheetSchema, 0, len(c.Sheets))
	seen := make(map[string]bool, len(c.Sheets))
	for i, sc := range c.Sheets {
		schema, err := sc.Schema()
		if err != nil {
			return nil, fmt.Errorf("sheets[%d]: %w", i, err)
		}
		if seen[schema.Name] {
			return nil, fmt.Errorf("sheets[%d]: duplicate sheet %q", i, schema.Name)
		}
		seen[schema.Name] = true
		schemas = append(schemas, schema)
	}
	return schemas, nil
}

// Schema converts the section into a validated sheet schema.
func (s SheetConfig) Schema() (models.SheetSchema, error) {
	schema := models.SheetSchema{
		Name:         s.Name,
		HeaderRow:    s.HeaderRow,
		DataStartRow: s.DataStartRow,
		DataEndRow:   s.DataEndRow,
		ColumnCount:  s.Columns,
		SearchLabel:  s.SearchLabel,
	}

	if s.Range != "" {
		_, area, err := parser.ParseReference(s.Range)
		if err != nil {
			return schema, err
		}
		if area.C1 != 1 {
			return schema, fmt.Errorf("range %q must start at column A", s.Range)
		}
		if schema.HeaderRow == 0 {
			schema.HeaderRow = area.R1
		}
		if schema.ColumnCount == 0 {
			schema.ColumnCount = area.C2
		}
		if schema.DataEndRow == 0 && area.R2 > area.R1 {
			schema.DataEndRow = area.R2
		}
	}

	if schema.DataStartRow == 0 {
		schema.DataStartRow = schema.HeaderRow + 1
	}

	col, err := s.SearchColumn.Number()
	if err != nil {
		return schema, err
	}
	schema.SearchColumn = col

	if err := schema.Validate(); err != nil {
		return schema, err
	}
	return schema, nil
}

// LoadFromFile loads configuration from a YAML, JSON or TOML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	// a file that lists sheets replaces the default sheet
	cfg.Sheets = nil

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if len(cfg.Sheets) == 0 {
		cfg.Sheets = []SheetConfig{DefaultSheet()}
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the SHEETQUERY_ prefix. ONEDRIVE_SHARE_URL is
// accepted as the source url when SHEETQUERY_SOURCE_URL is not set.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("ONEDRIVE_SHARE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := getenv("SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := getenv("SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := getenv("FETCH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.FetchTTL = Duration(d)
		}
	}
	if v := getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.FetchTimeout = Duration(d)
		}
	}

	// S3 configuration
	if v := getenv("S3_REGION"); v != "" {
		cfg.Source.S3.Region = v
	}
	if v := getenv("S3_ENDPOINT"); v != "" {
		cfg.Source.S3.Endpoint = v
	}
	if v := getenv("S3_USE_PATH_STYLE"); v != "" {
		cfg.Source.S3.UsePathStyle = v == "true" || v == "1"
	}

	// Default sheet overrides
	if len(cfg.Sheets) > 0 {
		if v := getenv("SHEET_NAME"); v != "" {
			cfg.Sheets[0].Name = v
		}
		if v := getenv("SHEET_RANGE"); v != "" {
			cfg.Sheets[0].Range = v
		}
		if v := getenv("SEARCH_COLUMN"); v != "" {
			cfg.Sheets[0].SearchColumn = ColumnRef(v)
		}
	}

	// HTTP configuration
	if v := getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}

	// Log configuration
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

// Duration is a time.Duration written as text ("5m", "90s") in config files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// ColumnRef is a column given as a letter ("B") or a 1-based number ("2").
type ColumnRef string

// UnmarshalJSON accepts both a JSON string and a JSON number.
func (c *ColumnRef) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*c = ColumnRef(strconv.Itoa(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("search_column must be a column letter or number: %w", err)
	}
	*c = ColumnRef(s)
	return nil
}

// Number returns the 1-based column number. An empty reference is column A.
func (c ColumnRef) Number() (int, error) {
	ref := strings.TrimSpace(string(c))
	if ref == "" {
		return 1, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("invalid search column %q", ref)
		}
		return n, nil
	}
	n, err := excelize.ColumnNameToNumber(ref)
	if err != nil {
		return 0, fmt.Errorf("invalid search column %q: %w", ref, err)
	}
	return n, nil
}

// SheetsFromSchemas converts proposed schemas back into sheet sections, for
// writing a starting config from an inspected workbook.
func SheetsFromSchemas(schemas []models.SheetSchema) []SheetConfig {
	sheets := make([]SheetConfig, 0, len(schemas))
	for _, s := range schemas {
		sc := SheetConfig{
			Name:         s.Name,
			HeaderRow:    s.HeaderRow,
			Columns:      s.ColumnCount,
			DataEndRow:   s.DataEndRow,
			SearchColumn: ColumnRef(models.ColumnLetter(s.SearchColumn)),
			SearchLabel:  s.SearchLabel,
		}
		if s.DataStartRow != s.HeaderRow+1 {
			sc.DataStartRow = s.DataStartRow
		}
		sheets = append(sheets, sc)
	}
	return sheets
}
