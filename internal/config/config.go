// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/issues-dataset/internal/query"
	"github.com/jonathan/issues-dataset/internal/window"
)

// DefaultServerAddress is the server queried when none is configured.
const DefaultServerAddress = "https://youtrack-staging.labs.intellij.net/"

// DefaultQuery selects all IDEA issues.
const DefaultQuery = "#IDEA"

// Config represents the CLI configuration that can be loaded from a JSON or
// YAML file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Server
	ServerAddress string `json:"server_address,omitempty" yaml:"server_address,omitempty" validate:"omitempty,url"`
	AccessToken   string `json:"access_token,omitempty" yaml:"access_token,omitempty"` // Token or path to a token file
	Insecure      *bool  `json:"insecure,omitempty" yaml:"insecure,omitempty"`         // Skip TLS verification

	// Query
	Query      string   `json:"query,omitempty" yaml:"query,omitempty"`
	QueryType  string   `json:"query_type,omitempty" yaml:"query_type,omitempty" validate:"omitempty,oneof=common formal"`
	OrderBy    string   `json:"order_by,omitempty" yaml:"order_by,omitempty" validate:"omitempty,oneof=created updated"`
	Direction  string   `json:"direction,omitempty" yaml:"direction,omitempty" validate:"omitempty,oneof=asc desc"`
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty" validate:"dive,required"`

	// Output
	Filename    string `json:"filename,omitempty" yaml:"filename,omitempty"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty" validate:"omitempty,oneof=none zstd"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	LogFile     string `json:"log_file,omitempty" yaml:"log_file,omitempty"`

	// Limits
	PageSize int `json:"page_size,omitempty" yaml:"page_size,omitempty" validate:"gte=0"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	insecure := true
	return Config{
		ServerAddress: DefaultServerAddress,
		Insecure:      &insecure,
		Query:         DefaultQuery,
		QueryType:     string(query.Common),
		OrderBy:       string(query.Created),
		Direction:     string(window.Ascending),
		Compression:   "none",
		PageSize:      1000,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by the
// file extension (.yaml and .yml are YAML, anything else is JSON).
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration has valid values. Enum fields map
// to the same errors the parsers of those enums return.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config error: %w", err)
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Direction":
		return &window.InvalidDirectionError{Value: c.Direction}
	case "OrderBy":
		return &query.InvalidOrderByError{Value: c.OrderBy}
	case "QueryType":
		return &query.InvalidGrammarError{Value: c.QueryType}
	case "ServerAddress":
		return fmt.Errorf("config error: 'server_address' must be a URL, got %q", c.ServerAddress)
	case "PageSize":
		return fmt.Errorf("config error: 'page_size' must be non-negative")
	case "Compression":
		return fmt.Errorf("config error: 'compression' must be none or zstd, got %q", c.Compression)
	default:
		return fmt.Errorf("config error: invalid %s (%s)", fe.Namespace(), fe.Tag())
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.ServerAddress == "" {
		result.ServerAddress = defaults.ServerAddress
	}
	if result.AccessToken == "" {
		result.AccessToken = defaults.AccessToken
	}
	if result.Query == "" {
		result.Query = defaults.Query
	}
	if result.QueryType == "" {
		result.QueryType = defaults.QueryType
	}
	if result.OrderBy == "" {
		result.OrderBy = defaults.OrderBy
	}
	if result.Direction == "" {
		result.Direction = defaults.Direction
	}
	if result.Filename == "" {
		result.Filename = defaults.Filename
	}
	if result.Compression == "" {
		result.Compression = defaults.Compression
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogFile == "" {
		result.LogFile = defaults.LogFile
	}

	// Slices and pointers: use default if unset
	if len(result.Categories) == 0 {
		result.Categories = defaults.Categories
	}
	if result.Insecure == nil {
		result.Insecure = defaults.Insecure
	}

	// Int fields: use default if zero
	if result.PageSize == 0 {
		result.PageSize = defaults.PageSize
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// InsecureOrDefault reports the TLS verification setting, defaulting to
// insecure when unset.
func (c *Config) InsecureOrDefault() bool {
	if c.Insecure == nil {
		return true
	}
	return *c.Insecure
}
