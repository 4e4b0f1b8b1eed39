package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gyeh/billingstats/internal/model"

	"gopkg.in/yaml.v3"
)

// Impute strategies accepted in config files and flags.
const (
	ImputeMean   = "mean"
	ImputeMedian = "median"
	ImputeMode   = "mode"
)

// Config holds all runtime configuration for a billingstats run.
type Config struct {
	DSN       string
	Query     string // SQL returning one JSON/JSONB episode document per row
	FilePath  string
	OutPath   string
	Format    string // export format: "csv", "xlsx" or "parquet"
	LogFormat string // "text" or "json"
	LogLevel  string
	Listen    string

	MaxRows        int           // per run or request; 0 disables the cap
	RequestTimeout time.Duration // per HTTP request
	MaxBodyBytes   string        // echo BodyLimit syntax, e.g. "32M"

	NumericColumns   []string
	GroupColumns     []string
	ImputeColumns    []string
	ImputeStrategy   string
	ConfidenceLevel  float64
	OutlierThreshold float64
}

// Defaults returns a Config populated with the built-in analysis settings.
func Defaults() Config {
	return Config{
		LogFormat:        "text",
		LogLevel:         "info",
		Format:           "csv",
		Listen:           ":5000",
		MaxRows:          200000,
		RequestTimeout:   60 * time.Second,
		MaxBodyBytes:     "64M",
		NumericColumns:   append([]string(nil), model.DefaultNumericColumns...),
		GroupColumns:     append([]string(nil), model.DefaultGroupColumns...),
		ImputeColumns:    append([]string(nil), model.DefaultImputeColumns...),
		ImputeStrategy:   ImputeMean,
		ConfidenceLevel:  0.95,
		OutlierThreshold: 1.5,
	}
}

// yamlConfig is the on-disk YAML structure. Zero values leave the current
// setting untouched.
type yamlConfig struct {
	MaxRows          int      `yaml:"max_rows"`
	RequestTimeout   string   `yaml:"request_timeout"`
	MaxBodyBytes     string   `yaml:"max_body_bytes"`
	Listen           string   `yaml:"listen"`
	Query            string   `yaml:"query"`
	NumericColumns   []string `yaml:"numeric_columns"`
	GroupColumns     []string `yaml:"group_columns"`
	ImputeColumns    []string `yaml:"impute_columns"`
	ImputeStrategy   string   `yaml:"impute_strategy"`
	ConfidenceLevel  float64  `yaml:"confidence_level"`
	OutlierThreshold float64  `yaml:"outlier_threshold"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if yc.MaxRows != 0 {
		c.MaxRows = yc.MaxRows
	}
	if yc.RequestTimeout != "" {
		d, err := time.ParseDuration(yc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parse request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if yc.MaxBodyBytes != "" {
		c.MaxBodyBytes = yc.MaxBodyBytes
	}
	if yc.Listen != "" {
		c.Listen = yc.Listen
	}
	if yc.Query != "" {
		c.Query = yc.Query
	}
	if len(yc.NumericColumns) > 0 {
		c.NumericColumns = yc.NumericColumns
	}
	if len(yc.GroupColumns) > 0 {
		c.GroupColumns = yc.GroupColumns
	}
	if len(yc.ImputeColumns) > 0 {
		c.ImputeColumns = yc.ImputeColumns
	}
	if yc.ImputeStrategy != "" {
		c.ImputeStrategy = yc.ImputeStrategy
	}
	if yc.ConfidenceLevel != 0 {
		c.ConfidenceLevel = yc.ConfidenceLevel
	}
	if yc.OutlierThreshold != 0 {
		c.OutlierThreshold = yc.OutlierThreshold
	}
	return c.ValidateAnalysis()
}

// ValidateAnalysis checks the analysis settings.
func (c *Config) ValidateAnalysis() error {
	switch c.ImputeStrategy {
	case ImputeMean, ImputeMedian, ImputeMode:
	default:
		return fmt.Errorf("unknown impute strategy %q", c.ImputeStrategy)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return fmt.Errorf("confidence level must be in (0, 1), got %v", c.ConfidenceLevel)
	}
	if c.OutlierThreshold < 0 {
		return fmt.Errorf("outlier threshold must not be negative, got %v", c.OutlierThreshold)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max rows must not be negative, got %d", c.MaxRows)
	}
	if len(c.NumericColumns) == 0 {
		return fmt.Errorf("at least one numeric column is required")
	}
	return nil
}

// Validate checks the input source and analysis settings. Exactly one of a
// file or a DSN must be set.
func (c *Config) Validate() error {
	switch {
	case c.FilePath == "" && c.DSN == "":
		return fmt.Errorf("--file or --dsn is required")
	case c.FilePath != "" && c.DSN != "":
		return fmt.Errorf("--file and --dsn are mutually exclusive")
	case c.FilePath != "":
		if _, err := os.Stat(c.FilePath); err != nil {
			return fmt.Errorf("file not accessible: %w", err)
		}
	case c.Query == "":
		return fmt.Errorf("--query is required with --dsn")
	}
	return c.ValidateAnalysis()
}

// ValidateExport checks Validate plus the export destination.
func (c *Config) ValidateExport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.OutPath == "" {
		return fmt.Errorf("--out is required")
	}
	switch c.Format {
	case "csv", "xlsx", "parquet":
		return nil
	default:
		return fmt.Errorf("unknown export format %q", c.Format)
	}
}
