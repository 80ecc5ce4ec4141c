package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ApplicationName is used for the XDG config directory and log prefixes
const ApplicationName = "trafficsift"

// OutputFormat represents different report formats
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv"
)

// InputFormat represents the traffic export format read by the extractor
type InputFormat string

const (
	InputAuto InputFormat = "auto" // Guess from extension and content
	InputBurp InputFormat = "burp" // Burp Suite XML export
	InputHAR  InputFormat = "har"  // HAR 1.2 JSON
)

const (
	DefaultMinTokenLength = 20
	MinTokenLength        = 4
	MaxTokenLength        = 1000 // Largest repeat count the token pattern accepts
	DefaultPlaceholder    = "{id}"
)

var (
	ErrInvalidFormat      = errors.New("invalid format")
	ErrInvalidInputFormat = errors.New("invalid input format")
)

// OutputFormats lists the accepted report formats
var OutputFormats = []OutputFormat{FormatText, FormatJSON, FormatCSV}

// InputFormats lists the accepted input formats
var InputFormats = []InputFormat{InputAuto, InputBurp, InputHAR}

// Config holds the application configuration shared by both tools
type Config struct {
	// Logging
	Verbose bool
	Quiet   bool   // Suppress console diagnostics
	LogFile string // File to save system logs (rotated)

	// Extractor
	InputFile      string
	InputFormat    InputFormat
	OutputFile     string       // Report destination, stdout when empty
	OutputFormat   OutputFormat // text, json, csv
	Decompress     bool         // Also scan decompressed HTTP bodies
	MinTokenLength int          // Minimum quoted run length considered a candidate
	Strict         bool         // Fail on unreadable or unparsable input

	// Normalizer
	Placeholder string
}

// New returns a Config populated with defaults
func New() *Config {
	return &Config{
		InputFormat:    InputAuto,
		OutputFormat:   FormatText,
		MinTokenLength: DefaultMinTokenLength,
		Placeholder:    DefaultPlaceholder,
	}
}

// FileConfig represents the configuration file structure
type FileConfig struct {
	Verbose *bool   `mapstructure:"verbose" json:"verbose,omitempty"`
	Quiet   *bool   `mapstructure:"quiet" json:"quiet,omitempty"`
	LogFile *string `mapstructure:"log_file" json:"log_file,omitempty"`

	InputFormat    *string `mapstructure:"input_format" json:"input_format,omitempty"`
	OutputFormat   *string `mapstructure:"output_format" json:"output_format,omitempty"`
	Decompress     *bool   `mapstructure:"decompress" json:"decompress,omitempty"`
	MinTokenLength *int    `mapstructure:"min_token_length" json:"min_token_length,omitempty"`
	Strict         *bool   `mapstructure:"strict" json:"strict,omitempty"`

	Placeholder *string `mapstructure:"placeholder" json:"placeholder,omitempty"`
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, ApplicationName)
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", ApplicationName)
	}

	return "." + ApplicationName
}

// GetDefaultConfigPath returns the first existing config file in the config
// directory, or config.json when none exists
func GetDefaultConfigPath() string {
	dir := GetConfigDir()
	for _, name := range []string{"config.json", "config.yaml", "config.yml", "config.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, "config.json")
}

// LoadConfigFile loads configuration from a JSON, YAML or TOML file.
// A missing file yields an empty FileConfig.
func LoadConfigFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &FileConfig{}, nil
		}
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	return &fc, nil
}

// MergeWithFileConfig merges file configuration with CLI configuration.
// CLI parameters take precedence over file configuration.
func (c *Config) MergeWithFileConfig(fileConfig *FileConfig) {
	if fileConfig == nil {
		return
	}

	if fileConfig.Verbose != nil && !c.Verbose {
		c.Verbose = *fileConfig.Verbose
	}
	if fileConfig.Quiet != nil && !c.Quiet {
		c.Quiet = *fileConfig.Quiet
	}
	if fileConfig.LogFile != nil && c.LogFile == "" {
		c.LogFile = *fileConfig.LogFile
	}

	if fileConfig.InputFormat != nil && c.InputFormat == InputAuto {
		c.InputFormat = InputFormat(*fileConfig.InputFormat)
	}
	if fileConfig.OutputFormat != nil && c.OutputFormat == FormatText {
		c.OutputFormat = OutputFormat(*fileConfig.OutputFormat)
	}
	if fileConfig.Decompress != nil && !c.Decompress {
		c.Decompress = *fileConfig.Decompress
	}
	if fileConfig.MinTokenLength != nil && c.MinTokenLength == DefaultMinTokenLength {
		c.MinTokenLength = *fileConfig.MinTokenLength
	}
	if fileConfig.Strict != nil && !c.Strict {
		c.Strict = *fileConfig.Strict
	}

	if fileConfig.Placeholder != nil && c.Placeholder == DefaultPlaceholder {
		c.Placeholder = *fileConfig.Placeholder
	}
}

// Validate checks the enum and range settings
func (c *Config) Validate() error {
	if !validOutputFormat(c.OutputFormat) {
		return fmt.Errorf("%w '%s', must be one of: %s", ErrInvalidFormat, c.OutputFormat, joinFormats(OutputFormats))
	}
	if !validInputFormat(c.InputFormat) {
		return fmt.Errorf("%w '%s', must be one of: %s", ErrInvalidInputFormat, c.InputFormat, joinFormats(InputFormats))
	}
	if c.MinTokenLength < MinTokenLength || c.MinTokenLength > MaxTokenLength {
		return fmt.Errorf("min-length must be between %d and %d", MinTokenLength, MaxTokenLength)
	}
	if c.Placeholder == "" {
		return fmt.Errorf("placeholder must not be empty")
	}
	return nil
}

func validOutputFormat(f OutputFormat) bool {
	for _, valid := range OutputFormats {
		if f == valid {
			return true
		}
	}
	return false
}

func validInputFormat(f InputFormat) bool {
	for _, valid := range InputFormats {
		if f == valid {
			return true
		}
	}
	return false
}

func joinFormats[T ~string](formats []T) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
