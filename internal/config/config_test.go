package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file yields empty config", func(t *testing.T) {
		fc, err := LoadConfigFile(filepath.Join(dir, "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, &FileConfig{}, fc)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		data := `{"output_format": "csv", "min_token_length": 32, "decompress": true, "placeholder": "<n>"}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		fc, err := LoadConfigFile(path)
		require.NoError(t, err)
		require.NotNil(t, fc.OutputFormat)
		assert.Equal(t, "csv", *fc.OutputFormat)
		require.NotNil(t, fc.MinTokenLength)
		assert.Equal(t, 32, *fc.MinTokenLength)
		require.NotNil(t, fc.Decompress)
		assert.True(t, *fc.Decompress)
		require.NotNil(t, fc.Placeholder)
		assert.Equal(t, "<n>", *fc.Placeholder)
		assert.Nil(t, fc.Strict)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		data := "input_format: har\nstrict: true\nlog_file: /tmp/sift.log\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		fc, err := LoadConfigFile(path)
		require.NoError(t, err)
		require.NotNil(t, fc.InputFormat)
		assert.Equal(t, "har", *fc.InputFormat)
		require.NotNil(t, fc.Strict)
		assert.True(t, *fc.Strict)
		require.NotNil(t, fc.LogFile)
		assert.Equal(t, "/tmp/sift.log", *fc.LogFile)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"verbose": `), 0o644))

		_, err := LoadConfigFile(path)
		assert.Error(t, err)
	})
}

func TestMergeWithFileConfig(t *testing.T) {
	csv := "csv"
	length := 40
	placeholder := "N"
	strict := true

	fc := &FileConfig{
		OutputFormat:   &csv,
		MinTokenLength: &length,
		Placeholder:    &placeholder,
		Strict:         &strict,
	}

	t.Run("file fills defaults", func(t *testing.T) {
		cfg := New()
		cfg.MergeWithFileConfig(fc)

		assert.Equal(t, FormatCSV, cfg.OutputFormat)
		assert.Equal(t, 40, cfg.MinTokenLength)
		assert.Equal(t, "N", cfg.Placeholder)
		assert.True(t, cfg.Strict)
	})

	t.Run("cli wins", func(t *testing.T) {
		cfg := New()
		cfg.OutputFormat = FormatJSON
		cfg.MinTokenLength = 24
		cfg.MergeWithFileConfig(fc)

		assert.Equal(t, FormatJSON, cfg.OutputFormat)
		assert.Equal(t, 24, cfg.MinTokenLength)
	})

	t.Run("nil file config", func(t *testing.T) {
		cfg := New()
		cfg.MergeWithFileConfig(nil)
		assert.Equal(t, New(), cfg)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "bad output format", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: ErrInvalidFormat},
		{name: "bad input format", mutate: func(c *Config) { c.InputFormat = "pcap" }, wantErr: ErrInvalidInputFormat},
		{name: "short min length", mutate: func(c *Config) { c.MinTokenLength = 2 }},
		{name: "min length over repeat limit", mutate: func(c *Config) { c.MinTokenLength = 1001 }},
		{name: "min length at repeat limit", mutate: func(c *Config) { c.MinTokenLength = MaxTokenLength }},
		{name: "empty placeholder", mutate: func(c *Config) { c.Placeholder = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()

			switch {
			case tt.name == "defaults", tt.name == "min length at repeat limit":
				assert.NoError(t, err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", ApplicationName), GetConfigDir())
	assert.Equal(t, filepath.Join("/xdg", ApplicationName, "config.json"), GetDefaultConfigPath())
}
