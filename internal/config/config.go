// Package config provides configuration management for dockerfile-lsp.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "DOCKERFILE_LSP"

// Config represents the application configuration.
type Config struct {
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Log         LogConfig         `mapstructure:"log"`
	LSP         LSPConfig         `mapstructure:"lsp"`
	Output      OutputConfig      `mapstructure:"output"`
}

// DiagnosticsConfig holds the severities of the configurable rules.
type DiagnosticsConfig struct {
	DeprecatedMaintainer string `mapstructure:"deprecated_maintainer"`
	InstructionCasing    string `mapstructure:"instruction_casing"`
}

// LogConfig controls the diagnostic log written to stderr.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// LSPConfig contains language server settings.
type LSPConfig struct {
	// Debounce delays validation after a change. Zero validates immediately.
	Debounce time.Duration `mapstructure:"debounce"`
}

// OutputConfig contains settings for the lint command output.
type OutputConfig struct {
	// Color is one of "auto", "always" or "never".
	Color string `mapstructure:"color"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("diagnostics.deprecated_maintainer", dockerfile.SeverityWarning.String())
	v.SetDefault("diagnostics.instruction_casing", dockerfile.SeverityWarning.String())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("lsp.debounce", time.Duration(0))
	v.SetDefault("output.color", "auto")

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".dockerfile-lsp")
		v.AddConfigPath(homeDir())
		v.AddConfigPath(filepath.Join(homeDir(), ".dockerfile-lsp"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if config.LSP.Debounce < 0 {
		return nil, errors.Errorf("lsp.debounce must not be negative, got %s", config.LSP.Debounce)
	}
	switch config.Output.Color {
	case "auto", "always", "never":
	default:
		return nil, errors.Errorf("output.color must be auto, always or never, got %q", config.Output.Color)
	}

	return &config, nil
}

// ValidatorSettings converts the diagnostics section into validator settings.
func (c *Config) ValidatorSettings() (dockerfile.ValidatorSettings, error) {
	settings := dockerfile.DefaultSettings()

	maintainer, err := dockerfile.ParseSeverity(c.Diagnostics.DeprecatedMaintainer)
	if err != nil {
		return settings, errors.Wrap(err, "diagnostics.deprecated_maintainer")
	}
	casing, err := dockerfile.ParseSeverity(c.Diagnostics.InstructionCasing)
	if err != nil {
		return settings, errors.Wrap(err, "diagnostics.instruction_casing")
	}

	settings.DeprecatedMaintainer = maintainer
	settings.InstructionCasing = casing
	return settings, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}
