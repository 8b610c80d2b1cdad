// Package config provides Viper-based configuration loading for the importer.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ProcessorsConfig holds post-processor discovery settings.
type ProcessorsConfig struct {
	// Root is the directory scanned for post-processor scripts. Empty disables
	// discovery.
	Root string `mapstructure:"root"`
	// Extension is the script file extension, including the leading dot.
	Extension string `mapstructure:"extension"`
	// InstructionLimit caps the Lua instructions of a single processor call.
	// Zero selects the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// OutputConfig holds settings for generated scenes.
type OutputConfig struct {
	// ProjectRoot is the Godot project directory. When set, resource paths
	// under it are written as res:// paths.
	ProjectRoot string `mapstructure:"project_root"`
	// SceneExtension is the extension of generated scenes.
	SceneExtension string `mapstructure:"scene_extension"`
}

// Localize maps a filesystem path to the path written into scene files.
//
// Postcondition: paths under ProjectRoot become "res://<relative path>"; all
// other paths are returned unchanged.
func (o OutputConfig) Localize(path string) string {
	if o.ProjectRoot == "" {
		return path
	}
	rel, err := filepath.Rel(o.ProjectRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return "res://" + filepath.ToSlash(rel)
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Processors ProcessorsConfig `mapstructure:"processors"`
	Output     OutputConfig     `mapstructure:"output"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateProcessors(c.Processors); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateOutput(c.Output); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateProcessors(p ProcessorsConfig) error {
	var errs []string
	if !strings.HasPrefix(p.Extension, ".") || len(p.Extension) < 2 {
		errs = append(errs, fmt.Sprintf("processors.extension must start with '.', got %q", p.Extension))
	}
	if p.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("processors.instruction_limit must be >= 0, got %d", p.InstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateOutput(o OutputConfig) error {
	if o.SceneExtension != "tscn" {
		return errors.New("output.scene_extension must be \"tscn\"")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Precondition: path must be empty or a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and LDTK_ environment
// overrides registered, ready for a config file or flag bindings.
//
// Postcondition: returns a non-nil Viper.
func NewViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with LDTK_ prefix
	v.SetEnvPrefix("LDTK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("processors.root", "")
	v.SetDefault("processors.extension", ".lua")
	v.SetDefault("processors.instruction_limit", 0)

	v.SetDefault("output.project_root", "")
	v.SetDefault("output.scene_extension", "tscn")
}
