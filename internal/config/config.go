// Package config provides configuration management for the eligibility pipeline.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingPartnersDir  = errors.New("pipeline.partners_dir is required")
	ErrMissingProcessedDir = errors.New("pipeline.output.processed_dir is required")
	ErrMissingErrorDir     = errors.New("pipeline.output.error_dir is required")
	ErrMissingUnifiedFile  = errors.New("pipeline.output.unified_file is required")
	ErrInvalidLogLevel     = errors.New("pipeline.logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("pipeline.logging.format must be 'text' or 'json'")
)

// ManifestFileName is written to the processed directory when manifests are enabled.
const ManifestFileName = "manifest.yaml"

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// PipelineConfig contains pipeline-wide settings.
type PipelineConfig struct {
	PartnersDir string        `yaml:"partners_dir"`
	InputRoot   string        `yaml:"input_root"`
	Output      OutputConfig  `yaml:"output"`
	Logging     LoggingConfig `yaml:"logging"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// OutputConfig defines where results are written.
type OutputConfig struct {
	ProcessedDir  string `yaml:"processed_dir"`
	ErrorDir      string `yaml:"error_dir"`
	UnifiedFile   string `yaml:"unified_file"`
	WriteManifest bool   `yaml:"write_manifest"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig defines metrics export.
type MetricsConfig struct {
	// Textfile is a path for a Prometheus textfile export; empty disables it.
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			PartnersDir: "data/config/partners",
			InputRoot:   "data",
			Output: OutputConfig{
				ProcessedDir:  "data/output/processed",
				ErrorDir:      "data/output/errors",
				UnifiedFile:   "unified_eligibility.csv",
				WriteManifest: true,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file. Fields missing from the
// file keep their DefaultConfig values.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	p := c.Pipeline

	if p.PartnersDir == "" {
		return ErrMissingPartnersDir
	}

	if p.Output.ProcessedDir == "" {
		return ErrMissingProcessedDir
	}

	if p.Output.ErrorDir == "" {
		return ErrMissingErrorDir
	}

	if p.Output.UnifiedFile == "" {
		return ErrMissingUnifiedFile
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[p.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if p.Logging.Format != "text" && p.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// UnifiedPath returns the path of the unified dataset.
func (c *Config) UnifiedPath() string {
	return joinPath(c.Pipeline.Output.ProcessedDir, c.Pipeline.Output.UnifiedFile)
}

// ManifestPath returns the path of the run manifest.
func (c *Config) ManifestPath() string {
	return joinPath(c.Pipeline.Output.ProcessedDir, ManifestFileName)
}

// ProcessedPath returns the processed output path for a partner.
func (c *Config) ProcessedPath(p *PartnerConfig) string {
	return joinPath(c.Pipeline.Output.ProcessedDir, p.ProcessedFileName())
}

// ErrorPath returns the error output path for a partner.
func (c *Config) ErrorPath(p *PartnerConfig) string {
	return joinPath(c.Pipeline.Output.ErrorDir, p.ErrorFileName())
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{PartnersDir: %s, Processed: %s, Errors: %s}",
		c.Pipeline.PartnersDir,
		c.Pipeline.Output.ProcessedDir,
		c.Pipeline.Output.ErrorDir,
	)
}
