// Package config handles stripper configuration loading and management.
package config

import "fmt"

// Config holds all stripper settings.
type Config struct {
	Compress CompressConfig `yaml:"compress"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CompressConfig holds strip building settings.
type CompressConfig struct {
	LegacyTail    bool `yaml:"legacy_tail"`    // Reproduce the original tail lookup
	ProgressEvery int  `yaml:"progress_every"` // Log every N-th progress report (0 = off)
	Workers       int  `yaml:"workers"`        // Parallel files in batch mode
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Format        string `yaml:"format"`         // "strp" or "yaml"
	Compression   string `yaml:"compression"`    // "none" or "zstd" (strp only)
	IncludeStrips bool   `yaml:"include_strips"` // Write strips into yaml reports
	RestartIndex  uint32 `yaml:"restart_index"`  // Separator used by flatten
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Output formats.
const (
	FormatSTRP = "strp"
	FormatYAML = "yaml"
)

// Output compression modes.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Compress: CompressConfig{
			LegacyTail:    false,
			ProgressEvery: 83,
			Workers:       4,
		},
		Output: OutputConfig{
			Format:        FormatSTRP,
			Compression:   CompressionNone,
			IncludeStrips: false,
			RestartIndex:  0xFFFFFFFF,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatSTRP, FormatYAML:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	switch c.Output.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return fmt.Errorf("unknown output compression %q", c.Output.Compression)
	}
	if c.Compress.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Compress.Workers)
	}
	if c.Compress.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must not be negative, got %d", c.Compress.ProgressEvery)
	}
	return nil
}
