// Package config loads the trainer configuration from a YAML file, falling
// back to built-in defaults when no file exists.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration. Components receive the
// sections they need at construction; there is no ambient global state.
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Paths    PathsConfig    `yaml:"paths"`
	Plot     PlotConfig     `yaml:"plot"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AudioConfig controls the capture and playback streams.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	ChunkSize  int `yaml:"chunk_size"` // period size in frames
}

// AnalysisConfig controls feature extraction.
type AnalysisConfig struct {
	FrameLength     int     `yaml:"frame_length"`
	HopLength       int     `yaml:"hop_length"`
	TrimThresholdDB float64 `yaml:"trim_threshold_db"`
}

// PathsConfig is the on-disk layout; all three are auto-created at startup.
type PathsConfig struct {
	ReferenceDir  string `yaml:"reference_dir"`
	RecordingsDir string `yaml:"recordings_dir"`
	TempDir       string `yaml:"temp_dir"`
}

// PlotConfig controls the rendered comparison figures.
type PlotConfig struct {
	DPI    int     `yaml:"dpi"`
	Width  float64 `yaml:"width"`  // inches
	Height float64 `yaml:"height"` // inches
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration: CD-quality mono capture and
// the directory layout relative to the working directory.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   1,
			ChunkSize:  1024,
		},
		Analysis: AnalysisConfig{
			FrameLength:     2048,
			HopLength:       512,
			TrimThresholdDB: 20,
		},
		Paths: PathsConfig{
			ReferenceDir:  "references",
			RecordingsDir: "user_recordings",
			TempDir:       "temp",
		},
		Plot: PlotConfig{
			DPI:    100,
			Width:  10,
			Height: 6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path and overlays it onto the defaults. A missing file is not
// an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("audio.channels must be 1 (mono), got %d", c.Audio.Channels)
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio.chunk_size must be positive, got %d", c.Audio.ChunkSize)
	}
	if c.Analysis.FrameLength <= 0 {
		return fmt.Errorf("analysis.frame_length must be positive, got %d", c.Analysis.FrameLength)
	}
	if c.Analysis.TrimThresholdDB <= 0 {
		return fmt.Errorf("analysis.trim_threshold_db must be positive, got %v", c.Analysis.TrimThresholdDB)
	}
	if c.Plot.DPI <= 0 || c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot dimensions must be positive")
	}
	for _, dir := range []string{c.Paths.ReferenceDir, c.Paths.RecordingsDir, c.Paths.TempDir} {
		if dir == "" {
			return fmt.Errorf("paths must not be empty")
		}
	}
	return nil
}

// SlogLevel maps the configured level name onto slog.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
