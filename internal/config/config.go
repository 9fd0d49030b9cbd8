package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// EnvPrefix prefixes every environment override
const EnvPrefix = "SPLICER_"

// Config holds all application configuration
type Config struct {
	// Core settings
	TempDir     string `yaml:"temp_dir"`
	Concurrency int    `yaml:"concurrency"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Export settings
	Export ExportConfig `yaml:"export"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
}

type ExportConfig struct {
	// Width and Height are the canvas used when a project sets none
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	FPS          int           `yaml:"fps"`
	ReleaseGrace time.Duration `yaml:"release_grace"`
	BaseColor    string        `yaml:"base_color"`
	SampleRate   int           `yaml:"sample_rate"`
	Prescale     bool          `yaml:"prescale"`
}

// Load reads configuration from file or returns defaults. A .env file in
// the working directory is loaded first and SPLICER_* variables override
// file values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// applyEnv overrides fields from SPLICER_* variables
func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"TEMP_DIR":     &c.TempDir,
		"FFMPEG_PATH":  &c.FFmpeg.BinaryPath,
		"FFPROBE_PATH": &c.FFmpeg.ProbePath,
		"PRESET":       &c.FFmpeg.Preset,
	}
	for key, dst := range strs {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"THREADS":     &c.FFmpeg.Threads,
		"CONCURRENCY": &c.Concurrency,
		"CRF":         &c.FFmpeg.CRF,
	}
	for key, dst := range ints {
		v := getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, v, err)
		}
		*dst = n
	}

	if v := getenv(EnvPrefix + "RELEASE_GRACE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sRELEASE_GRACE=%q: %w", EnvPrefix, v, err)
		}
		c.Export.ReleaseGrace = d
	}
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		TempDir:     "./temp",
		Concurrency: 4,
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
			VideoCodec: "libx264",
			AudioCodec: "aac",
		},
		Export: ExportConfig{
			Width:        1920,
			Height:       1080,
			FPS:          30,
			ReleaseGrace: 7 * time.Second,
			BaseColor:    "black",
			SampleRate:   44100,
			Prescale:     true,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./splicer.yaml",
		"./splicer.yml",
		filepath.Join(os.Getenv("HOME"), ".splicer", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
