// Package config loads solver configuration from the environment.
//
// Values are read from an optional .env file (via godotenv) and then from the
// process environment. The fixed constants of the captcha family (binarization
// threshold, canonical glyph shape, glyph count) are configuration values so
// the solver can be pointed at other fixed-length captcha families.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for the 5-glyph captcha family.
const (
	DefaultBankPath   = "model/templates.yaml"
	DefaultThreshold  = 127
	DefaultGlyphRows  = 10
	DefaultGlyphCols  = 8
	DefaultGlyphCount = 5
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Config holds solver configuration.
type Config struct {
	// Template bank location (.yaml, .yml, .yaml.xz, .db, .sqlite)
	BankPath string

	// Gray values above Threshold are background, all others ink.
	Threshold int

	// Canonical glyph shape every crop is normalized to.
	GlyphRows int
	GlyphCols int

	// Number of glyphs in every captcha.
	GlyphCount int

	// Directory for debug glyph dumps; empty disables dumping.
	DebugDir string

	LogLevel  string
	LogFormat string
}

// Default returns the configuration for the standard 5-glyph captcha.
func Default() *Config {
	return &Config{
		BankPath:   DefaultBankPath,
		Threshold:  DefaultThreshold,
		GlyphRows:  DefaultGlyphRows,
		GlyphCols:  DefaultGlyphCols,
		GlyphCount: DefaultGlyphCount,
		LogLevel:   DefaultLogLevel,
		LogFormat:  DefaultLogFormat,
	}
}

// Load reads configuration from envFile (if it exists) and the environment.
// An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		BankPath:  getEnvOrDefault("CAPTCHA_BANK_PATH", DefaultBankPath),
		DebugDir:  getEnvOrDefault("CAPTCHA_DEBUG_DIR", ""),
		LogLevel:  getEnvOrDefault("CAPTCHA_LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnvOrDefault("CAPTCHA_LOG_FORMAT", DefaultLogFormat),
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"CAPTCHA_THRESHOLD", DefaultThreshold, &cfg.Threshold},
		{"CAPTCHA_GLYPH_ROWS", DefaultGlyphRows, &cfg.GlyphRows},
		{"CAPTCHA_GLYPH_COLS", DefaultGlyphCols, &cfg.GlyphCols},
		{"CAPTCHA_GLYPH_COUNT", DefaultGlyphCount, &cfg.GlyphCount},
	}
	for _, v := range ints {
		n, err := getEnvAsIntOrDefault(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dst = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that every value is usable by the pipeline.
func (c *Config) Validate() error {
	if c.BankPath == "" {
		return fmt.Errorf("CAPTCHA_BANK_PATH is required")
	}

	// 255 would classify every pixel as ink.
	if c.Threshold < 0 || c.Threshold > 254 {
		return fmt.Errorf("CAPTCHA_THRESHOLD must be between 0 and 254, got %d", c.Threshold)
	}

	if c.GlyphRows < 1 || c.GlyphCols < 1 {
		return fmt.Errorf("glyph shape must be at least 1x1, got %dx%d", c.GlyphRows, c.GlyphCols)
	}

	if c.GlyphCount < 1 {
		return fmt.Errorf("CAPTCHA_GLYPH_COUNT must be at least 1, got %d", c.GlyphCount)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("CAPTCHA_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default.
// A set but malformed value is an error.
func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, valueStr)
	}

	return value, nil
}
