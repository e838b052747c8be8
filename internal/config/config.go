// Package config provides configuration loading and defaults for the
// sessionlamp daemon.
//
// Configuration is loaded from a TOML file in the user's data directory.
// The package covers scan behavior (log root, recency window, display cap),
// display formatting, pricing sources, and logging, with sensible defaults.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"sessionlamp/internal/atomicfile"
	"sessionlamp/internal/paths"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version"`
	// Scan holds log discovery and pass scheduling settings.
	Scan ScanConfig `toml:"scan"`
	// Display holds formatting settings for the published session view.
	Display DisplayConfig `toml:"display"`
	// Pricing holds cost estimation settings.
	Pricing PricingConfig `toml:"pricing"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// ScanConfig holds log discovery and pass scheduling settings.
type ScanConfig struct {
	// LogRoot is the directory containing per-project session log
	// directories. Empty means the default ~/.claude/projects.
	LogRoot string `toml:"log_root"`
	// IntervalSeconds is the periodic pass cadence.
	IntervalSeconds int `toml:"interval_seconds"`
	// IdleTimeoutSeconds is the recency window: logs whose modification
	// time is older than this are not considered candidate sessions.
	IdleTimeoutSeconds int `toml:"idle_timeout_seconds"`
	// MaxSessions caps the published view across all projects.
	MaxSessions int `toml:"max_sessions"`
	// ExcludeProjects is a list of doublestar glob patterns matched against
	// project directory names. Matching directories are skipped entirely;
	// the default excludes non-interactive agent storage.
	ExcludeProjects []string `toml:"exclude_projects"`
}

// DisplayConfig holds formatting settings for the published session view.
type DisplayConfig struct {
	// ModelName controls model name formatting: "short", "full", or "raw".
	ModelName string `toml:"model_name"`
	// TokenFormat controls token count formatting: "short" or "full".
	TokenFormat string `toml:"token_format"`
}

// PricingConfig holds settings for where and how pricing data is loaded.
type PricingConfig struct {
	// Enabled turns per-session cost estimation on or off.
	Enabled bool `toml:"enabled"`
	// Source selects the pricing data source: "url", "file", or "static".
	Source string `toml:"source"`
	// URL is a custom pricing endpoint (overrides the default LiteLLM URL).
	URL string `toml:"url,omitempty"`
	// File is the local file path for source "file".
	File string `toml:"file,omitempty"`
	// Models holds inline per-model pricing for source "static".
	Models map[string]ModelPricingConfig `toml:"models,omitempty"`
}

// ModelPricingConfig holds per-token pricing for a model in static config.
type ModelPricingConfig struct {
	// InputPerToken is the cost per input token in USD.
	InputPerToken float64 `toml:"input_per_token"`
	// CacheReadPerToken is the cost per cache-read token in USD.
	CacheReadPerToken float64 `toml:"cache_read_per_token"`
	// CacheCreationPerToken is the cost per cache-creation token in USD.
	CacheCreationPerToken float64 `toml:"cache_creation_per_token"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			IntervalSeconds:    30,
			IdleTimeoutSeconds: 300,
			MaxSessions:        10,
			ExcludeProjects:    []string{"*vibe-kanban*"},
		},
		Display: DisplayConfig{
			ModelName:   "short",
			TokenFormat: "short",
		},
		Pricing: PricingConfig{
			Enabled: false,
			Source:  "url",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
// For this project all defaults are good examples.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig. Unknown versions are
// normalized to the current schema with a warning; there is nothing to
// migrate in v1.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Version != CurrentVersion {
		slog.Warn("unknown config version, normalizing", "version", cfg.Version, "current", CurrentVersion)
		cfg.Version = CurrentVersion
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Scan.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be > 0, got %d", c.Scan.IntervalSeconds)
	}
	if c.Scan.IdleTimeoutSeconds <= 0 {
		return fmt.Errorf("idle_timeout_seconds must be > 0, got %d", c.Scan.IdleTimeoutSeconds)
	}
	if c.Scan.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be > 0, got %d", c.Scan.MaxSessions)
	}
	for _, pattern := range c.Scan.ExcludeProjects {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude_projects pattern %q", pattern)
		}
	}

	switch c.Display.ModelName {
	case "short", "full", "raw":
	default:
		return fmt.Errorf("invalid display.model_name %q: must be short, full, or raw", c.Display.ModelName)
	}

	switch c.Display.TokenFormat {
	case "short", "full":
	default:
		return fmt.Errorf("invalid display.token_format %q: must be short or full", c.Display.TokenFormat)
	}

	switch c.Pricing.Source {
	case "url", "file", "static":
	default:
		return fmt.Errorf("invalid pricing.source %q: must be url, file, or static", c.Pricing.Source)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	return nil
}

// ///////////////////////////////////////////////
// Scan Helpers
// ///////////////////////////////////////////////

// ResolvedLogRoot returns the configured log root, falling back to the
// platform default when unset.
func (c *Config) ResolvedLogRoot() string {
	if c.Scan.LogRoot != "" {
		return c.Scan.LogRoot
	}
	return paths.DefaultLogRoot()
}

// IsExcludedProject reports whether a project directory name matches any of
// the configured exclusion patterns.
func (c *Config) IsExcludedProject(name string) bool {
	for _, pattern := range c.Scan.ExcludeProjects {
		matched, err := doublestar.Match(pattern, name)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Formatting Helpers
// ///////////////////////////////////////////////

// FormatTokens formats a token count according to the given format.
func FormatTokens(tokens int64, format string) string {
	if format == "full" {
		return FormatWithCommas(tokens)
	}
	return FormatShort(tokens)
}

// FormatShort formats a number in abbreviated form: 1M, 1.5M, 234K, 500.
// Exact multiples omit the decimal: 1000 -> "1K", 2000000 -> "2M".
func FormatShort(n int64) string {
	scale := func(div int64, suffix string) string {
		if n%div == 0 {
			return strconv.FormatInt(n/div, 10) + suffix
		}
		return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + suffix
	}
	switch {
	case n >= 1_000_000:
		return scale(1_000_000, "M")
	case n >= 1_000:
		return scale(1_000, "K")
	}
	return strconv.FormatInt(n, 10)
}

// FormatWithCommas formats a number with comma separators: 1,500,000.
func FormatWithCommas(n int64) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

// FormatModelName formats a model ID according to the given style.
func FormatModelName(modelID, format string) string {
	switch format {
	case "raw":
		return modelID
	case "full":
		return modelTitle(modelID)
	}
	return modelTitle(trimFamilyPrefix(modelID))
}

var familyPrefixes = []string{"claude-", "gpt-", "gemini-", "o1-", "o3-"}

// trimFamilyPrefix drops a known vendor prefix: "claude-opus-4-6" -> "opus-4-6".
func trimFamilyPrefix(id string) string {
	for _, p := range familyPrefixes {
		if rest, ok := strings.CutPrefix(id, p); ok {
			return rest
		}
	}
	return id
}

// modelTitle converts a hyphenated model ID into a display name. Each segment
// is capitalized; adjacent numeric segments join with dots ("4-6" -> "4.6").
func modelTitle(s string) string {
	var words []string
	prevNumeric := false
	for _, seg := range strings.Split(s, "-") {
		if seg == "" {
			prevNumeric = false
			continue
		}
		numeric := isDigits(seg)
		if numeric && prevNumeric {
			words[len(words)-1] += "." + seg
		} else {
			words = append(words, strings.ToUpper(seg[:1])+seg[1:])
		}
		prevNumeric = numeric
	}
	return strings.Join(words, " ")
}

// isDigits reports whether s is non-empty and all ASCII digits.
func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
