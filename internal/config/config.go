// Package config loads Parley's runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config is the bot-side configuration. None of it reaches the command
// pipeline; it only shapes the collaborators wired around it.
type Config struct {
	// Prefix is the group pre-filter applied before any grammar runs.
	Prefix string `json:"prefix,omitempty"`
	// GymFile is the path of the YAML gym directory.
	GymFile string `json:"gymFile,omitempty"`
	// Target selects the default output surface for rendering.
	Target string `json:"target,omitempty"`
	// Dispatch selects the group strategy for the run loop: "one"
	// (exactly-one-match) or "first" (first-match).
	Dispatch string `json:"dispatch,omitempty"`
	// Watch reloads the gym directory when the file changes.
	Watch bool `json:"watch,omitempty"`
	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Prefix:   "!",
		GymFile:  "gyms.yaml",
		Target:   "text",
		Dispatch: "one",
		LogLevel: "INFO",
	}
}

// Load reads configuration from an optional JSONC file, layered over
// the defaults and under PARLEY_* environment overrides. A missing
// file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	// Strip JSONC comments, then resolve {env:} and {file:} placeholders.
	data = jsonc.ToJSON(data)
	data = interpolate(data, filepath.Dir(path))

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

var (
	envRef  = regexp.MustCompile(`\{env:([^}]+)\}`)
	fileRef = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	str = envRef.ReplaceAllStringFunc(str, func(match string) string {
		name := envRef.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	str = fileRef.ReplaceAllStringFunc(str, func(match string) string {
		path := fileRef.FindStringSubmatch(match)[1]
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return match // leave unresolved
		}
		return strings.TrimSpace(string(content))
	})

	return []byte(str)
}

// applyEnvOverrides applies PARLEY_* environment variables, the
// highest-priority source.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARLEY_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv("PARLEY_GYM_FILE"); v != "" {
		cfg.GymFile = v
	}
	if v := os.Getenv("PARLEY_TARGET"); v != "" {
		cfg.Target = v
	}
	if v := os.Getenv("PARLEY_DISPATCH"); v != "" {
		cfg.Dispatch = v
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) validate() error {
	switch c.Dispatch {
	case "one", "first":
	default:
		return fmt.Errorf("config: dispatch must be \"one\" or \"first\", got %q", c.Dispatch)
	}
	return nil
}
