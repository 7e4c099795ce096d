// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Output      OutputConfig      `toml:"output"`
	Naming      NamingConfig      `toml:"naming"`
	Download    DownloadConfig    `toml:"download"`
	Reservation ReservationConfig `toml:"reservation"`
	History     HistoryConfig     `toml:"history"`
	Log         LogConfig         `toml:"log"`
}

type OutputConfig struct {
	Dir              string `toml:"dir"`
	SkipExisting     bool   `toml:"skip_existing"`
	GenerateManifest bool   `toml:"generate_manifest"`
	ManifestName     string `toml:"manifest_name"`
}

type NamingConfig struct {
	Template          string `toml:"template"`
	SequenceTemplate  string `toml:"sequence_template"`
	SequenceWidth     int    `toml:"sequence_width"`
	AddSequenceNumber bool   `toml:"add_sequence_number"`
	// PlaylistDetection is "flag" (caller says so) or "title" (batch title contains "playlist").
	PlaylistDetection string `toml:"playlist_detection"`
}

type DownloadConfig struct {
	Container string `toml:"container"`
	Quality   string `toml:"quality"`
}

type ReservationConfig struct {
	MaxAttempts int    `toml:"max_attempts"`
	OnAbort     string `toml:"on_abort"` // "keep" or "release"
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file, skipping
// validation. Used by commands that only display configuration.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	cfg := &Config{}
	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Output.ManifestName == "" {
		c.Output.ManifestName = "PlaylistInfo.txt"
	}
	if c.Naming.Template == "" {
		c.Naming.Template = "{title}"
	}
	if c.Naming.SequenceTemplate == "" {
		c.Naming.SequenceTemplate = "{num}-{title}"
	}
	if c.Naming.PlaylistDetection == "" {
		c.Naming.PlaylistDetection = "flag"
	}
	if c.Download.Container == "" {
		c.Download.Container = "mp4"
	}
	if c.Download.Quality == "" {
		c.Download.Quality = "highest"
	}
	if c.Reservation.MaxAttempts == 0 {
		c.Reservation.MaxAttempts = 1000
	}
	if c.Reservation.OnAbort == "" {
		c.Reservation.OnAbort = "keep"
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces environment variable references and returns the
// names (or :? messages) of variables that could not be resolved.
// Unresolved references are left unchanged. Comments are not substituted.
func substituteEnvVars(content string) (string, []string) {
	var missing []string

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		code, comment := splitComment(line)
		code = envVarPattern.ReplaceAllStringFunc(code, func(match string) string {
			value, miss := resolveEnvVar(match)
			if miss != "" {
				missing = append(missing, miss)
			}
			return value
		})
		lines[i] = code + comment
	}

	return strings.Join(lines, "\n"), missing
}

// resolveEnvVar returns the replacement for one reference, and a non-empty
// miss when the variable is required but unset.
func resolveEnvVar(match string) (value, miss string) {
	parts := envVarPattern.FindStringSubmatch(match)
	name, op, arg := parts[1], parts[2], parts[3]
	v, ok := os.LookupEnv(name)

	switch op {
	case ":-":
		if !ok || v == "" {
			return arg, ""
		}
		return v, ""
	case ":?":
		if !ok || v == "" {
			return match, fmt.Sprintf("%s: %s", name, strings.TrimSpace(arg))
		}
		return v, ""
	default:
		if !ok {
			return match, name
		}
		return v, ""
	}
}

// splitComment splits a TOML line at the first '#' outside a string.
func splitComment(line string) (code, comment string) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '"' && c == '\\':
			i++ // skip escaped character
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return line[:i], line[i:]
		}
	}
	return line, ""
}
