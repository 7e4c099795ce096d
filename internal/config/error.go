// internal/config/error.go
package config

import (
	"fmt"
	"strings"
)

// ConfigError aggregates everything wrong with one config file.
type ConfigError struct {
	Path    string   // Config file path
	Missing []string // Unresolved environment variables
	Errors  []string // Validation errors, "section.key: message"
}

// SectionErrors holds the validation problems of one TOML table.
type SectionErrors struct {
	Section  string   // "naming", "reservation", ...
	Problems []string // "key: message"
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "config %s:\n", e.Path)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "missing environment variables: %s\n", strings.Join(e.Missing, ", "))
	}
	if len(e.Errors) > 0 {
		b.WriteString("validation failed:\n")
		for _, s := range e.Sections() {
			fmt.Fprintf(&b, "  [%s]\n", s.Section)
			for _, p := range s.Problems {
				fmt.Fprintf(&b, "    - %s\n", p)
			}
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// HasErrors returns true if there are any errors.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}

// Sections groups the validation errors by TOML table, in the order the
// tables first appear. Errors without a "section." prefix go under "general".
func (e *ConfigError) Sections() []SectionErrors {
	var out []SectionErrors
	index := make(map[string]int)

	for _, msg := range e.Errors {
		section, problem := "general", msg
		if key, rest, ok := strings.Cut(msg, ": "); ok {
			if sec, field, ok := strings.Cut(key, "."); ok {
				section, problem = sec, field+": "+rest
			}
		}

		i, ok := index[section]
		if !ok {
			i = len(out)
			index[section] = i
			out = append(out, SectionErrors{Section: section})
		}
		out[i].Problems = append(out[i].Problems, problem)
	}
	return out
}
