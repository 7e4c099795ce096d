// internal/reserve/resolver.go
package reserve

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxNameBytes is the longest file name component most file systems accept.
const MaxNameBytes = 255

// DefaultMaxAttempts bounds the number of candidates tried for one path.
const DefaultMaxAttempts = 1000

// Claimer atomically claims a path. It must return ErrClaimed when the path
// already exists.
type Claimer interface {
	Claim(path string) error
}

// Resolver turns a desired path into a claimed, unique one. A Resolver is
// meant for one batch and is not safe for concurrent use.
type Resolver struct {
	claimer     Claimer
	maxAttempts int
	seen        map[string]bool // paths returned during this run
}

// NewResolver creates a resolver. maxAttempts <= 0 uses DefaultMaxAttempts.
func NewResolver(claimer Claimer, maxAttempts int) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Resolver{
		claimer:     claimer,
		maxAttempts: maxAttempts,
		seen:        make(map[string]bool),
	}
}

// Reserve claims base if it is free, otherwise the first free "name (N).ext"
// variant. Every candidate is decided by the claimer's exclusive create, so a
// path taken by another process between attempts is skipped, not overwritten.
func (r *Resolver) Reserve(base string) (string, error) {
	dir, name := filepath.Split(base)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		candidate := filepath.Join(dir, CandidateName(stem, ext, attempt))
		if r.seen[candidate] {
			continue
		}

		err := r.claimer.Claim(candidate)
		switch {
		case err == nil:
			r.seen[candidate] = true
			return candidate, nil
		case errors.Is(err, ErrClaimed):
			continue
		default:
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %s after %d attempts", ErrResolutionExhausted, base, r.maxAttempts)
}

// Reserved returns the paths claimed by this resolver.
func (r *Resolver) Reserved() []string {
	paths := make([]string, 0, len(r.seen))
	for p := range r.seen {
		paths = append(paths, p)
	}
	return paths
}

// CandidateName builds the file name for the given attempt. Attempt 0 is the
// plain name; later attempts insert " (N)" before the extension. The stem is
// shortened so the result fits in MaxNameBytes.
func CandidateName(stem, ext string, attempt int) string {
	suffix := ""
	if attempt > 0 {
		suffix = fmt.Sprintf(" (%d)", attempt)
		if stem == "" {
			suffix = fmt.Sprintf("(%d)", attempt)
		}
	}

	budget := MaxNameBytes - len(suffix) - len(ext)
	if budget < 0 {
		budget = 0
	}
	stem = truncateBytes(stem, budget)
	if suffix != "" {
		stem = strings.TrimRight(stem, " ")
	}
	return stem + suffix + ext
}

// FitName shortens the stem of name so it fits in MaxNameBytes.
func FitName(name string) string {
	ext := filepath.Ext(name)
	return CandidateName(strings.TrimSuffix(name, ext), ext, 0)
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
