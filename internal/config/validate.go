// internal/config/validate.go
package config

import (
	"fmt"
	"path/filepath"

	"github.com/vmunix/batchprep/internal/media"
	"github.com/vmunix/batchprep/internal/naming"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validPlaylistDetection = map[string]bool{
	"flag": true, "title": true,
}

var validOnAbort = map[string]bool{
	"keep": true, "release": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Naming
	if err := naming.Validate(c.Naming.Template); err != nil {
		errs = append(errs, fmt.Sprintf("naming.template: %v", err))
	}
	if err := naming.Validate(c.Naming.SequenceTemplate); err != nil {
		errs = append(errs, fmt.Sprintf("naming.sequence_template: %v", err))
	}
	if c.Naming.SequenceWidth < 0 || c.Naming.SequenceWidth > 9 {
		errs = append(errs, fmt.Sprintf("naming.sequence_width: must be between 0 and 9, got %d", c.Naming.SequenceWidth))
	}
	if !validPlaylistDetection[c.Naming.PlaylistDetection] {
		errs = append(errs, fmt.Sprintf("naming.playlist_detection: must be one of flag, title; got %q", c.Naming.PlaylistDetection))
	}

	// Download defaults
	if _, err := media.ParseContainer(c.Download.Container); err != nil {
		errs = append(errs, fmt.Sprintf("download.container: %v", err))
	}
	if _, err := media.ParseQualityPreference(c.Download.Quality); err != nil {
		errs = append(errs, fmt.Sprintf("download.quality: %v", err))
	}

	// Output
	if name := c.Output.ManifestName; name != "" && (filepath.Base(name) != name || name == "." || name == "..") {
		errs = append(errs, fmt.Sprintf("output.manifest_name: must be a plain file name, got %q", name))
	}

	// Reservation
	if c.Reservation.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("reservation.max_attempts: must be at least 1, got %d", c.Reservation.MaxAttempts))
	}
	if !validOnAbort[c.Reservation.OnAbort] {
		errs = append(errs, fmt.Sprintf("reservation.on_abort: must be one of keep, release; got %q", c.Reservation.OnAbort))
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path: required when history is enabled")
	}

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errs
}
