// Package manifest writes the human-readable summary of a batch: its title,
// one line per video and the total running time.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmunix/batchprep/internal/media"
)

// DefaultFileName is the manifest name used when none is configured.
const DefaultFileName = "PlaylistInfo.txt"

// untitled is written in place of a missing batch title.
const untitled = "Playlist: NA"

// unknownDuration is written for items without a duration.
const unknownDuration = "N/A"

// Entry is one line of the video list.
type Entry struct {
	Display  string
	Duration *time.Duration
}

// Manifest summarizes a batch.
type Manifest struct {
	Title   string
	Entries []Entry
	Total   time.Duration
}

// New builds a manifest for items. Items without a duration add nothing to the total.
func New(title string, items []media.Item) Manifest {
	m := Manifest{Title: title, Entries: make([]Entry, 0, len(items))}

	var seconds int64
	for _, item := range items {
		m.Entries = append(m.Entries, Entry{Display: item.String(), Duration: item.Duration})
		seconds += item.Seconds()
	}
	m.Total = time.Duration(seconds) * time.Second
	return m
}

// FormatDuration formats d as HH:MM:SS. Hours are at least two digits and
// grow as needed; fractional seconds are dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Render returns the manifest text.
func (m Manifest) Render() string {
	var b strings.Builder

	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = untitled
	}
	b.WriteString(title + "\n")
	b.WriteString("Videos List:\n")

	for _, e := range m.Entries {
		dur := unknownDuration
		if e.Duration != nil {
			dur = FormatDuration(*e.Duration)
		}
		fmt.Fprintf(&b, "%s %s\n", e.Display, dur)
	}

	b.WriteString("\n")
	b.WriteString("Playlist Duration: " + FormatDuration(m.Total) + "\n")
	return b.String()
}

// Staged is a rendered manifest waiting in a temporary file next to its
// target. Exactly one of Commit or Discard should follow.
type Staged struct {
	path    string
	tmpPath string
}

// Stage renders m into a temporary file in the directory of path. The
// target itself is not touched until Commit.
func Stage(ctx context.Context, path string, m Manifest) (*Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrManifestIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", ErrManifestIO, err)
	}
	s := &Staged{path: path, tmpPath: tmp.Name()}

	if _, err := tmp.WriteString(m.Render()); err != nil {
		_ = tmp.Close()
		s.Discard()
		return nil, fmt.Errorf("%w: write: %v", ErrManifestIO, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		s.Discard()
		return nil, fmt.Errorf("%w: sync: %v", ErrManifestIO, err)
	}
	if err := tmp.Close(); err != nil {
		s.Discard()
		return nil, fmt.Errorf("%w: close: %v", ErrManifestIO, err)
	}
	if err := os.Chmod(s.tmpPath, 0644); err != nil {
		s.Discard()
		return nil, fmt.Errorf("%w: chmod: %v", ErrManifestIO, err)
	}
	return s, nil
}

// Path returns the final manifest location.
func (s *Staged) Path() string {
	return s.path
}

// Commit moves the staged manifest over the target. The previous manifest,
// if any, is replaced in one step. On failure the temporary file is removed.
func (s *Staged) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		s.Discard()
		return err
	}
	if err := os.Rename(s.tmpPath, s.path); err != nil {
		s.Discard()
		return fmt.Errorf("%w: replace %s: %v", ErrManifestIO, s.path, err)
	}
	return nil
}

// Discard removes the temporary file. Safe to call after Commit.
func (s *Staged) Discard() {
	_ = os.Remove(s.tmpPath)
}

// Write replaces the file at path with the rendered manifest. The target is
// either the previous manifest or the complete new one.
func Write(ctx context.Context, path string, m Manifest) error {
	s, err := Stage(ctx, path, m)
	if err != nil {
		return err
	}
	return s.Commit(ctx)
}
