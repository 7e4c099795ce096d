// Package media defines the items a batch is prepared from and the output
// formats a downloader can produce.
package media

import (
	"strings"
	"time"
)

// Item is a single video eligible for download.
type Item struct {
	ID         string
	Title      string
	Author     string
	UploadDate time.Time      // zero if unknown
	Duration   *time.Duration // nil for live or ongoing streams
}

// String returns the display string used in manifests and logs.
func (i Item) String() string {
	if t := strings.TrimSpace(i.Title); t != "" {
		return t
	}
	return i.ID
}

// Seconds returns the duration in whole seconds, or 0 when unknown.
func (i Item) Seconds() int64 {
	if i.Duration == nil || *i.Duration < 0 {
		return 0
	}
	return int64(*i.Duration / time.Second)
}

// DurationOf is a convenience for building items with a known duration.
func DurationOf(seconds int64) *time.Duration {
	d := time.Duration(seconds) * time.Second
	return &d
}
