package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vmunix/batchprep/internal/media"
)

// itemsFile is the selection handed to prepare.
type itemsFile struct {
	Title string      `json:"title"`
	Items []itemEntry `json:"items"`
}

type itemEntry struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	UploadDate      string `json:"upload_date"`
	DurationSeconds *int64 `json:"duration_seconds"`
}

var uploadDateLayouts = []string{"2006-01-02", "20060102", time.RFC3339}

func readItemsFile(path string) (*itemsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}

	var f itemsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse items %s: %w", path, err)
	}
	return &f, nil
}

// mediaItems converts the file entries, in order.
func (f *itemsFile) mediaItems() ([]media.Item, error) {
	items := make([]media.Item, 0, len(f.Items))
	for i, e := range f.Items {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("item %d: missing id", i+1)
		}
		item := media.Item{
			ID:     e.ID,
			Title:  e.Title,
			Author: e.Author,
		}
		if e.UploadDate != "" {
			t, err := parseUploadDate(e.UploadDate)
			if err != nil {
				return nil, fmt.Errorf("item %d (%s): %w", i+1, e.ID, err)
			}
			item.UploadDate = t
		}
		if e.DurationSeconds != nil {
			if *e.DurationSeconds < 0 {
				return nil, fmt.Errorf("item %d (%s): negative duration", i+1, e.ID)
			}
			item.Duration = media.DurationOf(*e.DurationSeconds)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseUploadDate(s string) (time.Time, error) {
	for _, layout := range uploadDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid upload_date %q", s)
}
