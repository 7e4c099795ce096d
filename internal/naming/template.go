// internal/naming/template.go
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vmunix/batchprep/internal/media"
)

// Default naming templates.
const (
	DefaultTemplate         = "{title}"
	DefaultSequenceTemplate = "{num}-{title}"
)

// fallbackName is used when every part of a file name expands to nothing.
const fallbackName = "untitled"

// placeholderPattern matches {name} style placeholders.
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

var placeholders = map[string]bool{
	"title":       true,
	"author":      true,
	"id":          true,
	"num":         true,
	"upload_date": true,
	"ext":         true,
}

// Validate checks that template is a usable relative path template.
func Validate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("%w: empty template", ErrPolicy)
	}

	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !placeholders[m[1]] {
			return fmt.Errorf("%w: unsupported placeholder {%s} in %q", ErrPolicy, m[1], template)
		}
	}

	literal := placeholderPattern.ReplaceAllString(template, "")
	if strings.ContainsAny(literal, "{}") {
		return fmt.Errorf("%w: unbalanced braces in %q", ErrPolicy, template)
	}

	if strings.HasPrefix(template, "/") || strings.HasPrefix(template, `\`) || strings.Contains(template, ":") {
		return fmt.Errorf("%w: template must be a relative path: %q", ErrPolicy, template)
	}
	for _, seg := range strings.Split(template, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%w: template must not contain %q segments: %q", ErrPolicy, seg, template)
		}
	}
	return nil
}

// Expand substitutes item metadata into template and returns a slash-separated
// relative path. seq is the pre-formatted sequence number for {num}.
// Placeholders that Validate would reject are left untouched.
func Expand(template string, item media.Item, container media.Container, seq string) string {
	vars := map[string]string{
		"title":  SanitizeFilename(item.Title),
		"author": SanitizeFilename(item.Author),
		"id":     SanitizeFilename(item.ID),
		"num":    seq,
		"ext":    container.Extension(),
	}
	if vars["title"] == "" {
		vars["title"] = vars["id"]
	}
	if !item.UploadDate.IsZero() {
		vars["upload_date"] = item.UploadDate.Format("2006-01-02")
	} else {
		vars["upload_date"] = ""
	}

	expanded := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})

	// Drop directory levels whose values were all empty
	var segments []string
	for _, seg := range strings.Split(expanded, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		segments = []string{fallbackName}
	}

	last := segments[len(segments)-1]
	if !strings.Contains(template, "{ext}") {
		last += "." + container.Extension()
	} else if strings.TrimSuffix(last, "."+container.Extension()) == "" {
		last = fallbackName + last
	}
	segments[len(segments)-1] = last

	return strings.Join(segments, "/")
}

// CheckExpanded rejects an expanded path that would leave the output
// directory. Placeholders that expand to nothing can turn literal dots into
// "." or ".." segments, which Validate cannot see in the template alone.
func CheckExpanded(rel string) error {
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "\\") {
		return fmt.Errorf("%w: expanded path must be relative: %q", ErrPolicy, rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.Trim(seg, ".") == "" {
			return fmt.Errorf("%w: expanded path has a %q segment: %q", ErrPolicy, seg, rel)
		}
	}
	return nil
}

// FormatSequence zero-pads ordinal to the digit count of total, or to
// minWidth when that is wider.
func FormatSequence(ordinal, total, minWidth int) string {
	width := len(strconv.Itoa(total))
	if minWidth > width {
		width = minWidth
	}
	return fmt.Sprintf("%0*d", width, ordinal)
}

// IsPlaylistTitle reports whether a batch title looks like a playlist.
// Kept for callers that cannot pass playlist context explicitly.
func IsPlaylistTitle(title string) bool {
	return strings.Contains(strings.ToLower(title), "playlist")
}
