package media

import (
	"fmt"
	"strings"
)

// QualityPreference is the caller's video quality choice. It is carried
// through to the downloader untouched.
type QualityPreference string

const (
	QualityHighest QualityPreference = "highest"
	Quality1080p   QualityPreference = "1080p"
	Quality720p    QualityPreference = "720p"
	Quality480p    QualityPreference = "480p"
	Quality360p    QualityPreference = "360p"
	QualityLowest  QualityPreference = "lowest"
)

var qualityHeights = map[QualityPreference]int{
	QualityHighest: 0,
	Quality1080p:   1080,
	Quality720p:    720,
	Quality480p:    480,
	Quality360p:    360,
	QualityLowest:  -1,
}

// QualityPreferences returns all preferences, best first.
func QualityPreferences() []QualityPreference {
	return []QualityPreference{QualityHighest, Quality1080p, Quality720p, Quality480p, Quality360p, QualityLowest}
}

// ParseQualityPreference parses a preference token. Matching is case-insensitive.
func ParseQualityPreference(s string) (QualityPreference, error) {
	q := QualityPreference(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := qualityHeights[q]; !ok {
		return "", fmt.Errorf("%w: %q, want one of %s", ErrInvalidQuality, s, joinQualities(QualityPreferences()))
	}
	return q, nil
}

// MaxHeight returns the maximum video height for the preference.
// 0 means unbounded and -1 means the smallest available.
func (q QualityPreference) MaxHeight() int {
	return qualityHeights[q]
}

func (q QualityPreference) String() string {
	return string(q)
}

func joinQualities(qs []QualityPreference) string {
	names := make([]string, len(qs))
	for i, q := range qs {
		names[i] = q.String()
	}
	return strings.Join(names, ", ")
}
