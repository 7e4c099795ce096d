package media

import (
	"fmt"
	"regexp"
	"strings"
)

// Container is the target file format. The predefined values cover the
// common cases; any other extension can be expressed with NewContainer.
type Container struct {
	Name string
}

var (
	MP4  = Container{Name: "mp4"}
	WebM = Container{Name: "webm"}
	MP3  = Container{Name: "mp3"}
	OGG  = NewContainer("ogg")
)

// Containers returns the formats offered by default, in display order.
func Containers() []Container {
	return []Container{MP4, WebM, MP3, OGG}
}

var audioOnly = map[string]bool{
	"mp3": true, "ogg": true, "m4a": true, "opus": true, "flac": true, "wav": true,
}

var containerPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// NewContainer returns a container for an arbitrary extension.
func NewContainer(name string) Container {
	return Container{Name: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))}
}

// ParseContainer validates and normalizes a container token such as "mp4" or ".MKV".
func ParseContainer(s string) (Container, error) {
	c := NewContainer(s)
	if !containerPattern.MatchString(c.Name) {
		return Container{}, fmt.Errorf("%w: %q, want a lowercase extension such as %s", ErrInvalidContainer, s, joinContainers(Containers()))
	}
	return c, nil
}

// Extension returns the file extension without the dot.
func (c Container) Extension() string {
	return c.Name
}

// IsAudioOnly reports whether the container carries no video stream.
func (c Container) IsAudioOnly() bool {
	return audioOnly[c.Name]
}

func (c Container) String() string {
	return c.Name
}

func joinContainers(cs []Container) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
