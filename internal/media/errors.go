package media

import "errors"

var (
	// ErrInvalidContainer indicates a container token that cannot be used as an extension.
	ErrInvalidContainer = errors.New("invalid container")

	// ErrInvalidQuality indicates an unknown quality preference.
	ErrInvalidQuality = errors.New("invalid quality preference")
)
