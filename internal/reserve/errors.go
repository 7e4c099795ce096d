package reserve

import "errors"

var (
	// ErrClaimed indicates the path already exists. Resolution moves on to the
	// next candidate when it sees this error.
	ErrClaimed = errors.New("path already claimed")

	// ErrResolutionExhausted indicates no free candidate was found within the attempt limit.
	ErrResolutionExhausted = errors.New("unique path resolution exhausted")

	// ErrReservationIO indicates a directory or placeholder could not be created.
	ErrReservationIO = errors.New("reservation failed")

	// ErrOutsideRoot indicates a path that would escape the output directory.
	ErrOutsideRoot = errors.New("path escapes output directory")

	// ErrNotPlaceholder indicates a file that has content and is no longer a reservation.
	ErrNotPlaceholder = errors.New("file is not an empty placeholder")
)
