// internal/reserve/store.go
package reserve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Default permissions for created directories and placeholders.
const (
	DefaultDirPerm  fs.FileMode = 0755
	DefaultFilePerm fs.FileMode = 0644
)

// Store creates and inspects placeholder files.
type Store struct {
	dirPerm  fs.FileMode
	filePerm fs.FileMode
}

// NewStore creates a store using the default permissions.
func NewStore() *Store {
	return &Store{dirPerm: DefaultDirPerm, filePerm: DefaultFilePerm}
}

// Claim creates missing parent directories and then an empty file at path.
// Returns ErrClaimed if anything already exists at path; the existing entry
// is never touched.
func (s *Store) Claim(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), s.dirPerm); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrReservationIO, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.filePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrClaimed
		}
		return fmt.Errorf("%w: create placeholder: %v", ErrReservationIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close placeholder: %v", ErrReservationIO, err)
	}
	return nil
}

// Exists reports whether anything exists at path.
func (s *Store) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat: %v", ErrReservationIO, err)
	}
}

// Release removes a placeholder that is still empty.
// A file that has received content belongs to the downloader and is kept.
func (s *Store) Release(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: stat: %v", ErrReservationIO, err)
	}
	if !info.Mode().IsRegular() || info.Size() != 0 {
		return ErrNotPlaceholder
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove placeholder: %v", ErrReservationIO, err)
	}
	return nil
}

// ValidatePath ensures the path is within the expected root directory.
// Returns ErrOutsideRoot if the path would escape the root.
func ValidatePath(path, expectedRoot string) error {
	cleanPath := filepath.Clean(path)
	cleanRoot := filepath.Clean(expectedRoot)

	// Root itself is not a file path
	if cleanPath == cleanRoot {
		return ErrOutsideRoot
	}

	prefix := cleanRoot
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(cleanPath, prefix) {
		return ErrOutsideRoot
	}
	return nil
}
