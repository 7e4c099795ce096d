package manifest

import "errors"

// ErrManifestIO indicates the manifest file could not be written.
var ErrManifestIO = errors.New("manifest write failed")
