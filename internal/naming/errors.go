package naming

import "errors"

// ErrPolicy indicates a malformed naming template or an unsupported placeholder.
var ErrPolicy = errors.New("invalid naming policy")
