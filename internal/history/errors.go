package history

import "errors"

// ErrNotFound indicates no ledger entries matched.
var ErrNotFound = errors.New("no reservations found")
