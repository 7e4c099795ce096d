package batch

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest indicates a request that is missing required fields.
var ErrInvalidRequest = errors.New("invalid batch request")

// BatchError reports the item that stopped a batch. It unwraps to the
// underlying cause, so callers can match naming.ErrPolicy,
// reserve.ErrResolutionExhausted or reserve.ErrReservationIO.
type BatchError struct {
	Ordinal int    // 1-based position in the selection
	ItemID  string
	Path    string // base path being resolved, if known
	Err     error
}

func (e *BatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("item %d (%s) at %s: %v", e.Ordinal, e.ItemID, e.Path, e.Err)
	}
	return fmt.Sprintf("item %d (%s): %v", e.Ordinal, e.ItemID, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
