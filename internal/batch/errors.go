package batch

import "errors"

// Error kinds shared by the batch model, the pickers and the apply engine.
var (
	// ErrSelectionCancelled is returned by a picker when the user dismisses it
	// without choosing anything. Callers treat it as a no-op.
	ErrSelectionCancelled = errors.New("selection cancelled")
	// ErrNotFound reports a mutation that referenced an operation id or file
	// path no longer present in the set.
	ErrNotFound      = errors.New("not found")
	ErrNoFiles       = errors.New("operation has no files")
	ErrNoDestination = errors.New("operation has no destination")
)
