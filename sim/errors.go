package sim

import "errors"

// Error kinds reported by the core. Callers match them with errors.Is;
// wrapping adds the operation-specific detail.
var (
	ErrInvalidHandle      = errors.New("invalid handle")
	ErrInvalidQubitIndex  = errors.New("invalid qubit index")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrSelectionExhausted = errors.New("simulator selection exhausted")
	ErrMalformedInput     = errors.New("malformed input")
	ErrAllocationFailure  = errors.New("allocation failure")
	ErrNoSavedState       = errors.New("no saved state")
	ErrUnsupportedGate    = errors.New("unsupported gate")
)
