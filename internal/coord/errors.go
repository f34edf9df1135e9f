package coord

import "errors"

// Common errors returned by coordination store implementations.
var (
	// ErrClaimLost is returned when a holder tries to renew a claim it no longer owns.
	ErrClaimLost = errors.New("claim lost")

	// ErrStore wraps transient failures talking to the coordination store.
	ErrStore = errors.New("coordination store error")
)
