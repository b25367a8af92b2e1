package simhw

import "errors"

// Simulator errors.
var (
	// ErrLinkNotPresent is returned for links the simulated device lacks.
	ErrLinkNotPresent = errors.New("link not present")

	// ErrInjected is the default error of injected channel failures.
	ErrInjected = errors.New("injected channel failure")
)
