package pack

import "errors"

// Domain errors for pack operations.
var (
	// ErrInvalidPack is returned when a pack cannot be built from its configuration.
	ErrInvalidPack = errors.New("invalid pack")

	// ErrInstallFailed is returned when a pack's tools cannot be registered.
	ErrInstallFailed = errors.New("pack installation failed")
)
