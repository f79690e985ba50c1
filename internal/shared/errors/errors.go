package errors

import "errors"

// Domain errors
var (
	// Catalog errors
	ErrUnknownKind   = errors.New("unknown check kind")
	ErrInvalidStatus = errors.New("invalid check status")
	ErrEmptyHeadline = errors.New("check headline cannot be empty")
	ErrInvalidResult = errors.New("invalid check result")

	// Orchestration errors
	ErrNoExecutor          = errors.New("no executor registered for check kind")
	ErrDuplicateExecutor   = errors.New("executor already registered for check kind")
	ErrOrchestratorClosed  = errors.New("check orchestrator is closed")
	ErrExecutorTimeout     = errors.New("check timed out")
	ErrExecutorPanic       = errors.New("check executor panicked")
	ErrExecutorCancelled   = errors.New("check cancelled")
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// Probe errors
	ErrNoResolvers      = errors.New("no DNS resolvers configured")
	ErrNoPublicIP       = errors.New("public IP could not be determined")
	ErrNoGeolocation    = errors.New("geolocation unavailable")
	ErrNoInterfaces     = errors.New("network interfaces unavailable")
	ErrUnexpectedOutput = errors.New("unexpected command output")

	// Resolver errors
	ErrResolverClosed = errors.New("network profile resolver is closed")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)
