package contracts

import "errors"

// Error taxonomy shared across the SDK. Callers match with errors.Is.
var (
	// ErrNotInitialized is returned by scheduler operations before a
	// successful initialization, or after Close.
	ErrNotInitialized = errors.New("transport scheduler not initialized")
	// ErrInvalidBPM is returned when a tempo is zero or negative.
	ErrInvalidBPM = errors.New("BPM must be greater than zero")
	// ErrInvalidState is returned when an operation is not legal in the
	// current transport state.
	ErrInvalidState = errors.New("operation not valid in current transport state")
	// ErrTransport wraps failures of the underlying wire or queue collaborator.
	ErrTransport = errors.New("transport failure")
	// ErrWouldBlock is returned by EventSource.ReceiveNext when no event
	// arrived within the poll timeout. It is not a failure.
	ErrWouldBlock = errors.New("no event available")
)
