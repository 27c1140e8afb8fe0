package core

import "errors"

// Failure taxonomy of the tracking core. Authentication failures terminate
// the connection at the gateway boundary; everything else is message-scoped
// and reported to the offending connection only.
var (
	// ErrUnauthenticated means the bearer credential is missing, invalid
	// or expired. Connection-terminating.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidPayload means a position report failed structural
	// validation.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUnknownVehicle means the claimed vehicle does not exist in the
	// catalog.
	ErrUnknownVehicle = errors.New("unknown vehicle")

	// ErrForbidden means the publisher's role or vehicle assignment does
	// not permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrStorageUnavailable means the document store could not acknowledge
	// a write. The update is not broadcast.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned by read paths for absent documents.
	ErrNotFound = errors.New("not found")
)

// Wire reason codes carried in errorNotice messages.
const (
	ReasonInvalidPayload = "InvalidPayload"
	ReasonUnknownVehicle = "UnknownVehicle"
	ReasonForbidden      = "Forbidden"
	ReasonStorageError   = "StorageError"
	ReasonInternal       = "Internal"
)

// ReasonOf maps a core error to its wire reason code.
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return ReasonInvalidPayload
	case errors.Is(err, ErrUnknownVehicle):
		return ReasonUnknownVehicle
	case errors.Is(err, ErrForbidden):
		return ReasonForbidden
	case errors.Is(err, ErrStorageUnavailable):
		return ReasonStorageError
	default:
		return ReasonInternal
	}
}
