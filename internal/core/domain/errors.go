package domain

import "errors"

// ErrInvalidBoundingBox is returned when a box does not satisfy max > min on both axes.
var ErrInvalidBoundingBox = errors.New("coordinates are input incorrectly")

// DefaultFetchMessage is reported when the backend signals an error without a message.
const DefaultFetchMessage = "An error occurred"

// FetchError reports that ways for a tile could not be obtained, either because
// the transport failed or because the backend answered with an error object.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Message == "" {
		return DefaultFetchMessage
	}
	return e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }
