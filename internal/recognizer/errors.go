package recognizer

import (
	"errors"
	"fmt"
)

// NetworkError is a transport-level failure: the request could not be sent,
// timed out, returned a non-2xx status, or carried an undecodable body.
type NetworkError struct {
	Endpoint string
	Status   int // HTTP status, 0 when no response was received
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: request failed with status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError is a response the service marked as unsuccessful.
type ServiceError struct {
	Endpoint string
	Message  string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// unknownServiceError is reported when success is false but no message came back.
const unknownServiceError = "request was not successful"

func serviceError(endpoint, msg string) error {
	if msg == "" {
		msg = unknownServiceError
	}
	return &ServiceError{Endpoint: endpoint, Message: msg}
}

// IsServiceError reports whether err came from an unsuccessful service response.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
