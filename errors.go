package securecomm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedResponse is returned by CheckLogin when the status
	// response neither carries user options nor reports a failed login.
	ErrUnexpectedResponse = errors.New("unexpected response format")

	// ErrUnsupported is returned when the session revision has no endpoint
	// for the requested operation.
	ErrUnsupported = errors.New("operation not supported by this api revision")

	// ErrCommandRejected is returned when the panel answers an arming
	// command with success=false.
	ErrCommandRejected = errors.New("command rejected by panel")
)

// RequestError is a transport level failure: the connection failed, timed
// out, or the server answered with a non-2xx status.
type RequestError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %v", e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ProtocolError means the server answered, but not with what we expected.
type ProtocolError struct {
	Path  string
	Field string
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid response from %s: missing %q", e.Path, e.Field)
	}
	return fmt.Sprintf("invalid response from %s: %v", e.Path, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
