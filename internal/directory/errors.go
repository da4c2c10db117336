package directory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAccessDenied is returned by Check when the configured API
	// credentials are rejected.
	ErrAccessDenied = errors.New("directory access denied")
	// ErrUntrustedPhotoHost is returned when a member photo URL points
	// outside the directory's domain.
	ErrUntrustedPhotoHost = errors.New("photo host outside directory domain")
	// ErrNoBaseURL is returned when the client has no API URL configured.
	ErrNoBaseURL = errors.New("directory api url not configured")
)

// TransportError covers network failures, timeouts and non-200
// responses. The directory never saw or never answered the request
// properly.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a well-formed error payload from the directory, such as
// bad credentials or an unknown member id.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory %s: %s", e.Op, e.Message)
}

// AccessDenied reports whether the payload is the directory's
// credential rejection. The API answers in German.
func (e *APIError) AccessDenied() bool {
	msg := strings.ToLower(e.Message)

	return strings.Contains(msg, "zugriff verweigert") ||
		strings.Contains(msg, "access denied")
}
