package authclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthenticationExpired matches a 401 from the server. The coordinator
	// handles it by refreshing once and retrying.
	ErrAuthenticationExpired = errors.New("authentication expired")

	// ErrRefreshFailed is terminal for the session: the refresh credential was
	// rejected or the refresh endpoint could not be reached.
	ErrRefreshFailed = errors.New("session refresh failed")

	ErrInvalidRefreshCredential = errors.New("invalid refresh credential")

	// ErrRequestFailed matches every other failure, including all *StatusError values.
	ErrRequestFailed = errors.New("request failed")

	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrClosed           = errors.New("session manager closed")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Method  string
	Path    string
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, msg)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return true
	case ErrAuthenticationExpired:
		return e.Code == http.StatusUnauthorized
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
