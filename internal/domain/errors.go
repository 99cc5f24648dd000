package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the marketplace API could not be reached
	ErrServerOffline = errors.New("marketplace API is unreachable")

	// ErrAuthFailed indicates the identity provider rejected the credentials
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotSignedIn indicates an operation needs a session and there is none
	ErrNotSignedIn = errors.New("not signed in")

	// ErrBlankQuery indicates a search was submitted with a whitespace-only query
	ErrBlankQuery = errors.New("query is blank")

	// ErrNoAuthProvider indicates no identity service URL is configured
	ErrNoAuthProvider = errors.New("identity provider is not configured")
)

// APIError is a non-2xx response from the marketplace API.
// Body is the raw response text.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed (%d): %s", e.Method, e.Path, e.Status, e.Body)
}

// AsAPIError unwraps err into an *APIError if it carries one
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
