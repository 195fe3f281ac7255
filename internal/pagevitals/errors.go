package pagevitals

import (
	"fmt"
	"net/http"
)

// TransportError wraps a failure below HTTP: DNS, connection, TLS, timeout.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the PageVitals API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("API error: HTTP %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the server was still throttling after the retry.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
