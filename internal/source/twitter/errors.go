package twitter

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response from the timeline API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	// ResetAt is set on rate-limit responses that carried a reset header.
	ResetAt time.Time
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("twitter api status %d", e.StatusCode)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += " - " + e.Detail
	}
	return msg
}

// Retryable reports whether the client policy retries this status.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
