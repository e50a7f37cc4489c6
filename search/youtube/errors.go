package youtube

import (
	"errors"
	"fmt"
)

// ErrQuotaExhausted means every key in the pool returned a quota error
// for this call. Callers should back off substantially longer than for
// a transient upstream failure.
var ErrQuotaExhausted = errors.New("all youtube api keys have exhausted their quota")

// ErrTimeout means the outbound call exceeded its deadline.
var ErrTimeout = errors.New("youtube api request timed out")

// APIError is a non-quota upstream failure with the upstream status
// preserved.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube api error %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube api error %d: %s", e.StatusCode, e.Message)
}
