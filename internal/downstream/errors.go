package downstream

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse indicates the next hop answered without a JSON object.
	ErrEmptyResponse = errors.New("empty response from downstream")

	// ErrCircuitOpen indicates the call was rejected by an open circuit breaker.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// StatusError reports a non-2xx answer from the next hop.
type StatusError struct {
	Target     string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s responded with status %d", e.Target, e.StatusCode)
	}
	return fmt.Sprintf("%s responded with status %d: %s", e.Target, e.StatusCode, e.Body)
}
