package downstream

import "github.com/vyrodovalexey/avarelay/internal/payload"

// Result is the outcome of a call to the next hop: either the decoded
// response or the error that prevented one.
type Result struct {
	Response *payload.Map
	Err      error
}

// Ok wraps a successful response.
func Ok(resp *payload.Map) Result {
	return Result{Response: resp}
}

// Failed wraps a failed call.
func Failed(err error) Result {
	return Result{Err: err}
}

// Degraded reports whether the call failed.
func (r Result) Degraded() bool {
	return r.Err != nil || r.Response == nil
}

// Or returns the response, or the payload built by fallback when degraded.
func (r Result) Or(fallback func(error) *payload.Map) *payload.Map {
	if !r.Degraded() {
		return r.Response
	}
	err := r.Err
	if err == nil {
		err = ErrEmptyResponse
	}
	return fallback(err)
}
