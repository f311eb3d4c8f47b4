package placesapi

import (
	"errors"
	"fmt"
)

// ErrUnparseableResponse is wrapped by UpstreamError when a 2xx body is not a
// valid nearby-search payload.
var ErrUnparseableResponse = errors.New("unable to parse places API response")

// UpstreamError describes a failed call to the places API. StatusCode is zero
// when no HTTP response was received.
type UpstreamError struct {
	Reason     string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := "places API " + e.Reason
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
