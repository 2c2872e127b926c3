package http

import (
	"errors"
	"fmt"
)

// BadStatusError is returned when the server answers with a status other than 200.
type BadStatusError struct {
	Code   int
	Status string
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// ContentTypeError is returned when a 200 response does not carry an image.
type ContentTypeError struct {
	ContentType string
}

func (e *ContentTypeError) Error() string {
	if e.ContentType == "" {
		return "unexpected response without Content-Type"
	}
	return fmt.Sprintf("unexpected Content-Type %q", e.ContentType)
}

// TransportError wraps connection failures, timeouts and interrupted bodies.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is one of the per-tile fetch failures
// (bad status, wrong content type or transport). Anything else returned by
// Fetch is a local file system problem.
func IsFetchError(err error) bool {
	var bad *BadStatusError
	var ct *ContentTypeError
	var tr *TransportError
	return errors.As(err, &bad) || errors.As(err, &ct) || errors.As(err, &tr)
}
