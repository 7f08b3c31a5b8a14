package geocode

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResults is the sentinel for NotFoundError.
	ErrNoResults = errors.New("address not found")
	// ErrUpstream is the sentinel for UpstreamError.
	ErrUpstream = errors.New("geocoding provider failed")
)

// NotFoundError reports that the provider returned no match for Address.
// Status is the provider status, normally ZERO_RESULTS.
type NotFoundError struct {
	Address string
	Status  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("address %q not found (%s)", e.Address, e.Status)
}

func (e *NotFoundError) Unwrap() error { return ErrNoResults }

// UpstreamError reports a provider failure: a transport error, an
// undecodable body or a status other than OK and ZERO_RESULTS.
type UpstreamError struct {
	Status     string // provider status, empty when no body was decoded
	HTTPStatus int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := "geocoding provider failed"
	if e.Status != "" {
		msg += ": status " + e.Status
	} else if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(": http %d", e.HTTPStatus)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}
