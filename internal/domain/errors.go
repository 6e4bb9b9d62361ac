package domain

import "errors"

// Common domain errors
var (
	// ErrMissingCredentials is returned when provider credentials are not configured
	ErrMissingCredentials = errors.New("provider credentials missing")

	// ErrRemoteUnavailable is returned when the provider API cannot be reached
	ErrRemoteUnavailable = errors.New("provider temporarily unavailable")

	// ErrMalformedResponse is returned when the provider returns an unparseable payload
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrRemoteRejected is returned when the provider reports an error payload
	ErrRemoteRejected = errors.New("provider rejected the request")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
