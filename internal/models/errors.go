package models

import "errors"

// Error taxonomy for the pipeline. Only ErrInvalidInput and ErrExternalAuth
// terminate a request; transient and malformed-response failures are absorbed
// into a degraded result.
var (
	// ErrInvalidInput marks empty or oversized input. Surfaced as a client error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExternalAuth marks rejected credentials at an external service.
	// Surfaced as a server configuration error, never retried.
	ErrExternalAuth = errors.New("external service rejected credentials")

	// ErrTransientService marks timeouts, rate limiting and 5xx-equivalents.
	// Recovered locally (single retry or soft fallback).
	ErrTransientService = errors.New("transient external service failure")

	// ErrMalformedResponse marks an external response that could not be parsed
	// into the expected structure. Recovered locally by defaulting fields.
	ErrMalformedResponse = errors.New("malformed external service response")
)
