// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// sync backend handlers and middleware.
//
// All Msg* constants are human-readable message strings written into HTTP
// response bodies. Keeping them in one place keeps the wording consistent
// throughout the API.
package app

const (
	// MsgInvalidJSON is returned when a request body cannot be decoded.
	MsgInvalidJSON = "invalid JSON was passed"

	// MsgInvalidGzip is returned when a request declares gzip encoding but
	// the body is not a valid gzip stream.
	MsgInvalidGzip = "invalid gzip data"

	// MsgUnreadableBody is returned when the request body cannot be read.
	MsgUnreadableBody = "failed to read request body"

	// MsgNoUserIDProvided is returned when a handler requires a member id
	// from the device token but none is present in the request context.
	MsgNoUserIDProvided = "no user ID was given"

	// MsgInternalServerError is returned for failures the client cannot
	// resolve.
	MsgInternalServerError = "internal server error"
)
