// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

var (
	// ErrEmptyAuthorizationHeader is returned when the request carries no
	// "Authorization" header at all.
	ErrEmptyAuthorizationHeader = errors.New("empty `Authorization` header")

	// ErrInvalidAuthorizationHeader is returned when the header is not of
	// the form "Bearer <token>".
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")

	ErrEmptyToken = errors.New("empty token in `Authorization` header")

	// ErrMissingBodyHash is returned when a signed route is called without
	// the HashSHA256 header.
	ErrMissingBodyHash = errors.New("missing `HashSHA256` header")

	ErrIntegrityCheckFailed = errors.New("integrity check failed")
)
