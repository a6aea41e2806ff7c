// Package utils holds small helpers shared by the client and the reference
// backend: context keys, hashing and checksums, JSON responses, the resty
// client, device JWTs and ids.
package utils

import (
	"context"
)

type contextKey string

func (c contextKey) String() string {
	return string(c)
}

// UserIDCtxKey stores the authenticated member id in a request context.
var UserIDCtxKey = contextKey("userID")

// GetUserIDFromContext returns the member id put into ctx by the auth
// middleware. ok is false when it is missing or not a non-empty string.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok && userID != ""
}
