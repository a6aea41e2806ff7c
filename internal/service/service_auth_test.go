package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

func newTestAuthService(d time.Duration) AuthService {
	return NewAuthService(config.ServerConfig{
		TokenSignKey:  "sign-key",
		TokenIssuer:   "offline-sync",
		TokenDuration: d,
	}, logger.Nop())
}

func TestAuthService_CreateAndParseToken(t *testing.T) {
	svc := newTestAuthService(time.Hour)
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, "member-7")
	require.NoError(t, err)
	require.NotEmpty(t, token.SignedString)

	parsed, err := svc.ParseToken(ctx, token.SignedString)
	require.NoError(t, err)
	assert.Equal(t, "member-7", parsed.UserID)
}

func TestAuthService_CreateToken_EmptyUser(t *testing.T) {
	_, err := newTestAuthService(time.Hour).CreateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestAuthService_ParseToken_Invalid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{name: "garbage", token: func(*testing.T) string { return "not-a-jwt" }},
		{
			name: "expired",
			token: func(t *testing.T) string {
				tok, err := newTestAuthService(-time.Minute).CreateToken(ctx, "u1")
				require.NoError(t, err)
				return tok.SignedString
			},
		},
		{
			name: "other issuer",
			token: func(t *testing.T) string {
				other := NewAuthService(config.ServerConfig{
					TokenSignKey: "sign-key", TokenIssuer: "elsewhere", TokenDuration: time.Hour,
				}, logger.Nop())
				tok, err := other.CreateToken(ctx, "u1")
				require.NoError(t, err)
				return tok.SignedString
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAuthService(time.Hour).ParseToken(ctx, tt.token(t))
			assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
		})
	}
}
