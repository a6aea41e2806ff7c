// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_AllFields(t *testing.T) {
	setEnvVars(t, map[string]string{
		"CONFIG": "/path/to/config.yaml",

		"APP_USER_ID":        "member-1",
		"APP_TOKEN_SIGN_KEY": "jwt_secret",
		"APP_TOKEN_ISSUER":   "test_issuer",
		"APP_TOKEN_DURATION": "1h",
		"APP_HASH_KEY":       "security_hash",
		"APP_HEADLESS":       "true",

		"STORAGE_DB_DSN":                  "/var/lib/sync.db",
		"STORAGE_MEDIA_DIR":               "/var/lib/media",
		"STORAGE_CACHE_MAX_SIZE_MB":       "64",
		"STORAGE_CACHE_MAX_MEDIA_SIZE_MB": "128",
		"STORAGE_CACHE_ENTITY_TTL":        "2h",
		"STORAGE_CACHE_MEDIA_TTL":         "12h",

		"QUEUE_MAX_TRANSACTIONS": "50",
		"QUEUE_MAX_EVENTS":       "70",
		"QUEUE_RETRY_ATTEMPTS":   "3",
		"QUEUE_RETRY_BACKOFF":    "250ms",

		"SERVER_ADDRESS":         "localhost:8080",
		"SERVER_REQUEST_TIMEOUT": "30s",
		"SERVER_ALLOWED_ORIGINS": "https://kiosk.local,https://ar.local",

		"ADAPTER_ADDRESS":         "http://backend:8080",
		"ADAPTER_REQUEST_TIMEOUT": "5s",

		"WORKERS_SYNC_INTERVAL":    "1m",
		"WORKERS_CLEANUP_INTERVAL": "2m",

		"NETWORK_PROBE_INTERVAL":  "10s",
		"NETWORK_ONLINE_DEBOUNCE": "1s",
	})

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "/path/to/config.yaml", cfg.ConfigFilePath)

	assert.Equal(t, "member-1", cfg.App.UserID)
	assert.Equal(t, "jwt_secret", cfg.App.TokenSignKey)
	assert.Equal(t, "test_issuer", cfg.App.TokenIssuer)
	assert.Equal(t, time.Hour, cfg.App.TokenDuration)
	assert.Equal(t, "security_hash", cfg.App.HashKey)
	assert.True(t, cfg.App.Headless)

	assert.Equal(t, "/var/lib/sync.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/var/lib/media", cfg.Storage.Media.Dir)
	assert.Equal(t, int64(64), cfg.Storage.Cache.MaxSizeMB)
	assert.Equal(t, int64(128), cfg.Storage.Cache.MaxMediaSizeMB)
	assert.Equal(t, 2*time.Hour, cfg.Storage.Cache.EntityTTL)
	assert.Equal(t, 12*time.Hour, cfg.Storage.Cache.MediaTTL)

	assert.Equal(t, Queue{MaxTransactions: 50, MaxEvents: 70, RetryAttempts: 3, RetryBackoff: 250 * time.Millisecond}, cfg.Queue)

	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddress)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://kiosk.local", "https://ar.local"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, "http://backend:8080", cfg.Adapter.HTTPAddress)
	assert.Equal(t, 5*time.Second, cfg.Adapter.RequestTimeout)

	assert.Equal(t, Workers{SyncInterval: time.Minute, CleanupInterval: 2 * time.Minute}, cfg.Workers)
	assert.Equal(t, Network{ProbeInterval: 10 * time.Second, OnlineDebounce: time.Second}, cfg.Network)
}

func TestParseEnv_EmptyEnv(t *testing.T) {
	clearEnvVars(t)

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg))

	assert.Empty(t, cfg.ConfigFilePath)
	assert.Equal(t, App{}, cfg.App)
	assert.Equal(t, Storage{}, cfg.Storage)
	assert.Equal(t, Queue{}, cfg.Queue)
}

func TestParseEnv_InvalidDuration(t *testing.T) {
	setEnvVars(t, map[string]string{"WORKERS_SYNC_INTERVAL": "soon"})

	err := parseEnv(&StructuredConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "env")
}

func TestParseEnv_DurationFormats(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{"hours", "2h", 2 * time.Hour},
		{"minutes", "45m", 45 * time.Minute},
		{"seconds", "30s", 30 * time.Second},
		{"combined", "1h30m", 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvVars(t, map[string]string{"WORKERS_SYNC_INTERVAL": tt.envValue})

			cfg := &StructuredConfig{}
			require.NoError(t, parseEnv(cfg))
			assert.Equal(t, tt.expected, cfg.Workers.SyncInterval)
		})
	}
}

// Helpers

var configEnvKeys = []string{
	"CONFIG",
	"APP_USER_ID", "APP_TOKEN_SIGN_KEY", "APP_TOKEN_ISSUER", "APP_TOKEN_DURATION",
	"APP_HASH_KEY", "APP_VERSION", "APP_HEADLESS",
	"STORAGE_DB_DSN", "STORAGE_MEDIA_DIR",
	"STORAGE_CACHE_MAX_SIZE_MB", "STORAGE_CACHE_MAX_MEDIA_SIZE_MB",
	"STORAGE_CACHE_ENTITY_TTL", "STORAGE_CACHE_MEDIA_TTL",
	"QUEUE_MAX_TRANSACTIONS", "QUEUE_MAX_EVENTS", "QUEUE_RETRY_ATTEMPTS", "QUEUE_RETRY_BACKOFF",
	"SERVER_ADDRESS", "SERVER_REQUEST_TIMEOUT", "SERVER_ALLOWED_ORIGINS",
	"ADAPTER_ADDRESS", "ADAPTER_REQUEST_TIMEOUT",
	"WORKERS_SYNC_INTERVAL", "WORKERS_CLEANUP_INTERVAL",
	"NETWORK_PROBE_INTERVAL", "NETWORK_ONLINE_DEBOUNCE",
}

// setEnvVars blanks every known variable, then sets vars. t.Setenv restores
// the previous values on cleanup.
func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	clearEnvVars(t)
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}
