// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container. It is populated
// by merging environment variables, command-line flags and an optional config
// file, then completed with [Defaults].
//
// Struct tags:
//   - envPrefix: prefix applied to nested env lookups (caarlos0/env).
//   - env: variable name of a scalar field.
type StructuredConfig struct {
	// App holds identity and security settings.
	App App `envPrefix:"APP_"`

	// Storage holds the local database, media directory and cache budgets.
	Storage Storage `envPrefix:"STORAGE_"`

	// Queue holds queue capacities and retry policy.
	Queue Queue `envPrefix:"QUEUE_"`

	// Server holds the reference backend listener settings.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the client's view of the backend.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds background job periods.
	Workers Workers `envPrefix:"WORKERS_"`

	// Network holds connectivity probing settings.
	Network Network `envPrefix:"NETWORK_"`

	// ConfigFilePath is an optional JSON, YAML or TOML file merged on top of
	// env and flags. The format is chosen by extension.
	// Env: CONFIG
	ConfigFilePath string `env:"CONFIG"`
}

// App holds identity and security settings.
type App struct {
	// UserID is the member the client device syncs for.
	// Env: APP_USER_ID
	UserID string `env:"USER_ID"`

	// TokenSignKey signs and verifies device JWTs (backend only).
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim of device JWTs.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is the lifetime of an issued device JWT.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// HashKey is the HMAC key of the HashSHA256 body signature.
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// Version is reported by GET /api/version/.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// Headless disables the operator dashboard on the client.
	// Env: APP_HEADLESS
	Headless bool `env:"HEADLESS"`
}

// Storage groups persistence settings.
type Storage struct {
	DB    DB    `envPrefix:"DB_"`
	Media Media `envPrefix:"MEDIA_"`
	Cache Cache `envPrefix:"CACHE_"`
}

// DB holds the local SQLite database location.
type DB struct {
	// DSN is a SQLite file path or URI.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Media holds the directory where media blobs are written.
type Media struct {
	// Env: STORAGE_MEDIA_DIR
	Dir string `env:"DIR"`
}

// Cache holds budgets and TTLs of the entity and media caches.
type Cache struct {
	// Env: STORAGE_CACHE_MAX_SIZE_MB
	MaxSizeMB int64 `env:"MAX_SIZE_MB"`
	// Env: STORAGE_CACHE_MAX_MEDIA_SIZE_MB
	MaxMediaSizeMB int64 `env:"MAX_MEDIA_SIZE_MB"`
	// Env: STORAGE_CACHE_ENTITY_TTL
	EntityTTL time.Duration `env:"ENTITY_TTL"`
	// Env: STORAGE_CACHE_MEDIA_TTL
	MediaTTL time.Duration `env:"MEDIA_TTL"`
}

// Queue holds queue capacities and the per-item retry policy.
type Queue struct {
	// Env: QUEUE_MAX_TRANSACTIONS
	MaxTransactions int `env:"MAX_TRANSACTIONS"`
	// Env: QUEUE_MAX_EVENTS
	MaxEvents int `env:"MAX_EVENTS"`
	// RetryAttempts is the per-item retry ceiling and the transport attempt count.
	// Env: QUEUE_RETRY_ATTEMPTS
	RetryAttempts int `env:"RETRY_ATTEMPTS"`
	// RetryBackoff is the base of the exponential transport backoff.
	// Env: QUEUE_RETRY_BACKOFF
	RetryBackoff time.Duration `env:"RETRY_BACKOFF"`
}

// Server holds the reference backend listener settings.
type Server struct {
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	// AllowedOrigins enables CORS for browser kiosks. Comma separated.
	// Env: SERVER_ALLOWED_ORIGINS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	// CatalogPath is a JSON or YAML file the ledger is seeded from.
	// Env: SERVER_CATALOG
	CatalogPath string `env:"CATALOG"`
}

// Adapter holds the client's view of the backend.
type Adapter struct {
	// HTTPAddress is the backend base URL or host:port.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds background job periods.
type Workers struct {
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
	// CleanupInterval drives TTL cleanup and queue pruning.
	// Env: WORKERS_CLEANUP_INTERVAL
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL"`
}

// Network holds connectivity probing settings.
type Network struct {
	// Env: NETWORK_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
	// OnlineDebounce is how long the link must stay up before online fires.
	// Env: NETWORK_ONLINE_DEBOUNCE
	OnlineDebounce time.Duration `env:"ONLINE_DEBOUNCE"`
}

// Defaults returns the built-in values used for every field no source set.
func Defaults() StructuredConfig {
	return StructuredConfig{
		App: App{
			TokenIssuer:   "go-offline-sync",
			TokenDuration: 24 * time.Hour,
			Version:       "dev",
		},
		Storage: Storage{
			DB:    DB{DSN: "offline-sync.db"},
			Media: Media{Dir: "media"},
			Cache: Cache{
				MaxSizeMB:      200,
				MaxMediaSizeMB: 500,
				EntityTTL:      6 * time.Hour,
				MediaTTL:       24 * time.Hour,
			},
		},
		Queue: Queue{
			MaxTransactions: 500,
			MaxEvents:       1000,
			RetryAttempts:   5,
			RetryBackoff:    time.Second,
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		Adapter: Adapter{
			HTTPAddress:    "http://localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		Workers: Workers{
			SyncInterval:    5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Network: Network{
			ProbeInterval:  15 * time.Second,
			OnlineDebounce: 3 * time.Second,
		},
	}
}

// GetStructuredConfig loads the configuration from env, then args, then the
// config file (path taken from either), fills defaults and validates it.
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withFile().
		build()
}
