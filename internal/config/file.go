package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors [StructuredConfig] for config files. Durations are
// written as strings like "5m" or "1h30m".
type fileConfig struct {
	App struct {
		UserID        string   `json:"user_id" yaml:"user_id" toml:"user_id"`
		TokenSignKey  string   `json:"token_sign_key" yaml:"token_sign_key" toml:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer" yaml:"token_issuer" toml:"token_issuer"`
		TokenDuration Duration `json:"token_duration" yaml:"token_duration" toml:"token_duration"`
		HashKey       string   `json:"hash_key" yaml:"hash_key" toml:"hash_key"`
		Version       string   `json:"version" yaml:"version" toml:"version"`
		Headless      bool     `json:"headless" yaml:"headless" toml:"headless"`
	} `json:"app" yaml:"app" toml:"app"`

	Storage struct {
		DSN            string   `json:"dsn" yaml:"dsn" toml:"dsn"`
		MediaDir       string   `json:"media_dir" yaml:"media_dir" toml:"media_dir"`
		MaxCacheMB     int64    `json:"max_cache_mb" yaml:"max_cache_mb" toml:"max_cache_mb"`
		MaxMediaMB     int64    `json:"max_media_mb" yaml:"max_media_mb" toml:"max_media_mb"`
		EntityCacheTTL Duration `json:"entity_cache_ttl" yaml:"entity_cache_ttl" toml:"entity_cache_ttl"`
		MediaCacheTTL  Duration `json:"media_cache_ttl" yaml:"media_cache_ttl" toml:"media_cache_ttl"`
	} `json:"storage" yaml:"storage" toml:"storage"`

	Queue struct {
		MaxTransactions int      `json:"max_transactions" yaml:"max_transactions" toml:"max_transactions"`
		MaxEvents       int      `json:"max_events" yaml:"max_events" toml:"max_events"`
		RetryAttempts   int      `json:"retry_attempts" yaml:"retry_attempts" toml:"retry_attempts"`
		RetryBackoff    Duration `json:"retry_backoff" yaml:"retry_backoff" toml:"retry_backoff"`
	} `json:"queue" yaml:"queue" toml:"queue"`

	Server struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address" toml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
		AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
		Catalog        string   `json:"catalog" yaml:"catalog" toml:"catalog"`
	} `json:"server" yaml:"server" toml:"server"`

	Adapter struct {
		ServerURL      string   `json:"server_url" yaml:"server_url" toml:"server_url"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	} `json:"adapter" yaml:"adapter" toml:"adapter"`

	Workers struct {
		SyncInterval    Duration `json:"sync_interval" yaml:"sync_interval" toml:"sync_interval"`
		CleanupInterval Duration `json:"cleanup_interval" yaml:"cleanup_interval" toml:"cleanup_interval"`
	} `json:"workers" yaml:"workers" toml:"workers"`

	Network struct {
		ProbeInterval  Duration `json:"probe_interval" yaml:"probe_interval" toml:"probe_interval"`
		OnlineDebounce Duration `json:"online_debounce" yaml:"online_debounce" toml:"online_debounce"`
	} `json:"network" yaml:"network" toml:"network"`
}

// parseFile decodes a JSON (.json), YAML (.yaml, .yml) or TOML (.toml) file.
func parseFile(path string) (*StructuredConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding config file %s: %w", filepath.Base(path), err)
	}

	return fc.toStructured(), nil
}

func (fc *fileConfig) toStructured() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			UserID:        fc.App.UserID,
			TokenSignKey:  fc.App.TokenSignKey,
			TokenIssuer:   fc.App.TokenIssuer,
			TokenDuration: time.Duration(fc.App.TokenDuration),
			HashKey:       fc.App.HashKey,
			Version:       fc.App.Version,
			Headless:      fc.App.Headless,
		},
		Storage: Storage{
			DB:    DB{DSN: fc.Storage.DSN},
			Media: Media{Dir: fc.Storage.MediaDir},
			Cache: Cache{
				MaxSizeMB:      fc.Storage.MaxCacheMB,
				MaxMediaSizeMB: fc.Storage.MaxMediaMB,
				EntityTTL:      time.Duration(fc.Storage.EntityCacheTTL),
				MediaTTL:       time.Duration(fc.Storage.MediaCacheTTL),
			},
		},
		Queue: Queue{
			MaxTransactions: fc.Queue.MaxTransactions,
			MaxEvents:       fc.Queue.MaxEvents,
			RetryAttempts:   fc.Queue.RetryAttempts,
			RetryBackoff:    time.Duration(fc.Queue.RetryBackoff),
		},
		Server: Server{
			HTTPAddress:    fc.Server.HTTPAddress,
			RequestTimeout: time.Duration(fc.Server.RequestTimeout),
			AllowedOrigins: fc.Server.AllowedOrigins,
			CatalogPath:    fc.Server.Catalog,
		},
		Adapter: Adapter{
			HTTPAddress:    fc.Adapter.ServerURL,
			RequestTimeout: time.Duration(fc.Adapter.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:    time.Duration(fc.Workers.SyncInterval),
			CleanupInterval: time.Duration(fc.Workers.CleanupInterval),
		},
		Network: Network{
			ProbeInterval:  time.Duration(fc.Network.ProbeInterval),
			OnlineDebounce: time.Duration(fc.Network.OnlineDebounce),
		},
	}
}

// Duration is a time.Duration read from strings like "1h" or "30s" in every
// supported file format. JSON numbers are taken as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
