package config

import (
	"fmt"
	"time"
)

// ClientConfig is the client runtime's view of [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Adapter ClientAdapter
	Storage ClientStorage
	Queue   Queue
	Workers Workers
	Network Network
}

// ClientApp holds client identity settings.
type ClientApp struct {
	UserID   string
	HashKey  string
	Version  string
	Headless bool
}

// ClientAdapter holds the backend location used by the client transport.
type ClientAdapter struct {
	HTTPAddress    string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryBackoff   time.Duration
}

// ClientStorage holds local persistence settings with budgets in bytes.
type ClientStorage struct {
	DSN           string
	MediaDir      string
	MaxCacheBytes int64
	MaxMediaBytes int64
	EntityTTL     time.Duration
	MediaTTL      time.Duration
}

const megabyte = 1 << 20

// GetClientConfig loads the structured config from env, args and file and
// maps it to a validated [ClientConfig].
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return clientView(cfg)
}

// LoadClientConfig loads the client config from env and, when path is not
// empty, the given file. Command-line flags are not consulted.
func LoadClientConfig(path string) (*ClientConfig, error) {
	b := newConfigBuilder().withEnv()
	if path != "" {
		b.configs = append(b.configs, &StructuredConfig{ConfigFilePath: path})
	}

	cfg, err := b.withFile().build()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return clientView(cfg)
}

func clientView(cfg *StructuredConfig) (*ClientConfig, error) {
	clientCfg := &ClientConfig{
		App: ClientApp{
			UserID:   cfg.App.UserID,
			HashKey:  cfg.App.HashKey,
			Version:  cfg.App.Version,
			Headless: cfg.App.Headless,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
			RetryAttempts:  cfg.Queue.RetryAttempts,
			RetryBackoff:   cfg.Queue.RetryBackoff,
		},
		Storage: ClientStorage{
			DSN:           cfg.Storage.DB.DSN,
			MediaDir:      cfg.Storage.Media.Dir,
			MaxCacheBytes: cfg.Storage.Cache.MaxSizeMB * megabyte,
			MaxMediaBytes: cfg.Storage.Cache.MaxMediaSizeMB * megabyte,
			EntityTTL:     cfg.Storage.Cache.EntityTTL,
			MediaTTL:      cfg.Storage.Cache.MediaTTL,
		},
		Queue:   cfg.Queue,
		Workers: cfg.Workers,
		Network: cfg.Network,
	}

	return clientCfg, clientCfg.validate()
}
