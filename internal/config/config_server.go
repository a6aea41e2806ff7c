package config

import (
	"fmt"
	"time"
)

// ServerConfig is the reference backend's view of [StructuredConfig].
type ServerConfig struct {
	HTTPAddress    string
	RequestTimeout time.Duration
	AllowedOrigins []string
	HashKey        string
	TokenSignKey   string
	TokenIssuer    string
	TokenDuration  time.Duration
	Version        string
	CatalogPath    string
}

// GetServerConfig loads the structured config from env, args and file and
// maps it to a validated [ServerConfig].
func GetServerConfig(args []string) (*ServerConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := &ServerConfig{
		HTTPAddress:    cfg.Server.HTTPAddress,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HashKey:        cfg.App.HashKey,
		TokenSignKey:   cfg.App.TokenSignKey,
		TokenIssuer:    cfg.App.TokenIssuer,
		TokenDuration:  cfg.App.TokenDuration,
		Version:        cfg.App.Version,
		CatalogPath:    cfg.Server.CatalogPath,
	}

	return serverCfg, serverCfg.validate()
}
