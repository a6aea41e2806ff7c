// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"strings"
)

// validate checks the invariants every runtime relies on after defaults
// have been applied.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.Cache.MaxSizeMB <= 0 || cfg.Storage.Cache.MaxMediaSizeMB <= 0 ||
		cfg.Storage.Cache.EntityTTL <= 0 || cfg.Storage.Cache.MediaTTL <= 0 {
		return fmt.Errorf("%w: cache budgets and TTLs must be positive", ErrInvalidStorageConfigs)
	}

	if cfg.Queue.MaxTransactions <= 0 || cfg.Queue.MaxEvents <= 0 ||
		cfg.Queue.RetryAttempts <= 0 || cfg.Queue.RetryBackoff <= 0 {
		return fmt.Errorf("%w: capacities and retry policy must be positive", ErrInvalidQueueConfigs)
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.CleanupInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Network.ProbeInterval <= 0 || cfg.Network.OnlineDebounce < 0 {
		return fmt.Errorf("%w: invalid network probing", ErrInvalidWorkerConfigs)
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DSN == "" || strings.Contains(cfg.Storage.DSN, "memory") || cfg.Storage.MediaDir == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.App.UserID == "" || cfg.App.HashKey == "" {
		return ErrInvalidAppConfigs
	}

	return nil
}

func (cfg *ServerConfig) validate() error {
	if cfg.HTTPAddress == "" || cfg.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.HashKey == "" || cfg.TokenSignKey == "" || cfg.TokenIssuer == "" || cfg.TokenDuration <= 0 {
		return ErrInvalidAppConfigs
	}

	return nil
}
