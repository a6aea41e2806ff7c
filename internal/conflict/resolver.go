// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package conflict resolves divergence between local and server state.
// Resolution is pure: the same conflict and strategy always give the same
// result, and nothing is written here.
package conflict

import (
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-offline-sync/models"
)

// DefaultStrategy is used when the caller does not pick one.
const DefaultStrategy = models.StrategyServerWins

// Resolve applies strategy to c.
//
// Monetary conflicts (loyalty balance, earn and redeem) are always resolved
// server-wins whatever strategy is requested. Merge is supported for the
// profile only. A deleted dependency cannot be resolved automatically.
func Resolve(c models.Conflict, strategy models.Strategy) (models.Resolution, error) {
	if strategy == "" {
		strategy = DefaultStrategy
	}

	if c.Monetary() {
		return serverWins(c)
	}
	if c.Kind == models.ConflictDeletedDependency {
		return models.Resolution{}, fmt.Errorf("%w: %s on %s", models.ErrUnsupportedConflict, c.Kind, c.EntityKind)
	}

	switch strategy {
	case models.StrategyServerWins:
		return serverWins(c)
	case models.StrategyClientWins:
		if len(c.Local) == 0 {
			return models.Resolution{}, fmt.Errorf("%w: no local state for %s/%s", models.ErrSyncConflict, c.EntityKind, c.EntityID)
		}
		return models.Resolution{Strategy: strategy, Data: c.Local, AutoApply: true}, nil
	case models.StrategyMerge:
		return merge(c)
	case models.StrategyManual:
		return models.Resolution{Strategy: strategy, AutoApply: false}, nil
	}

	return models.Resolution{}, fmt.Errorf("%w: %q", models.ErrUnsupportedStrategy, strategy)
}

func serverWins(c models.Conflict) (models.Resolution, error) {
	if len(c.Server) == 0 {
		return models.Resolution{}, fmt.Errorf("%w: no server state for %s/%s", models.ErrSyncConflict, c.EntityKind, c.EntityID)
	}
	return models.Resolution{Strategy: models.StrategyServerWins, Data: c.Server, AutoApply: true}, nil
}

// merge overlays the server fields onto the local ones. Only top-level keys
// are merged; the server wins every collision.
func merge(c models.Conflict) (models.Resolution, error) {
	if c.EntityKind != models.KindProfile {
		return models.Resolution{}, fmt.Errorf("%w: merge is not supported for %s", models.ErrUnsupportedStrategy, c.EntityKind)
	}

	merged := make(map[string]json.RawMessage)
	for _, side := range []json.RawMessage{c.Local, c.Server} {
		if len(side) == 0 {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(side, &fields); err != nil {
			return models.Resolution{}, fmt.Errorf("%w: %w", models.ErrInvalidPayload, err)
		}
		for k, v := range fields {
			merged[k] = v
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return models.Resolution{}, fmt.Errorf("encode merged profile: %w", err)
	}
	return models.Resolution{Strategy: models.StrategyMerge, Data: data, AutoApply: true}, nil
}
