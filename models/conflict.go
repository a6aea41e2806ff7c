// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

// ConflictKind classifies a divergence between local and server state.
type ConflictKind string

const (
	ConflictVersion           ConflictKind = "version"
	ConflictSimultaneousEdit  ConflictKind = "simultaneous_edit"
	ConflictDeletedDependency ConflictKind = "deleted_dependency"
)

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	StrategyServerWins Strategy = "server_wins"
	StrategyClientWins Strategy = "client_wins"
	StrategyMerge      Strategy = "merge"
	StrategyManual     Strategy = "manual"
)

// Conflict is the input of a resolution. Local and Server are the JSON
// encodings of the competing entity states; either may be empty.
type Conflict struct {
	EntityKind EntityKind      `json:"entity_kind"`
	EntityID   string          `json:"entity_id"`
	Kind       ConflictKind    `json:"kind"`
	TxKind     TransactionKind `json:"tx_kind,omitempty"`
	Local      json.RawMessage `json:"local,omitempty"`
	Server     json.RawMessage `json:"server,omitempty"`
}

// Monetary reports whether the conflict touches loyalty points.
func (c Conflict) Monetary() bool {
	return c.EntityKind == KindLoyalty || c.TxKind.Monetary()
}

// Resolution is the outcome of a resolution. Data is empty when nothing
// should be written (manual strategy). AutoApply is false when the caller
// must confirm before anything changes.
type Resolution struct {
	Strategy  Strategy        `json:"strategy"`
	Data      json.RawMessage `json:"data,omitempty"`
	AutoApply bool            `json:"auto_apply"`
}
