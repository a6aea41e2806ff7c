// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Watermarks are the per-kind timestamps of the last successful sync. The
// server returns only updates newer than them.
type Watermarks struct {
	POI     time.Time `json:"poi"`
	Media   time.Time `json:"media"`
	Rewards time.Time `json:"rewards"`
	Profile time.Time `json:"profile"`
	Loyalty time.Time `json:"loyalty"`
}

// Get returns the watermark of kind.
func (w Watermarks) Get(kind EntityKind) time.Time {
	switch kind {
	case KindPOI:
		return w.POI
	case KindMedia:
		return w.Media
	case KindReward:
		return w.Rewards
	case KindProfile:
		return w.Profile
	case KindLoyalty:
		return w.Loyalty
	}
	return time.Time{}
}

// Set moves the watermark of kind to t. Watermarks never move backwards.
func (w *Watermarks) Set(kind EntityKind, t time.Time) {
	var dst *time.Time
	switch kind {
	case KindPOI:
		dst = &w.POI
	case KindMedia:
		dst = &w.Media
	case KindReward:
		dst = &w.Rewards
	case KindProfile:
		dst = &w.Profile
	case KindLoyalty:
		dst = &w.Loyalty
	default:
		return
	}
	if t.After(*dst) {
		*dst = t
	}
}

// SyncBatchRequest is the body of POST /api/sync/batch.
type SyncBatchRequest struct {
	UserID       string            `json:"user_id"`
	Transactions []WireTransaction `json:"transactions"`
	Events       []WireEvent       `json:"events"`
	Watermarks   Watermarks        `json:"watermarks"`
}

// ServerData is the authoritative state the server attaches to a
// transaction result, typically on conflict.
type ServerData struct {
	ConflictKind   ConflictKind    `json:"conflict_kind,omitempty"`
	LoyaltyBalance *LoyaltyBalance `json:"loyalty_balance,omitempty"`
	Reward         *Reward         `json:"reward,omitempty"`
	Profile        *UserProfile    `json:"profile,omitempty"`
}

// TransactionResult is the server verdict for one transaction.
type TransactionResult struct {
	QueueID    string            `json:"queue_id"`
	Status     TransactionStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
	ServerData *ServerData       `json:"server_data,omitempty"`
}

// EventResult is the server verdict for one analytics event.
type EventResult struct {
	EventID string      `json:"event_id"`
	Status  EventStatus `json:"status"`
	Error   string      `json:"error,omitempty"`
}

// ServerUpdates is the server-push bundle merged into the caches.
type ServerUpdates struct {
	POIs    []POI           `json:"pois,omitempty"`
	Media   []MediaAsset    `json:"media,omitempty"`
	Loyalty *LoyaltyBalance `json:"loyalty,omitempty"`
	Rewards []Reward        `json:"rewards,omitempty"`
	Profile *UserProfile    `json:"profile,omitempty"`
}

// Empty reports whether the bundle carries nothing.
func (u ServerUpdates) Empty() bool {
	return len(u.POIs) == 0 && len(u.Media) == 0 && u.Loyalty == nil &&
		len(u.Rewards) == 0 && u.Profile == nil
}

// SyncBatchResponse is the body returned by POST /api/sync/batch.
type SyncBatchResponse struct {
	Transactions []TransactionResult `json:"transactions"`
	Events       []EventResult       `json:"events"`
	Updates      ServerUpdates       `json:"updates"`
	ServerTime   time.Time           `json:"server_time"`
}

// SyncBatch is a built, not yet submitted, batch. The queue entries are kept
// next to the wire request so outcomes can be matched back in order.
type SyncBatch struct {
	Request      SyncBatchRequest
	Transactions []*QueuedTransaction
	Events       []*QueuedAnalyticsEvent
}

// Empty reports whether the batch carries no queued work. An empty batch is
// still submitted to pull server updates.
func (b SyncBatch) Empty() bool {
	return len(b.Transactions) == 0 && len(b.Events) == 0
}

// TransactionOutcome pairs a batched transaction with its verdict. Err is set
// when the verdict is failed or missing.
type TransactionOutcome struct {
	Transaction *QueuedTransaction
	Result      TransactionResult
	Err         error
}

// EventOutcome pairs a batched event with its verdict.
type EventOutcome struct {
	Event  *QueuedAnalyticsEvent
	Result EventResult
	Err    error
}

// BatchOutcome is a parsed response, ordered as the batch.
type BatchOutcome struct {
	Transactions []TransactionOutcome
	Events       []EventOutcome
	Updates      ServerUpdates
	ServerTime   time.Time
}
