// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionKind tags the payload carried by a [QueuedTransaction].
type TransactionKind string

const (
	TxEarn           TransactionKind = "earn"
	TxRedeem         TransactionKind = "redeem"
	TxProfileUpdate  TransactionKind = "profile_update"
	TxAnalyticsEvent TransactionKind = "analytics_event"
)

// Monetary reports whether transactions of this kind move loyalty points.
// The server is always authoritative for them.
func (k TransactionKind) Monetary() bool {
	return k == TxEarn || k == TxRedeem
}

// TransactionStatus is the lifecycle state of a queued transaction.
type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxSynced   TransactionStatus = "synced"
	TxConflict TransactionStatus = "conflict"
	TxFailed   TransactionStatus = "failed"
)

// Payload is the tagged union of mutation bodies. Exactly one Go type exists
// per [TransactionKind].
type Payload interface {
	TransactionKind() TransactionKind
	Validate() error
}

// EarnPayload credits points to the member.
type EarnPayload struct {
	Points    int64  `json:"points"`
	Reason    string `json:"reason,omitempty"`
	Reference string `json:"reference,omitempty"`
}

func (EarnPayload) TransactionKind() TransactionKind { return TxEarn }

func (p EarnPayload) Validate() error {
	if p.Points <= 0 {
		return fmt.Errorf("%w: earn points must be positive", ErrInvalidPayload)
	}
	return nil
}

// RedeemPayload spends points on a reward. BaseVersion is the loyalty balance
// version the client saw when it redeemed.
type RedeemPayload struct {
	RewardID    string `json:"reward_id"`
	Points      int64  `json:"points"`
	BaseVersion *int64 `json:"base_version,omitempty"`
}

func (RedeemPayload) TransactionKind() TransactionKind { return TxRedeem }

func (p RedeemPayload) Validate() error {
	if p.Points <= 0 {
		return fmt.Errorf("%w: redeem points must be positive", ErrInvalidPayload)
	}
	return nil
}

// ProfileUpdatePayload is a partial profile update; nil fields are untouched.
type ProfileUpdatePayload struct {
	Locale        *string `json:"locale,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
	Theme         *string `json:"theme,omitempty"`
	Accessibility *bool   `json:"accessibility,omitempty"`
	BaseVersion   *int64  `json:"base_version,omitempty"`
}

func (ProfileUpdatePayload) TransactionKind() TransactionKind { return TxProfileUpdate }

func (p ProfileUpdatePayload) Validate() error {
	if p.Locale == nil && p.Notifications == nil && p.Theme == nil && p.Accessibility == nil {
		return fmt.Errorf("%w: profile update has no fields", ErrInvalidPayload)
	}
	return nil
}

// Apply writes the non-nil fields of p onto profile.
func (p ProfileUpdatePayload) Apply(profile *UserProfile) {
	if p.Locale != nil {
		profile.Locale = *p.Locale
	}
	if p.Notifications != nil {
		profile.Preferences.Notifications = *p.Notifications
	}
	if p.Theme != nil {
		profile.Preferences.Theme = *p.Theme
	}
	if p.Accessibility != nil {
		profile.Preferences.Accessibility = *p.Accessibility
	}
}

// AnalyticsEventPayload is telemetry. It is also the payload of analytics
// queue entries.
type AnalyticsEventPayload struct {
	EventType  string         `json:"event_type"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (AnalyticsEventPayload) TransactionKind() TransactionKind { return TxAnalyticsEvent }

func (p AnalyticsEventPayload) Validate() error {
	if p.EventType == "" {
		return fmt.Errorf("%w: analytics event type is empty", ErrInvalidPayload)
	}
	return nil
}

// DecodePayload unmarshals raw into the payload type registered for kind.
func DecodePayload(kind TransactionKind, raw []byte) (Payload, error) {
	switch kind {
	case TxEarn:
		return decodeAs[EarnPayload](raw)
	case TxRedeem:
		return decodeAs[RedeemPayload](raw)
	case TxProfileUpdate:
		return decodeAs[ProfileUpdatePayload](raw)
	case TxAnalyticsEvent:
		return decodeAs[AnalyticsEventPayload](raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransactionKind, kind)
}

func decodeAs[T Payload](raw []byte) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return p, nil
}

// ConflictInfo is attached to a transaction the server rejected with a
// conflict. It carries what is needed to resolve it later.
type ConflictInfo struct {
	Kind       ConflictKind `json:"kind"`
	ServerData *ServerData  `json:"server_data,omitempty"`
	DetectedAt time.Time    `json:"detected_at"`
}

// QueuedTransaction is a mutation waiting for, or already given, a server
// verdict. Seq preserves enqueue order across restarts.
type QueuedTransaction struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Kind       TransactionKind   `json:"kind"`
	Payload    Payload           `json:"-"`
	Status     TransactionStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	RetryCount int               `json:"retry_count"`
	Priority   int               `json:"priority"`
	Seq        int64             `json:"seq"`
	LastError  string            `json:"last_error,omitempty"`
	Conflict   *ConflictInfo     `json:"conflict,omitempty"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

type queuedTransactionJSON QueuedTransaction

// MarshalJSON encodes the payload next to its kind tag.
func (t QueuedTransaction) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		queuedTransactionJSON
		Payload json.RawMessage `json:"payload"`
	}{queuedTransactionJSON(t), payload})
}

// UnmarshalJSON decodes the payload using the kind tag.
func (t *QueuedTransaction) UnmarshalJSON(data []byte) error {
	var aux struct {
		queuedTransactionJSON
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = QueuedTransaction(aux.queuedTransactionJSON)
	payload, err := DecodePayload(t.Kind, aux.Payload)
	if err != nil {
		return err
	}
	t.Payload = payload
	return nil
}

// Unresolved reports whether the transaction is in conflict and still waits
// for an explicit resolution.
func (t *QueuedTransaction) Unresolved() bool {
	return t.Status == TxConflict && t.ResolvedAt == nil
}

// EntityRefs returns the cache keys the transaction's optimistic update
// touched. Such entries are pinned while the transaction is pending.
func (t *QueuedTransaction) EntityRefs() []string {
	switch p := t.Payload.(type) {
	case EarnPayload:
		return []string{CacheKey(KindLoyalty, t.UserID)}
	case RedeemPayload:
		refs := []string{CacheKey(KindLoyalty, t.UserID)}
		if p.RewardID != "" {
			refs = append(refs, CacheKey(KindReward, p.RewardID))
		}
		return refs
	case ProfileUpdatePayload:
		return []string{CacheKey(KindProfile, t.UserID)}
	}
	return nil
}

// WireTransaction is the request shape of one queued transaction.
type WireTransaction struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Kind     TransactionKind `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	Priority int             `json:"priority"`
}

// Wire converts t into its request shape.
func (t *QueuedTransaction) Wire() (WireTransaction, error) {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return WireTransaction{}, fmt.Errorf("encode payload of %s: %w", t.ID, err)
	}
	return WireTransaction{
		ID:       t.ID,
		UserID:   t.UserID,
		Kind:     t.Kind,
		Payload:  payload,
		Priority: t.Priority,
	}, nil
}
