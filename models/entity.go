// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityKind identifies one of the fixed set of reference entity kinds held
// in the local cache.
type EntityKind string

const (
	KindPOI     EntityKind = "poi"
	KindMedia   EntityKind = "media"
	KindLoyalty EntityKind = "loyalty"
	KindReward  EntityKind = "reward"
	KindProfile EntityKind = "profile"
)

// EntityKinds lists every supported kind in a stable order. Watermarks and
// cache statistics are reported in this order.
var EntityKinds = []EntityKind{KindPOI, KindMedia, KindLoyalty, KindReward, KindProfile}

// Valid reports whether k is one of the supported entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindPOI, KindMedia, KindLoyalty, KindReward, KindProfile:
		return true
	}
	return false
}

// SyncableEntity is the bookkeeping shape shared by every cached kind.
//
// Version and LastUpdated only move forward for a given ID. A tombstoned
// entity (Deleted=true) stays in the cache until its TTL expires so that the
// deletion propagates instead of being resurrected by a stale write.
type SyncableEntity struct {
	ID          string    `json:"id"`
	LastUpdated time.Time `json:"last_updated"`
	Version     *int64    `json:"version,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// Meta returns the receiver. It lets concrete kinds satisfy [Entity] through
// embedding.
func (e *SyncableEntity) Meta() *SyncableEntity {
	return e
}

// VersionValue returns the version or zero when it is not set.
func (e SyncableEntity) VersionValue() int64 {
	if e.Version == nil {
		return 0
	}
	return *e.Version
}

// Entity is implemented by every cacheable kind.
type Entity interface {
	Meta() *SyncableEntity
	Kind() EntityKind
}

// Coordinates is a floor-relative position inside a venue.
type Coordinates struct {
	Floor int     `json:"floor"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// POI is a point of interest inside the venue.
type POI struct {
	SyncableEntity
	Name        LocalizedText `json:"name"`
	Category    string        `json:"category"`
	Coordinates Coordinates   `json:"coordinates"`
	Rating      float64       `json:"rating"`
}

func (*POI) Kind() EntityKind { return KindPOI }

// MediaType distinguishes cached binary assets.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaAsset describes an image or video held by the media cache.
type MediaAsset struct {
	SyncableEntity
	Type         MediaType `json:"type"`
	LocalPath    string    `json:"local_path,omitempty"`
	RemoteURL    string    `json:"remote_url"`
	Size         int64     `json:"size"`
	LastAccessed time.Time `json:"last_accessed"`
}

func (*MediaAsset) Kind() EntityKind { return KindMedia }

// LoyaltyBalance is the member's point balance. The ID is the owning user id.
type LoyaltyBalance struct {
	SyncableEntity
	Points   int64     `json:"points"`
	TierID   string    `json:"tier_id"`
	TierName string    `json:"tier_name"`
	LastSync time.Time `json:"last_sync"`
}

func (*LoyaltyBalance) Kind() EntityKind { return KindLoyalty }

// Reward is an entry of the rewards catalog.
type Reward struct {
	SyncableEntity
	Name              LocalizedText `json:"name"`
	Description       LocalizedText `json:"description"`
	PointCost         int64         `json:"point_cost"`
	QuantityAvailable int64         `json:"quantity_available"`
	ExpiresAt         *time.Time    `json:"expires_at,omitempty"`
}

func (*Reward) Kind() EntityKind { return KindReward }

// Preferences holds user-facing toggles stored in the profile.
type Preferences struct {
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
	Accessibility bool   `json:"accessibility"`
}

// UserProfile is the signed-in member's profile. The ID is the user id.
type UserProfile struct {
	SyncableEntity
	Locale      string      `json:"locale"`
	Preferences Preferences `json:"preferences"`
}

func (*UserProfile) Kind() EntityKind { return KindProfile }

// NewEntity returns an empty value of the given kind, ready to be decoded into.
func NewEntity(kind EntityKind) (Entity, error) {
	switch kind {
	case KindPOI:
		return &POI{}, nil
	case KindMedia:
		return &MediaAsset{}, nil
	case KindLoyalty:
		return &LoyaltyBalance{}, nil
	case KindReward:
		return &Reward{}, nil
	case KindProfile:
		return &UserProfile{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntityKind, kind)
}

// DecodeEntity unmarshals raw into a fresh entity of the given kind.
func DecodeEntity(kind EntityKind, raw []byte) (Entity, error) {
	e, err := NewEntity(kind)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decode %s entity: %w", kind, err)
	}
	return e, nil
}
