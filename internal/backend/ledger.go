// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package backend holds the state of the reference sync server: per-member
// loyalty ledgers and profiles, the POI, rewards and media catalogs, and the
// verdicts already given to transaction ids.
//
// Everything is kept in memory. The package exists so the client can be
// developed and tested end to end against a real HTTP peer.
package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// DefaultTier is given to members created on first contact.
const DefaultTier = "member"

type account struct {
	balance models.LoyaltyBalance
	profile models.UserProfile
}

// Ledger is the in-memory state of the reference backend. It is safe for
// concurrent use.
//
// Transaction ids are global: a replayed id gets the recorded verdict back
// and is never applied twice.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*account
	results  map[string]models.TransactionResult
	events   map[string]struct{}

	pois    map[string]models.POI
	rewards map[string]models.Reward
	media   map[string]models.MediaAsset

	now    func() time.Time
	logger *logger.Logger
}

// NewLedger returns an empty ledger.
func NewLedger(log *logger.Logger) *Ledger {
	return &Ledger{
		accounts: make(map[string]*account),
		results:  make(map[string]models.TransactionResult),
		events:   make(map[string]struct{}),
		pois:     make(map[string]models.POI),
		rewards:  make(map[string]models.Reward),
		media:    make(map[string]models.MediaAsset),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.WithComponent("ledger"),
	}
}

// Catalog is the reference data a ledger can be seeded with.
type Catalog struct {
	POIs     []models.POI            `json:"pois"`
	Rewards  []models.Reward         `json:"rewards"`
	Media    []models.MediaAsset     `json:"media"`
	Balances []models.LoyaltyBalance `json:"balances"`
	Profiles []models.UserProfile    `json:"profiles"`
}

// Seed loads c into the ledger. Entities without a version start at 1 and
// entities without a timestamp are stamped with the current time.
func (l *Ledger) Seed(c Catalog) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamp := func(e *models.SyncableEntity) {
		if e.Version == nil {
			e.Version = version(1)
		}
		if e.LastUpdated.IsZero() {
			e.LastUpdated = now
		}
	}

	for _, p := range c.POIs {
		stamp(&p.SyncableEntity)
		l.pois[p.ID] = p
	}
	for _, r := range c.Rewards {
		stamp(&r.SyncableEntity)
		l.rewards[r.ID] = r
	}
	for _, m := range c.Media {
		stamp(&m.SyncableEntity)
		l.media[m.ID] = m
	}
	for _, b := range c.Balances {
		stamp(&b.SyncableEntity)
		l.accountLocked(b.ID).balance = b
	}
	for _, p := range c.Profiles {
		stamp(&p.SyncableEntity)
		l.accountLocked(p.ID).profile = p
	}
}

// PutReward creates or replaces a catalog reward and bumps its version.
func (l *Ledger) PutReward(r models.Reward) models.Reward {
	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.rewards[r.ID]; ok {
		r.Version = version(old.VersionValue() + 1)
	} else if r.Version == nil {
		r.Version = version(1)
	}
	r.LastUpdated = l.now()
	l.rewards[r.ID] = r
	return r
}

// DeleteReward tombstones a catalog reward. Redeems against it conflict with
// deleted_dependency from then on.
func (l *Ledger) DeleteReward(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.rewards[id]
	if !ok {
		return false
	}
	r.Deleted = true
	r.Version = version(r.VersionValue() + 1)
	r.LastUpdated = l.now()
	l.rewards[id] = r
	return true
}

// Balance returns the member's current balance.
func (l *Ledger) Balance(userID string) models.LoyaltyBalance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountLocked(userID).balance
}

// Profile returns the member's current profile.
func (l *Ledger) Profile(userID string) models.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountLocked(userID).profile
}

// Apply decides one transaction for userID. A transaction id seen before
// gets its recorded verdict back unchanged.
//
// Earns and redeems commute, so a redeem is judged against the current
// balance and catalog only; its base version is not compared.
func (l *Ledger) Apply(ctx context.Context, userID string, tx models.WireTransaction) models.TransactionResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.results[tx.ID]; ok {
		logger.FromContext(ctx).Debug().
			Str("func", "Ledger.Apply").
			Str("tx_id", tx.ID).
			Msg("replaying recorded verdict")
		return r
	}

	result := l.decideLocked(userID, tx)
	result.QueueID = tx.ID
	l.results[tx.ID] = result
	return result
}

func (l *Ledger) decideLocked(userID string, tx models.WireTransaction) models.TransactionResult {
	payload, err := models.DecodePayload(tx.Kind, tx.Payload)
	if err != nil {
		return failed(err)
	}
	if err = payload.Validate(); err != nil {
		return failed(err)
	}

	acct := l.accountLocked(userID)
	now := l.now()

	switch p := payload.(type) {
	case models.EarnPayload:
		acct.credit(p.Points, now)
		return models.TransactionResult{Status: models.TxSynced}

	case models.RedeemPayload:
		return l.redeemLocked(acct, p, now)

	case models.ProfileUpdatePayload:
		if p.BaseVersion != nil && *p.BaseVersion != acct.profile.VersionValue() {
			profile := acct.profile
			return models.TransactionResult{
				Status: models.TxConflict,
				Error:  fmt.Sprintf("profile is at version %d", profile.VersionValue()),
				ServerData: &models.ServerData{
					ConflictKind: models.ConflictSimultaneousEdit,
					Profile:      &profile,
				},
			}
		}
		p.Apply(&acct.profile)
		acct.profile.Version = version(acct.profile.VersionValue() + 1)
		acct.profile.LastUpdated = now
		return models.TransactionResult{Status: models.TxSynced}

	case models.AnalyticsEventPayload:
		return models.TransactionResult{Status: models.TxSynced}
	}

	return failed(fmt.Errorf("%w: %q", models.ErrUnknownTransactionKind, tx.Kind))
}

func (l *Ledger) redeemLocked(acct *account, p models.RedeemPayload, now time.Time) models.TransactionResult {
	conflict := func(kind models.ConflictKind, reason string, reward *models.Reward) models.TransactionResult {
		balance := acct.balance
		return models.TransactionResult{
			Status: models.TxConflict,
			Error:  reason,
			ServerData: &models.ServerData{
				ConflictKind:   kind,
				LoyaltyBalance: &balance,
				Reward:         reward,
			},
		}
	}

	var reward *models.Reward
	if p.RewardID != "" {
		r, ok := l.rewards[p.RewardID]
		if !ok || r.Deleted {
			if ok {
				reward = &r
			}
			return conflict(models.ConflictDeletedDependency, "reward is no longer available", reward)
		}
		if r.QuantityAvailable <= 0 {
			return conflict(models.ConflictVersion, "reward is out of stock", &r)
		}
		reward = &r
	}

	if acct.balance.Points < p.Points {
		return conflict(models.ConflictVersion, "insufficient points", reward)
	}

	acct.debit(p.Points, now)
	if reward != nil {
		reward.QuantityAvailable--
		reward.Version = version(reward.VersionValue() + 1)
		reward.LastUpdated = now
		l.rewards[reward.ID] = *reward
	}
	return models.TransactionResult{Status: models.TxSynced}
}

// RecordEvent accepts one analytics event. Replays are accepted again
// without being counted twice.
func (l *Ledger) RecordEvent(ev models.WireEvent) models.EventResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.Type == "" {
		return models.EventResult{EventID: ev.ID, Status: models.EventFailed, Error: "event type is empty"}
	}
	l.events[ev.ID] = struct{}{}
	return models.EventResult{EventID: ev.ID, Status: models.EventSent}
}

// EventCount returns how many distinct events were accepted.
func (l *Ledger) EventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// UpdatesSince returns what changed for userID after the watermarks, and
// the server time the client should store as its new watermark. Both are
// read under one lock so no change falls between them.
func (l *Ledger) UpdatesSince(userID string, w models.Watermarks) (models.ServerUpdates, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var u models.ServerUpdates
	for _, p := range l.pois {
		if p.LastUpdated.After(w.POI) {
			u.POIs = append(u.POIs, p)
		}
	}
	for _, r := range l.rewards {
		if r.LastUpdated.After(w.Rewards) {
			u.Rewards = append(u.Rewards, r)
		}
	}
	for _, m := range l.media {
		if m.LastUpdated.After(w.Media) {
			u.Media = append(u.Media, m)
		}
	}

	acct := l.accountLocked(userID)
	if acct.balance.LastUpdated.After(w.Loyalty) {
		balance := acct.balance
		u.Loyalty = &balance
	}
	if acct.profile.LastUpdated.After(w.Profile) {
		profile := acct.profile
		u.Profile = &profile
	}

	return u, l.now()
}

func (l *Ledger) accountLocked(userID string) *account {
	if acct, ok := l.accounts[userID]; ok {
		return acct
	}
	now := l.now()
	acct := &account{
		balance: models.LoyaltyBalance{
			SyncableEntity: models.SyncableEntity{ID: userID, Version: version(1), LastUpdated: now},
			TierID:         DefaultTier,
			TierName:       "Member",
		},
		profile: models.UserProfile{
			SyncableEntity: models.SyncableEntity{ID: userID, Version: version(1), LastUpdated: now},
			Locale:         "en",
		},
	}
	l.accounts[userID] = acct
	return acct
}

func (a *account) credit(points int64, now time.Time) {
	a.balance.Points += points
	a.balance.Version = version(a.balance.VersionValue() + 1)
	a.balance.LastUpdated = now
	a.balance.LastSync = now
}

func (a *account) debit(points int64, now time.Time) {
	a.credit(-points, now)
}

func failed(err error) models.TransactionResult {
	return models.TransactionResult{Status: models.TxFailed, Error: err.Error()}
}

func version(v int64) *int64 { return &v }
