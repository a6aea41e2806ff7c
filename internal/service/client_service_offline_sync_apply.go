package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// keySet is a set of cache keys ("<kind>:<id>").
type keySet map[string]struct{}

func (k keySet) has(key string) bool {
	if k == nil {
		return true
	}
	_, ok := k[key]
	return ok
}

// applyOptimistic writes the local effect of tx onto the cached entities.
// When only is not nil, entities outside it are left alone. Optimistic
// writes keep the entity metadata so the next server snapshot replaces them.
func (s *offlineSyncService) applyOptimistic(ctx context.Context, tx *models.QueuedTransaction, only keySet) error {
	switch p := tx.Payload.(type) {
	case models.EarnPayload:
		return s.adjustPoints(ctx, tx.UserID, p.Points, only)

	case models.RedeemPayload:
		if err := s.adjustPoints(ctx, tx.UserID, -p.Points, only); err != nil {
			return err
		}
		if p.RewardID == "" || !only.has(models.CacheKey(models.KindReward, p.RewardID)) {
			return nil
		}
		entry, ok, err := s.cache.Get(ctx, models.KindReward, p.RewardID)
		if err != nil || !ok {
			return err
		}
		reward, isReward := entry.Entity.(*models.Reward)
		if !isReward || reward.Deleted || reward.QuantityAvailable <= 0 {
			return nil
		}
		reward.QuantityAvailable--
		return s.cache.PutResolved(ctx, reward)

	case models.ProfileUpdatePayload:
		if !only.has(models.CacheKey(models.KindProfile, tx.UserID)) {
			return nil
		}
		entry, ok, err := s.cache.Get(ctx, models.KindProfile, tx.UserID)
		if err != nil || !ok {
			return err
		}
		profile, isProfile := entry.Entity.(*models.UserProfile)
		if !isProfile {
			return nil
		}
		p.Apply(profile)
		return s.cache.PutResolved(ctx, profile)
	}
	return nil
}

func (s *offlineSyncService) adjustPoints(ctx context.Context, userID string, delta int64, only keySet) error {
	if !only.has(models.CacheKey(models.KindLoyalty, userID)) {
		return nil
	}
	entry, ok, err := s.cache.Get(ctx, models.KindLoyalty, userID)
	if err != nil || !ok {
		return err
	}
	balance, isBalance := entry.Entity.(*models.LoyaltyBalance)
	if !isBalance {
		return nil
	}
	balance.Points += delta
	return s.cache.PutResolved(ctx, balance)
}

// revertOptimistic takes back the local effect of a transaction that left
// the queue without reaching the server. Point and stock changes are
// inverted. Profile edits cannot be inverted field by field and stay until
// the next server profile replaces them.
func (s *offlineSyncService) revertOptimistic(ctx context.Context, tx *models.QueuedTransaction) error {
	switch p := tx.Payload.(type) {
	case models.EarnPayload:
		return s.adjustPoints(ctx, tx.UserID, -p.Points, nil)

	case models.RedeemPayload:
		if err := s.adjustPoints(ctx, tx.UserID, p.Points, nil); err != nil {
			return err
		}
		if p.RewardID == "" {
			return nil
		}
		entry, ok, err := s.cache.Get(ctx, models.KindReward, p.RewardID)
		if err != nil || !ok {
			return err
		}
		reward, isReward := entry.Entity.(*models.Reward)
		if !isReward || reward.Deleted {
			return nil
		}
		reward.QuantityAvailable++
		return s.cache.PutResolved(ctx, reward)
	}
	return nil
}

// dropEvicted reverts the transactions the queue dropped on overflow.
func (s *offlineSyncService) dropEvicted(ctx context.Context, evicted []*models.QueuedTransaction) {
	for _, tx := range evicted {
		if err := s.revertOptimistic(ctx, tx); err != nil {
			s.logger.Warn().
				Err(err).
				Str("func", "offlineSyncService.dropEvicted").
				Str("tx_id", tx.ID).
				Msg("optimistic update of evicted transaction not reverted")
		}
	}
}

// rebase re-applies the optimistic effects of the still pending transactions
// onto entities freshly replaced by server snapshots. Acknowledged
// transactions are already part of the snapshot and are never replayed.
func (s *offlineSyncService) rebase(ctx context.Context, written keySet) error {
	var errs []error
	for _, tx := range s.queue.PendingTransactions(0) {
		if err := s.applyOptimistic(ctx, tx, written); err != nil {
			errs = append(errs, fmt.Errorf("rebase %s: %w", tx.ID, err))
		}
	}
	return errors.Join(errs...)
}

// applyUpdates merges a server bundle into the caches.
func (s *offlineSyncService) applyUpdates(ctx context.Context, u models.ServerUpdates) []error {
	_, errs := s.mergeUpdates(ctx, u)
	return errs
}

// mergeUpdates writes every entity of u and returns the keys that were
// actually replaced. Stale entities are skipped; other failures are
// collected and do not stop the merge.
func (s *offlineSyncService) mergeUpdates(ctx context.Context, u models.ServerUpdates) (keySet, []error) {
	log := logger.FromContext(ctx)
	written := make(keySet)
	var errs []error

	put := func(e models.Entity) {
		key := models.CacheKey(e.Kind(), e.Meta().ID)
		err := s.cache.Put(ctx, e)
		switch {
		case errors.Is(err, models.ErrStaleWrite):
			log.Debug().Str("key", key).Msg("skipping stale server update")
		case err != nil:
			errs = append(errs, fmt.Errorf("merge %s: %w", key, err))
		default:
			written[key] = struct{}{}
		}
	}

	for i := range u.POIs {
		put(&u.POIs[i])
	}
	for i := range u.Rewards {
		put(&u.Rewards[i])
	}
	if u.Profile != nil {
		put(u.Profile)
	}
	if u.Loyalty != nil {
		key := models.CacheKey(models.KindLoyalty, u.Loyalty.ID)
		if err := s.cache.PutResolved(ctx, u.Loyalty); err != nil {
			errs = append(errs, fmt.Errorf("merge %s: %w", key, err))
		} else {
			written[key] = struct{}{}
		}
	}

	for _, asset := range u.Media {
		if err := s.storeMedia(ctx, asset); err != nil {
			if errors.Is(err, models.ErrStaleWrite) {
				log.Debug().Str("media_id", asset.ID).Msg("skipping stale media update")
				continue
			}
			errs = append(errs, fmt.Errorf("merge media %s: %w", asset.ID, err))
		}
	}

	return written, errs
}

func (s *offlineSyncService) storeMedia(ctx context.Context, asset models.MediaAsset) error {
	if s.media.IsStale(asset) {
		return fmt.Errorf("%w: media %s", models.ErrStaleWrite, asset.ID)
	}

	var data []byte
	if !asset.Deleted {
		var err error
		if data, err = s.adapter.FetchMedia(ctx, asset.RemoteURL); err != nil {
			return fmt.Errorf("download: %w", err)
		}
	}
	_, err := s.media.Store(ctx, asset, data)
	return err
}

// buildConflict assembles the resolver input for a conflicted transaction:
// the cached entity on the local side and the server snapshot on the other.
func (s *offlineSyncService) buildConflict(ctx context.Context, tx *models.QueuedTransaction) (models.Conflict, error) {
	c := models.Conflict{
		EntityID: tx.UserID,
		Kind:     models.ConflictVersion,
		TxKind:   tx.Kind,
	}
	var server *models.ServerData
	if tx.Conflict != nil {
		c.Kind = tx.Conflict.Kind
		server = tx.Conflict.ServerData
	}

	var serverEntity models.Entity
	switch tx.Payload.(type) {
	case models.EarnPayload, models.RedeemPayload:
		c.EntityKind = models.KindLoyalty
		if server != nil && server.LoyaltyBalance != nil {
			serverEntity = server.LoyaltyBalance
		}
	case models.ProfileUpdatePayload:
		c.EntityKind = models.KindProfile
		if server != nil && server.Profile != nil {
			serverEntity = server.Profile
		}
	default:
		return models.Conflict{}, fmt.Errorf("%w: %s transactions", models.ErrUnsupportedConflict, tx.Kind)
	}

	entry, ok, err := s.cache.Get(ctx, c.EntityKind, c.EntityID)
	if err != nil {
		return models.Conflict{}, fmt.Errorf("read local %s: %w", c.EntityKind, err)
	}
	if ok {
		if c.Local, err = json.Marshal(entry.Entity); err != nil {
			return models.Conflict{}, fmt.Errorf("encode local %s: %w", c.EntityKind, err)
		}
	}
	if serverEntity != nil {
		if c.Server, err = json.Marshal(serverEntity); err != nil {
			return models.Conflict{}, fmt.Errorf("encode server %s: %w", c.EntityKind, err)
		}
	}
	return c, nil
}

// applyResolution writes the resolved entity and closes the transaction.
// Pending transactions are replayed over every entity it writes, as after a
// server snapshot. A profile kept client-side is queued again on top of the
// server version so the server receives it.
func (s *offlineSyncService) applyResolution(ctx context.Context, tx *models.QueuedTransaction, c models.Conflict, res models.Resolution) error {
	entity, err := models.DecodeEntity(c.EntityKind, res.Data)
	if err != nil {
		return err
	}
	if entity.Meta().ID == "" {
		entity.Meta().ID = c.EntityID
	}
	if err = s.cache.PutResolved(ctx, entity); err != nil {
		return fmt.Errorf("write resolved %s: %w", c.EntityKind, err)
	}
	written := keySet{models.CacheKey(c.EntityKind, entity.Meta().ID): {}}

	if tx.Conflict != nil && tx.Conflict.ServerData != nil && tx.Conflict.ServerData.Reward != nil {
		reward := tx.Conflict.ServerData.Reward
		if err = s.cache.PutResolved(ctx, reward); err != nil {
			return fmt.Errorf("write server reward: %w", err)
		}
		written[models.CacheKey(models.KindReward, reward.ID)] = struct{}{}
	}

	if err = s.queue.MarkResolved(ctx, tx.ID); err != nil {
		return err
	}
	if err = s.rebase(ctx, written); err != nil {
		s.logger.Warn().
			Err(err).
			Str("func", "offlineSyncService.applyResolution").
			Str("tx_id", tx.ID).
			Msg("pending transactions not replayed over resolved entity")
	}

	update, isProfile := tx.Payload.(models.ProfileUpdatePayload)
	if !isProfile || res.Strategy != models.StrategyClientWins {
		return nil
	}
	if tx.Conflict != nil && tx.Conflict.ServerData != nil && tx.Conflict.ServerData.Profile != nil {
		if v := tx.Conflict.ServerData.Profile.Version; v != nil {
			base := *v
			update.BaseVersion = &base
		}
	}
	_, evicted, err := s.queue.EnqueueTransaction(ctx, tx.UserID, update, tx.Priority)
	s.dropEvicted(ctx, evicted)
	if err != nil {
		return fmt.Errorf("requeue profile update: %w", err)
	}

	logger.FromContext(ctx).Info().
		Str("func", "offlineSyncService.applyResolution").
		Str("tx_id", tx.ID).
		Msg("client profile queued again over server version")
	return nil
}
