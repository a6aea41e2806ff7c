// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Default time-to-live of cached entries, counted from the moment they were
// stored.
const (
	DefaultEntityTTL = 6 * time.Hour
	DefaultMediaTTL  = 24 * time.Hour
)

// cacheRecord is the persisted form of a cached entity. Checksum is the
// BLAKE2b digest of Entity.
type cacheRecord struct {
	Kind         models.EntityKind `json:"kind"`
	Entity       json.RawMessage   `json:"entity"`
	Checksum     string            `json:"checksum"`
	StoredAt     time.Time         `json:"stored_at"`
	LastAccessed time.Time         `json:"last_accessed"`
}

// decode validates the record and returns the entity it holds.
func (r cacheRecord) decode() (models.Entity, error) {
	if utils.Checksum(r.Entity) != r.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptedEntry)
	}
	entity, err := models.DecodeEntity(r.Kind, r.Entity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedEntry, err)
	}
	return entity, nil
}

// CacheOptions configures a [CacheManager].
type CacheOptions struct {
	MaxBytes  int64
	EntityTTL time.Duration
	MediaTTL  time.Duration
}

// CacheManager is the typed entity cache.
//
// The total size of stored entities never exceeds MaxBytes: writes evict
// least recently used entries first and fail with
// models.ErrStorageQuotaExceeded when eviction cannot make room. Entries
// referenced by pending transactions are pinned and never evicted.
type CacheManager struct {
	mu    sync.Mutex
	kv    store.KeyValueStore
	index *lruIndex

	maxBytes  int64
	entityTTL time.Duration
	mediaTTL  time.Duration

	pinned func() map[string]struct{}
	now    func() time.Time
	logger *logger.Logger
}

// NewCacheManager returns an empty cache persisting to kv. Call Load to
// pick up entries stored by a previous run.
func NewCacheManager(kv store.KeyValueStore, opts CacheOptions, log *logger.Logger) *CacheManager {
	if opts.EntityTTL <= 0 {
		opts.EntityTTL = DefaultEntityTTL
	}
	if opts.MediaTTL <= 0 {
		opts.MediaTTL = DefaultMediaTTL
	}
	return &CacheManager{
		kv:        kv,
		index:     newLRUIndex(),
		maxBytes:  opts.MaxBytes,
		entityTTL: opts.EntityTTL,
		mediaTTL:  opts.MediaTTL,
		now:       time.Now,
		logger:    log.WithComponent("cache"),
	}
}

// SetPinned installs the function reporting which cache keys are referenced
// by pending transactions.
func (c *CacheManager) SetPinned(fn func() map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = fn
}

func (c *CacheManager) ttl(kind models.EntityKind) time.Duration {
	if kind == models.KindMedia {
		return c.mediaTTL
	}
	return c.entityTTL
}

func (c *CacheManager) pinnedKeys() map[string]struct{} {
	if c.pinned == nil {
		return nil
	}
	return c.pinned()
}

// Get returns the entry of kind/id and marks it as recently used. Expired
// and corrupted entries are removed and reported as misses. Tombstones are
// returned; callers decide how to present them.
func (c *CacheManager) Get(ctx context.Context, kind models.EntityKind, id string) (models.CacheEntry, bool, error) {
	key := models.CacheKey(kind, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index.get(key)
	if !ok {
		return models.CacheEntry{}, false, nil
	}

	now := c.now()
	if isExpired(e, now, c.ttl(kind)) {
		if err := c.removeLocked(ctx, key); err != nil {
			return models.CacheEntry{}, false, err
		}
		return models.CacheEntry{}, false, nil
	}

	raw, err := c.kv.Get(ctx, store.BucketCache, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		c.index.remove(key)
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	var rec cacheRecord
	entity, err := decodeRecord(raw, &rec)
	if err != nil {
		c.logger.Err(err).Str("func", "CacheManager.Get").Str("key", key).Msg("dropping corrupted entry")
		if err = c.removeLocked(ctx, key); err != nil {
			return models.CacheEntry{}, false, err
		}
		return models.CacheEntry{}, false, nil
	}

	rec.LastAccessed = now
	if err = c.writeRecord(ctx, key, rec); err != nil {
		return models.CacheEntry{}, false, err
	}
	c.index.touch(key, now)

	return models.CacheEntry{
		Key:          key,
		Entity:       entity,
		Size:         e.size,
		StoredAt:     rec.StoredAt,
		LastAccessed: now,
	}, true, nil
}

func decodeRecord(raw []byte, rec *cacheRecord) (models.Entity, error) {
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedEntry, err)
	}
	return rec.decode()
}

// Put stores entity. A write older than the cached copy is rejected with
// models.ErrStaleWrite.
func (c *CacheManager) Put(ctx context.Context, entity models.Entity) error {
	return c.put(ctx, entity, true)
}

// PutResolved stores entity without the staleness check. It is the write
// path of conflict resolution and server-authoritative results.
func (c *CacheManager) PutResolved(ctx context.Context, entity models.Entity) error {
	return c.put(ctx, entity, false)
}

func (c *CacheManager) put(ctx context.Context, entity models.Entity, checkVersion bool) error {
	meta := entity.Meta()
	if meta.ID == "" {
		return ErrEmptyID
	}
	if !entity.Kind().Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownEntityKind, entity.Kind())
	}

	raw, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode %s entity: %w", entity.Kind(), err)
	}
	key := models.CacheKey(entity.Kind(), meta.ID)
	size := int64(len(raw))

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, exists := c.index.get(key)
	if checkVersion && exists {
		if err = checkStale(existing, meta); err != nil {
			return fmt.Errorf("%w: %s", err, key)
		}
	}

	if size > c.maxBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrEntryTooLarge, key, size)
	}

	need := c.index.total + size - c.maxBytes
	if exists {
		need -= existing.size
	}
	if err = c.makeRoom(ctx, need, key); err != nil {
		return err
	}

	now := c.now()
	rec := cacheRecord{
		Kind:         entity.Kind(),
		Entity:       raw,
		Checksum:     utils.Checksum(raw),
		StoredAt:     now,
		LastAccessed: now,
	}
	if err = c.writeRecord(ctx, key, rec); err != nil {
		return err
	}

	c.index.put(indexEntry{
		key:          key,
		kind:         entity.Kind(),
		size:         size,
		storedAt:     now,
		lastAccessed: now,
		version:      meta.Version,
		lastUpdated:  meta.LastUpdated,
		deleted:      meta.Deleted,
	})
	return nil
}

// makeRoom evicts entries until need bytes are free. Nothing is evicted when
// the target cannot be reached.
func (c *CacheManager) makeRoom(ctx context.Context, need int64, writing string) error {
	if need <= 0 {
		return nil
	}

	pinned := c.pinnedKeys()
	victims, freed := c.index.victims(need, func(key string) bool {
		if key == writing {
			return true
		}
		_, ok := pinned[key]
		return ok
	})
	if freed < need {
		c.logger.Warn().
			Str("func", "CacheManager.makeRoom").
			Str("key", writing).
			Int64("need", need).
			Int64("evictable", freed).
			Msg("cache budget cannot be met")
		return fmt.Errorf("%w: %d bytes short for %s", models.ErrStorageQuotaExceeded, need-freed, writing)
	}

	for _, key := range victims {
		if err := c.removeLocked(ctx, key); err != nil {
			return err
		}
	}
	c.logger.Debug().Str("func", "CacheManager.makeRoom").Int("evicted", len(victims)).Msg("evicted entries")
	return nil
}

func (c *CacheManager) writeRecord(ctx context.Context, key string, rec cacheRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cache record %s: %w", key, err)
	}
	if err = c.kv.Set(ctx, store.BucketCache, key, value); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

func (c *CacheManager) removeLocked(ctx context.Context, key string) error {
	if err := c.kv.Delete(ctx, store.BucketCache, key); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	c.index.remove(key)
	return nil
}

// Remove deletes the entry of kind/id. Removing a missing entry is not an
// error.
func (c *CacheManager) Remove(ctx context.Context, kind models.EntityKind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(ctx, models.CacheKey(kind, id))
}

// TotalSize returns the number of bytes currently stored.
func (c *CacheManager) TotalSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.total
}

// EvictToFit evicts least recently used, unpinned entries until the cache
// holds at most maxBytes. It returns how many entries were evicted.
func (c *CacheManager) EvictToFit(ctx context.Context, maxBytes int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	need := c.index.total - maxBytes
	if need <= 0 {
		return 0, nil
	}

	pinned := c.pinnedKeys()
	victims, freed := c.index.victims(need, func(key string) bool {
		_, ok := pinned[key]
		return ok
	})
	for _, key := range victims {
		if err := c.removeLocked(ctx, key); err != nil {
			return 0, err
		}
	}
	if freed < need {
		return len(victims), fmt.Errorf("%w: pinned entries exceed %d bytes", models.ErrStorageQuotaExceeded, maxBytes)
	}
	return len(victims), nil
}

// CleanupExpired removes entries older than their kind's TTL, tombstones
// included. Pinned entries are kept. It returns how many entries were
// removed.
func (c *CacheManager) CleanupExpired(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pinned := c.pinnedKeys()
	removed := 0
	for _, key := range c.index.expired(c.now(), c.ttl) {
		if _, ok := pinned[key]; ok {
			continue
		}
		if err := c.removeLocked(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Clear removes every entry of the given kinds, or everything when no kind
// is given.
func (c *CacheManager) Clear(ctx context.Context, kinds ...models.EntityKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(kinds) == 0 {
		if err := c.kv.Clear(ctx, store.BucketCache); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		c.index.reset()
		return nil
	}

	wanted := make(map[models.EntityKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}
	for _, e := range c.index.lru() {
		if !wanted[e.kind] {
			continue
		}
		if err := c.removeLocked(ctx, e.key); err != nil {
			return err
		}
	}
	return nil
}

// Load rebuilds the index from durable storage, dropping corrupted records.
// If the stored entries exceed the budget, the least recently used are
// evicted.
func (c *CacheManager) Load(ctx context.Context) error {
	c.mu.Lock()
	dropped, err := c.rebuildLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("func", "CacheManager.Load").
		Int("entries", c.Stats().Entries).
		Int("dropped", dropped).
		Msg("cache loaded")

	if _, err = c.EvictToFit(ctx, c.maxBytes); err != nil && !errors.Is(err, models.ErrStorageQuotaExceeded) {
		return err
	}
	return nil
}

// ValidateIntegrity re-reads every stored record and drops the ones that
// fail their checksum or no longer decode. It returns how many were dropped.
func (c *CacheManager) ValidateIntegrity(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx)
}

func (c *CacheManager) rebuildLocked(ctx context.Context) (int, error) {
	records, err := c.kv.Scan(ctx, store.BucketCache)
	if err != nil {
		return 0, fmt.Errorf("scan cache: %w", err)
	}

	c.index.reset()
	dropped := 0
	for _, kv := range records {
		var rec cacheRecord
		entity, err := decodeRecord(kv.Value, &rec)
		if err == nil && models.CacheKey(rec.Kind, entity.Meta().ID) != kv.Key {
			err = fmt.Errorf("%w: key does not match entity", ErrCorruptedEntry)
		}
		if err != nil {
			c.logger.Err(err).Str("func", "CacheManager.rebuild").Str("key", kv.Key).Msg("dropping corrupted entry")
			if err = c.kv.Delete(ctx, store.BucketCache, kv.Key); err != nil {
				return dropped, fmt.Errorf("delete cache entry %s: %w", kv.Key, err)
			}
			dropped++
			continue
		}

		meta := entity.Meta()
		c.index.put(indexEntry{
			key:          kv.Key,
			kind:         rec.Kind,
			size:         int64(len(rec.Entity)),
			storedAt:     rec.StoredAt,
			lastAccessed: rec.LastAccessed,
			version:      meta.Version,
			lastUpdated:  meta.LastUpdated,
			deleted:      meta.Deleted,
		})
	}
	return dropped, nil
}

// Stats summarizes the cache.
func (c *CacheManager) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := models.CacheStats{
		Entries:  c.index.len(),
		Bytes:    c.index.total,
		MaxBytes: c.maxBytes,
		ByKind:   make(map[string]int),
	}
	for _, e := range c.index.entries {
		stats.ByKind[string(e.kind)]++
		if e.deleted {
			stats.Tombstones++
		}
	}
	return stats
}
