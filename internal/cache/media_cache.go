package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// mediaRecord is the persisted metadata of a cached blob. The bytes live on
// the filesystem; Checksum is their BLAKE2b digest.
type mediaRecord struct {
	Asset    models.MediaAsset `json:"asset"`
	Checksum string            `json:"checksum,omitempty"`
	StoredAt time.Time         `json:"stored_at"`
}

// MediaCacheService caches image and video bytes on a filesystem with its
// own byte budget and TTL. It shares the LRU index of [CacheManager].
type MediaCacheService struct {
	mu    sync.Mutex
	fs    afero.Fs
	dir   string
	kv    store.KeyValueStore
	index *lruIndex

	maxBytes int64
	ttl      time.Duration

	now    func() time.Time
	logger *logger.Logger
}

// NewMediaCacheService returns a media cache storing blobs under dir on fs.
func NewMediaCacheService(fs afero.Fs, dir string, kv store.KeyValueStore, maxBytes int64, ttl time.Duration, log *logger.Logger) *MediaCacheService {
	if ttl <= 0 {
		ttl = DefaultMediaTTL
	}
	return &MediaCacheService{
		fs:       fs,
		dir:      dir,
		kv:       kv,
		index:    newLRUIndex(),
		maxBytes: maxBytes,
		ttl:      ttl,
		now:      time.Now,
		logger:   log.WithComponent("media"),
	}
}

// blobPath derives the file name from the asset id so that arbitrary ids
// never escape dir.
func (m *MediaCacheService) blobPath(id string) string {
	return filepath.Join(m.dir, utils.Checksum([]byte(id)))
}

// Store writes the blob of asset and its metadata. A tombstoned asset is
// stored without bytes. Older versions are rejected with
// models.ErrStaleWrite.
func (m *MediaCacheService) Store(ctx context.Context, asset models.MediaAsset, data []byte) (models.MediaAsset, error) {
	if asset.ID == "" {
		return models.MediaAsset{}, ErrEmptyID
	}
	if asset.Deleted {
		data = nil
	}

	key := asset.ID
	size := int64(len(data))

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.index.get(key)
	if exists {
		if err := checkStale(existing, &asset.SyncableEntity); err != nil {
			return models.MediaAsset{}, fmt.Errorf("%w: media %s", err, key)
		}
	}
	if size > m.maxBytes {
		return models.MediaAsset{}, fmt.Errorf("%w: media %s is %d bytes", ErrEntryTooLarge, key, size)
	}

	need := m.index.total + size - m.maxBytes
	if exists {
		need -= existing.size
	}
	if need > 0 {
		victims, freed := m.index.victims(need, func(k string) bool { return k == key })
		if freed < need {
			return models.MediaAsset{}, fmt.Errorf("%w: %d bytes short for media %s", models.ErrStorageQuotaExceeded, need-freed, key)
		}
		for _, victim := range victims {
			if err := m.removeLocked(ctx, victim); err != nil {
				return models.MediaAsset{}, err
			}
		}
	}

	now := m.now()
	rec := mediaRecord{Asset: asset, StoredAt: now}
	rec.Asset.Size = size
	rec.Asset.LastAccessed = now
	rec.Asset.LocalPath = ""

	if !asset.Deleted {
		path := m.blobPath(key)
		if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
			return models.MediaAsset{}, fmt.Errorf("create media dir: %w", err)
		}
		if err := afero.WriteFile(m.fs, path, data, 0o644); err != nil {
			m.logger.Err(err).Str("func", "MediaCacheService.Store").Str("id", key).Msg("failed to write blob")
			return models.MediaAsset{}, fmt.Errorf("write media %s: %w", key, err)
		}
		rec.Asset.LocalPath = path
		rec.Checksum = utils.Checksum(data)
	} else if err := m.removeBlob(key); err != nil {
		return models.MediaAsset{}, err
	}

	if err := m.writeRecord(ctx, rec); err != nil {
		return models.MediaAsset{}, err
	}

	m.index.put(indexEntry{
		key:          key,
		kind:         models.KindMedia,
		size:         size,
		storedAt:     now,
		lastAccessed: now,
		version:      asset.Version,
		lastUpdated:  asset.LastUpdated,
		deleted:      asset.Deleted,
	})
	return rec.Asset, nil
}

// IsStale reports whether Store would reject asset as older than the cached
// copy.
func (m *MediaCacheService) IsStale(asset models.MediaAsset) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.index.get(asset.ID)
	return ok && checkStale(existing, &asset.SyncableEntity) != nil
}

// Open returns the metadata and bytes of the asset and marks it as recently
// used. Expired, tombstoned and missing assets are reported as misses.
func (m *MediaCacheService) Open(ctx context.Context, id string) (models.MediaAsset, []byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.index.get(id)
	if !ok || e.deleted {
		return models.MediaAsset{}, nil, false, nil
	}

	now := m.now()
	if isExpired(e, now, m.ttl) {
		return models.MediaAsset{}, nil, false, m.removeLocked(ctx, id)
	}

	rec, err := m.readRecord(ctx, id)
	if err != nil {
		return models.MediaAsset{}, nil, false, err
	}

	data, err := afero.ReadFile(m.fs, m.blobPath(id))
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Warn().Str("func", "MediaCacheService.Open").Str("id", id).Msg("blob missing, dropping entry")
		return models.MediaAsset{}, nil, false, m.removeLocked(ctx, id)
	}
	if err != nil {
		return models.MediaAsset{}, nil, false, fmt.Errorf("read media %s: %w", id, err)
	}

	rec.Asset.LastAccessed = now
	if err = m.writeRecord(ctx, rec); err != nil {
		return models.MediaAsset{}, nil, false, err
	}
	m.index.touch(id, now)

	return rec.Asset, data, true, nil
}

func (m *MediaCacheService) readRecord(ctx context.Context, id string) (mediaRecord, error) {
	var rec mediaRecord
	raw, err := m.kv.Get(ctx, store.BucketMedia, id)
	if err != nil {
		return rec, fmt.Errorf("read media record %s: %w", id, err)
	}
	if err = json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("%w: %w", ErrCorruptedEntry, err)
	}
	return rec, nil
}

func (m *MediaCacheService) writeRecord(ctx context.Context, rec mediaRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode media record %s: %w", rec.Asset.ID, err)
	}
	if err = m.kv.Set(ctx, store.BucketMedia, rec.Asset.ID, value); err != nil {
		return fmt.Errorf("write media record %s: %w", rec.Asset.ID, err)
	}
	return nil
}

func (m *MediaCacheService) removeBlob(id string) error {
	if err := m.fs.Remove(m.blobPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove media %s: %w", id, err)
	}
	return nil
}

func (m *MediaCacheService) removeLocked(ctx context.Context, id string) error {
	if err := m.removeBlob(id); err != nil {
		return err
	}
	if err := m.kv.Delete(ctx, store.BucketMedia, id); err != nil {
		return fmt.Errorf("delete media record %s: %w", id, err)
	}
	m.index.remove(id)
	return nil
}

// Remove deletes the asset and its bytes.
func (m *MediaCacheService) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(ctx, id)
}

// TotalSize returns the number of blob bytes currently stored.
func (m *MediaCacheService) TotalSize() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index.total
}

// EvictToFit evicts least recently used assets until at most maxBytes remain.
func (m *MediaCacheService) EvictToFit(ctx context.Context, maxBytes int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	victims, _ := m.index.victims(m.index.total-maxBytes, nil)
	for _, id := range victims {
		if err := m.removeLocked(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(victims), nil
}

// CleanupExpired removes assets stored longer than the TTL ago.
func (m *MediaCacheService) CleanupExpired(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := m.index.expired(m.now(), func(models.EntityKind) time.Duration { return m.ttl })
	for i, id := range expired {
		if err := m.removeLocked(ctx, id); err != nil {
			return i, err
		}
	}
	return len(expired), nil
}

// Clear removes every asset.
func (m *MediaCacheService) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fs.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("remove media dir: %w", err)
	}
	if err := m.kv.Clear(ctx, store.BucketMedia); err != nil {
		return fmt.Errorf("clear media records: %w", err)
	}
	m.index.reset()
	return nil
}

// Load rebuilds the index from the stored metadata. Records whose blob is
// missing or has the wrong size are dropped.
func (m *MediaCacheService) Load(ctx context.Context) error {
	m.mu.Lock()
	dropped, err := m.rebuildLocked(ctx, false)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.logger.Info().Str("func", "MediaCacheService.Load").Int("dropped", dropped).Msg("media cache loaded")

	_, err = m.EvictToFit(ctx, m.maxBytes)
	return err
}

// ValidateIntegrity verifies the checksum of every blob and drops the assets
// that do not match.
func (m *MediaCacheService) ValidateIntegrity(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuildLocked(ctx, true)
}

func (m *MediaCacheService) rebuildLocked(ctx context.Context, verifyChecksums bool) (int, error) {
	records, err := m.kv.Scan(ctx, store.BucketMedia)
	if err != nil {
		return 0, fmt.Errorf("scan media records: %w", err)
	}

	m.index.reset()
	dropped := 0
	for _, kv := range records {
		rec, err := m.checkRecord(kv, verifyChecksums)
		if err != nil {
			m.logger.Err(err).Str("func", "MediaCacheService.rebuild").Str("id", kv.Key).Msg("dropping media entry")
			if err = m.removeLocked(ctx, kv.Key); err != nil {
				return dropped, err
			}
			dropped++
			continue
		}

		m.index.put(indexEntry{
			key:          kv.Key,
			kind:         models.KindMedia,
			size:         rec.Asset.Size,
			storedAt:     rec.StoredAt,
			lastAccessed: rec.Asset.LastAccessed,
			version:      rec.Asset.Version,
			lastUpdated:  rec.Asset.LastUpdated,
			deleted:      rec.Asset.Deleted,
		})
	}
	return dropped, nil
}

func (m *MediaCacheService) checkRecord(kv store.KV, verifyChecksum bool) (mediaRecord, error) {
	var rec mediaRecord
	if err := json.Unmarshal(kv.Value, &rec); err != nil {
		return rec, fmt.Errorf("%w: %w", ErrCorruptedEntry, err)
	}
	if rec.Asset.ID != kv.Key {
		return rec, fmt.Errorf("%w: key does not match asset", ErrCorruptedEntry)
	}
	if rec.Asset.Deleted {
		return rec, nil
	}

	if !verifyChecksum {
		info, err := m.fs.Stat(m.blobPath(kv.Key))
		if err != nil {
			return rec, fmt.Errorf("%w: %w", ErrCorruptedEntry, err)
		}
		if info.Size() != rec.Asset.Size {
			return rec, fmt.Errorf("%w: blob is %d bytes, expected %d", ErrCorruptedEntry, info.Size(), rec.Asset.Size)
		}
		return rec, nil
	}

	data, err := afero.ReadFile(m.fs, m.blobPath(kv.Key))
	if err != nil {
		return rec, fmt.Errorf("%w: %w", ErrCorruptedEntry, err)
	}
	if utils.Checksum(data) != rec.Checksum {
		return rec, fmt.Errorf("%w: checksum mismatch", ErrCorruptedEntry)
	}
	return rec, nil
}

// Stats summarizes the media cache.
func (m *MediaCacheService) Stats() models.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.CacheStats{
		Entries:  m.index.len(),
		Bytes:    m.index.total,
		MaxBytes: m.maxBytes,
	}
	for _, e := range m.index.entries {
		if e.deleted {
			stats.Tombstones++
		}
	}
	return stats
}
