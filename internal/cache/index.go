package cache

import (
	"sort"
	"time"

	"github.com/MKhiriev/go-offline-sync/models"
)

// indexEntry is the in-memory bookkeeping of one cached record.
type indexEntry struct {
	key          string
	kind         models.EntityKind
	size         int64
	storedAt     time.Time
	lastAccessed time.Time

	version     *int64
	lastUpdated time.Time
	deleted     bool
}

// lruIndex tracks sizes and access times of a cache. It is not safe for
// concurrent use; the owning cache guards it.
type lruIndex struct {
	entries map[string]*indexEntry
	total   int64
}

func newLRUIndex() *lruIndex {
	return &lruIndex{entries: make(map[string]*indexEntry)}
}

func (i *lruIndex) get(key string) (*indexEntry, bool) {
	e, ok := i.entries[key]
	return e, ok
}

func (i *lruIndex) put(e indexEntry) {
	if old, ok := i.entries[e.key]; ok {
		i.total -= old.size
	}
	i.entries[e.key] = &e
	i.total += e.size
}

func (i *lruIndex) touch(key string, at time.Time) {
	if e, ok := i.entries[key]; ok {
		e.lastAccessed = at
	}
}

func (i *lruIndex) remove(key string) {
	if e, ok := i.entries[key]; ok {
		i.total -= e.size
		delete(i.entries, key)
	}
}

func (i *lruIndex) reset() {
	i.entries = make(map[string]*indexEntry)
	i.total = 0
}

func (i *lruIndex) len() int {
	return len(i.entries)
}

// lru returns all entries, least recently used first. Ties are broken by key
// so the order is deterministic.
func (i *lruIndex) lru() []*indexEntry {
	list := make([]*indexEntry, 0, len(i.entries))
	for _, e := range i.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(a, b int) bool {
		if !list[a].lastAccessed.Equal(list[b].lastAccessed) {
			return list[a].lastAccessed.Before(list[b].lastAccessed)
		}
		return list[a].key < list[b].key
	})
	return list
}

// victims picks entries in LRU order until at least need bytes are covered.
// Entries for which skip returns true are never picked. The returned freed
// count is below need when the budget cannot be met.
func (i *lruIndex) victims(need int64, skip func(key string) bool) (keys []string, freed int64) {
	if need <= 0 {
		return nil, 0
	}
	for _, e := range i.lru() {
		if skip != nil && skip(e.key) {
			continue
		}
		keys = append(keys, e.key)
		freed += e.size
		if freed >= need {
			break
		}
	}
	return keys, freed
}

// expired returns the keys whose age since storedAt exceeds ttl(kind).
func (i *lruIndex) expired(now time.Time, ttl func(models.EntityKind) time.Duration) []string {
	var keys []string
	for _, e := range i.entries {
		if isExpired(e, now, ttl(e.kind)) {
			keys = append(keys, e.key)
		}
	}
	sort.Strings(keys)
	return keys
}

func isExpired(e *indexEntry, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.storedAt) > ttl
}

// checkStale rejects a write that would move an entity backwards.
//
// Versions are compared when both sides carry one, otherwise LastUpdated.
// A tombstone is only replaced by a strictly newer live entity.
func checkStale(existing *indexEntry, incoming *models.SyncableEntity) error {
	if existing.version != nil && incoming.Version != nil {
		switch {
		case *incoming.Version < *existing.version:
			return models.ErrStaleWrite
		case *incoming.Version > *existing.version:
			return nil
		}
	}

	if incoming.LastUpdated.Before(existing.lastUpdated) {
		return models.ErrStaleWrite
	}
	if existing.deleted && !incoming.Deleted && !incoming.LastUpdated.After(existing.lastUpdated) {
		return models.ErrStaleWrite
	}
	return nil
}
