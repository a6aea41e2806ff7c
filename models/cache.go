package models

import (
	"strings"
	"time"
)

// CacheKey builds the storage key of an entity: "<kind>:<id>".
func CacheKey(kind EntityKind, id string) string {
	return string(kind) + ":" + id
}

// SplitCacheKey is the inverse of [CacheKey].
func SplitCacheKey(key string) (EntityKind, string, bool) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || !EntityKind(kind).Valid() {
		return "", "", false
	}
	return EntityKind(kind), id, true
}

// CacheEntry is a cached entity together with its LRU bookkeeping.
type CacheEntry struct {
	Key          string
	Entity       Entity
	Size         int64
	StoredAt     time.Time
	LastAccessed time.Time
}

// CacheStats summarizes one cache.
type CacheStats struct {
	Entries    int            `json:"entries"`
	Bytes      int64          `json:"bytes"`
	MaxBytes   int64          `json:"max_bytes"`
	Tombstones int            `json:"tombstones"`
	ByKind     map[string]int `json:"by_kind,omitempty"`
}
