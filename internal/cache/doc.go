// Package cache holds the two byte-bounded caches of the sync client: the
// entity cache ([CacheManager]) and the media blob cache
// ([MediaCacheService]). Both persist through a store.KeyValueStore and keep
// an in-memory LRU index that is rebuilt by Load on startup.
package cache
