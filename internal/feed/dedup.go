// =============================
// File: internal/feed/dedup.go
// =============================
package feed

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenCache suppresses replayed messages by transaction signature. It is a
// bounded LRU owned by the feed, not process-wide state, so independent
// feeds (and tests) never share dedup history.
type SeenCache struct {
	cache *lru.Cache[string, struct{}]
}

// NewSeenCache builds a cache bounded to size entries. Size must be positive.
func NewSeenCache(size int) (*SeenCache, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &SeenCache{cache: cache}, nil
}

// Seen records the signature and reports whether it was already present.
// Empty signatures are never deduplicated.
func (s *SeenCache) Seen(signature string) bool {
	if signature == "" {
		return false
	}
	seen, _ := s.cache.ContainsOrAdd(signature, struct{}{})
	return seen
}

// Len returns the number of tracked signatures.
func (s *SeenCache) Len() int { return s.cache.Len() }
