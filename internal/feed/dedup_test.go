package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenCacheDeduplicates(t *testing.T) {
	cache, err := NewSeenCache(8)
	require.NoError(t, err)

	assert.False(t, cache.Seen("sig-1"))
	assert.True(t, cache.Seen("sig-1"))
	assert.False(t, cache.Seen("sig-2"))
}

func TestSeenCacheIgnoresEmptySignature(t *testing.T) {
	cache, err := NewSeenCache(8)
	require.NoError(t, err)

	assert.False(t, cache.Seen(""))
	assert.False(t, cache.Seen(""))
	assert.Zero(t, cache.Len())
}

func TestSeenCacheBounded(t *testing.T) {
	cache, err := NewSeenCache(4)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		cache.Seen(fmt.Sprintf("sig-%d", i))
	}
	assert.Equal(t, 4, cache.Len())

	// the oldest entries have been evicted and read as fresh again
	assert.False(t, cache.Seen("sig-0"))
}

func TestSeenCacheRejectsNonPositiveSize(t *testing.T) {
	_, err := NewSeenCache(0)
	assert.Error(t, err)
}
