package importer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagCache_ResolvesByID(t *testing.T) {
	store := newMockCatalog()
	existing, err := store.CreateTag(context.Background(), "Formal")
	require.NoError(t, err)
	store.createTagCalls = 0

	cache := newTagCache(store)
	ids, err := cache.Resolve(context.Background(), []string{existing.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{existing.ID}, ids)
	assert.Equal(t, 0, store.createTagCalls, "id tokens never create tags")
}

func TestTagCache_SkipsUnknownID(t *testing.T) {
	store := newMockCatalog()
	cache := newTagCache(store)

	ids, err := cache.Resolve(context.Background(), []string{uuid.New().String(), "Beach"})
	require.NoError(t, err)
	require.Len(t, ids, 1, "stale tag ids are dropped, not fatal")
	assert.Equal(t, 1, store.createTagCalls)
}

func TestTagCache_ReusesExistingTagByName(t *testing.T) {
	store := newMockCatalog()
	existing, err := store.CreateTag(context.Background(), "Beach")
	require.NoError(t, err)
	store.createTagCalls = 0

	cache := newTagCache(store)
	ids, err := cache.Resolve(context.Background(), []string{"beach"})
	require.NoError(t, err)
	assert.Equal(t, []string{existing.ID}, ids, "name match is case-insensitive")
	assert.Equal(t, 0, store.createTagCalls)
}

func TestTagCache_CreatesOncePerName(t *testing.T) {
	store := newMockCatalog()
	cache := newTagCache(store)

	first, err := cache.Resolve(context.Background(), []string{"Beach"})
	require.NoError(t, err)
	second, err := cache.Resolve(context.Background(), []string{" beach "})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.createTagCalls)
}

func TestTagCache_DeduplicatesWithinOneList(t *testing.T) {
	store := newMockCatalog()
	cache := newTagCache(store)

	ids, err := cache.Resolve(context.Background(), []string{"Beach", "Summer", "beach", "", "  "})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, 2, store.createTagCalls)
}

func TestTagCache_MixedTokens(t *testing.T) {
	store := newMockCatalog()
	existing, err := store.CreateTag(context.Background(), "Formal")
	require.NoError(t, err)
	store.createTagCalls = 0

	cache := newTagCache(store)
	ids, err := cache.Resolve(context.Background(), []string{existing.ID, "Beach", "Formal"})
	require.NoError(t, err)

	// The id token and the name token for the same tag collapse to one id
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, existing.ID)
	assert.Equal(t, 1, store.createTagCalls)
}
