package importer

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/cmsjade5000/WardrobeManager/internal/catalog"
)

// TagStore is the slice of the catalog the tag cache needs
type TagStore interface {
	GetTag(ctx context.Context, id string) (*catalog.Tag, error)
	FindTagByName(ctx context.Context, name string) (*catalog.Tag, error)
	CreateTag(ctx context.Context, name string) (*catalog.Tag, error)
}

// tagCache memoizes tag token resolution for one job's processing run.
// Tokens that parse as UUIDs are looked up by id; everything else is matched
// by name (case-insensitive) and created on first use, so two entries
// introducing the same new tag name share a single creation call.
type tagCache struct {
	store  TagStore
	byID   map[string]string // tag id token -> tag id
	byName map[string]string // lowercased name -> tag id
}

func newTagCache(store TagStore) *tagCache {
	return &tagCache{
		store:  store,
		byID:   make(map[string]string),
		byName: make(map[string]string),
	}
}

// Resolve maps tag tokens to persisted tag ids, deduplicated, preserving
// first-seen order. Unknown id-shaped tokens are skipped (a stale id in a
// manifest should not fail the entry); store errors propagate.
func (c *tagCache) Resolve(ctx context.Context, tokens []string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if _, err := uuid.Parse(token); err == nil {
			id, err := c.resolveID(ctx, token)
			if err != nil {
				return nil, err
			}
			add(id)
			continue
		}

		id, err := c.resolveName(ctx, token)
		if err != nil {
			return nil, err
		}
		add(id)
	}

	return ids, nil
}

func (c *tagCache) resolveID(ctx context.Context, token string) (string, error) {
	if id, ok := c.byID[token]; ok {
		return id, nil
	}

	tag, err := c.store.GetTag(ctx, token)
	if err != nil {
		return "", err
	}
	if tag == nil {
		log.Printf("Ignoring unknown tag id %s", token)
		c.byID[token] = ""
		return "", nil
	}

	c.byID[token] = tag.ID
	return tag.ID, nil
}

func (c *tagCache) resolveName(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)
	if id, ok := c.byName[key]; ok {
		return id, nil
	}

	tag, err := c.store.FindTagByName(ctx, name)
	if err != nil {
		return "", err
	}
	if tag == nil {
		tag, err = c.store.CreateTag(ctx, name)
		if err != nil {
			return "", err
		}
	}

	c.byName[key] = tag.ID
	return tag.ID, nil
}
