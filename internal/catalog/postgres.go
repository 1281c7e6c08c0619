package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// PostgresStore stores items and tags in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store and ensures its schema exists
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db}

	if err := store.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure catalog schema: %w", err)
	}

	return store, nil
}

// ensureSchema creates the catalog tables if they don't exist
func (s *PostgresStore) ensureSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			color TEXT NOT NULL,
			image_url TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			size TEXT NOT NULL DEFAULT '',
			material TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS item_tags (
			item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (item_id, tag_id)
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Printf("✓ catalog schema ready")
	return nil
}

// CreateItem inserts an item and its tag associations in one transaction
func (s *PostgresStore) CreateItem(ctx context.Context, p CreateItemParams) (*Item, error) {
	item := &Item{
		ID:        uuid.New().String(),
		Name:      p.Name,
		Type:      p.Type,
		Category:  p.Category,
		Color:     p.Color,
		ImageURL:  p.ImageURL,
		Brand:     p.Brand,
		Size:      p.Size,
		Material:  p.Material,
		Notes:     p.Notes,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, name, type, category, color, image_url, brand, size, material, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, item.ID, item.Name, item.Type, item.Category, item.Color, item.ImageURL,
		item.Brand, item.Size, item.Material, item.Notes, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}

	for _, tagID := range p.TagIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO item_tags (item_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, item.ID, tagID)
		if err != nil {
			return nil, fmt.Errorf("failed to associate tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item: %w", err)
	}

	return item, nil
}

// GetTag fetches a tag by id. Returns (nil, nil) if no such tag exists.
func (s *PostgresStore) GetTag(ctx context.Context, id string) (*Tag, error) {
	var tag Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE id = $1`, id).Scan(&tag.ID, &tag.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return &tag, nil
}

// FindTagByName fetches a tag by name, case-insensitively. Returns (nil, nil)
// if no such tag exists.
func (s *PostgresStore) FindTagByName(ctx context.Context, name string) (*Tag, error) {
	var tag Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE LOWER(name) = LOWER($1)`, name).Scan(&tag.ID, &tag.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}

	return &tag, nil
}

// CreateTag inserts a new tag. A concurrent insert of the same name wins via
// the unique constraint; in that case the existing tag is returned.
func (s *PostgresStore) CreateTag(ctx context.Context, name string) (*Tag, error) {
	tag := &Tag{
		ID:   uuid.New().String(),
		Name: name,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`, tag.ID, tag.Name).Scan(&tag.ID, &tag.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	return tag, nil
}
