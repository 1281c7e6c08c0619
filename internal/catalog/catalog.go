// Package catalog persists wardrobe items and tags.
package catalog

import "time"

// Item is one cataloged clothing item
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Color     string    `json:"color"`
	ImageURL  string    `json:"imageUrl"`
	Brand     string    `json:"brand,omitempty"`
	Size      string    `json:"size,omitempty"`
	Material  string    `json:"material,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tag is a label attachable to many items
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateItemParams carries the fields for a new item
type CreateItemParams struct {
	Name     string
	Type     string
	Category string
	Color    string
	ImageURL string
	Brand    string
	Size     string
	Material string
	Notes    string
	TagIDs   []string
}
