package domain

import "time"

// DefaultCollectionIcon is used when a collection is created without an icon.
const DefaultCollectionIcon = "folder"

// Collection groups bookmarks. Deleting a collection never deletes its
// bookmarks; their CollectionID is cleared instead.
type Collection struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectionInput is the normalized field set sent on create and update.
type CollectionInput struct {
	Name  string `json:"name" validate:"notblank,max=60"`
	Color string `json:"color" validate:"notblank"`
	Icon  string `json:"icon,omitempty"`
}
