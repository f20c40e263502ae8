package domain

import "time"

// Bookmark represents a saved URL owned by a single user.
// Field names follow the remote row schema of the bookmarks table.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the opaque unique identifier assigned by the remote store.
	ID string `json:"id"`

	// UserID is the owner. It MUST equal the session user.
	UserID string `json:"user_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// CollectionID optionally references a Collection (nil = none).
	CollectionID *string `json:"collection_id"`

	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description *string `json:"description"`

	// FaviconURL is derived from the URL origin at creation time.
	FaviconURL *string `json:"favicon_url"`

	// OGImageURL is a best-effort preview image reference.
	OGImageURL *string `json:"og_image_url"`

	// Tags is an ordered set of free-form labels.
	Tags []string `json:"tags"`

	IsFavorite bool `json:"is_favorite"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InCollection reports whether the bookmark references the given collection.
func (b *Bookmark) InCollection(id string) bool {
	return b.CollectionID != nil && *b.CollectionID == id
}

// Clone returns a deep copy so callers can't alias store-owned slices or pointers.
func (b Bookmark) Clone() Bookmark {
	out := b
	out.CollectionID = cloneString(b.CollectionID)
	out.Description = cloneString(b.Description)
	out.FaviconURL = cloneString(b.FaviconURL)
	out.OGImageURL = cloneString(b.OGImageURL)
	if b.Tags != nil {
		out.Tags = append([]string(nil), b.Tags...)
	}
	return out
}

// BookmarkInput is the normalized field set sent to the remote store
// on create and update.
type BookmarkInput struct {
	URL          string   `json:"url" validate:"required,http_url"`
	Title        string   `json:"title" validate:"notblank,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=500"`
	CollectionID *string  `json:"collection_id"`
	FaviconURL   *string  `json:"favicon_url"`
	OGImageURL   *string  `json:"og_image_url"`
	Tags         []string `json:"tags" validate:"max=20,dive,notblank,max=30"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns nil for an empty string, a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
