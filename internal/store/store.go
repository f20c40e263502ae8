// Package store defines the owner-scoped persistence contract of the
// remote store. Every operation filters on the owner; a row owned by
// someone else is reported as domain.ErrNotFound.
package store

import (
	"context"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Repository persists bookmarks and collections.
type Repository interface {
	// ListBookmarks returns the owner's bookmarks, newest first.
	ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error)
	GetBookmark(ctx context.Context, userID, id string) (domain.Bookmark, error)
	CreateBookmark(ctx context.Context, userID string, in domain.BookmarkInput) (domain.Bookmark, error)
	// UpdateBookmark replaces the editable fields and bumps updated_at.
	UpdateBookmark(ctx context.Context, userID, id string, in domain.BookmarkInput) (domain.Bookmark, error)
	SetFavorite(ctx context.Context, userID, id string, favorite bool) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, id string) error

	// ListCollections returns the owner's collections, oldest first.
	ListCollections(ctx context.Context, userID string) ([]domain.Collection, error)
	CreateCollection(ctx context.Context, userID string, in domain.CollectionInput) (domain.Collection, error)
	UpdateCollection(ctx context.Context, userID, id string, in domain.CollectionInput) (domain.Collection, error)
	// DeleteCollection removes the collection and returns the bookmarks
	// whose reference was cleared, as they are after the change.
	DeleteCollection(ctx context.Context, userID, id string) ([]domain.Bookmark, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrInvalidCollection is returned when a bookmark references a collection
// the owner does not have.
var ErrInvalidCollection = domain.ValidationError{Field: "collection_id", Message: "Collection does not exist."}
