// Package memory is an in-process Repository for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/store"
)

type bookmarkRow struct {
	domain.Bookmark
	seq uint64
}

type collectionRow struct {
	domain.Collection
	seq uint64
}

// Repository keeps every row in memory
type Repository struct {
	mu          sync.RWMutex
	bookmarks   map[string]*bookmarkRow
	collections map[string]*collectionRow
	seq         uint64
	now         func() time.Time
}

var _ store.Repository = (*Repository)(nil)

// New creates an empty repository
func New() *Repository {
	return &Repository{
		bookmarks:   make(map[string]*bookmarkRow),
		collections: make(map[string]*collectionRow),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) Ping(context.Context) error { return nil }
func (r *Repository) Close() error               { return nil }

func (r *Repository) nextSeq() uint64 {
	r.seq++
	return r.seq
}

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

func (r *Repository) ListBookmarks(_ context.Context, userID string) ([]domain.Bookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]*bookmarkRow, 0)
	for _, row := range r.bookmarks {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]domain.Bookmark, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Bookmark.Clone())
	}
	return out, nil
}

func (r *Repository) GetBookmark(_ context.Context, userID, id string) (domain.Bookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.bookmarks[id]
	if !ok || row.UserID != userID {
		return domain.Bookmark{}, domain.ErrNotFound
	}
	return row.Bookmark.Clone(), nil
}

func (r *Repository) CreateBookmark(_ context.Context, userID string, in domain.BookmarkInput) (domain.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkCollection(userID, in.CollectionID); err != nil {
		return domain.Bookmark{}, err
	}

	now := r.now()
	b := domain.Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(&b, in, true)

	r.bookmarks[b.ID] = &bookmarkRow{Bookmark: b.Clone(), seq: r.nextSeq()}
	return b, nil
}

func (r *Repository) UpdateBookmark(_ context.Context, userID, id string, in domain.BookmarkInput) (domain.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.bookmarks[id]
	if !ok || row.UserID != userID {
		return domain.Bookmark{}, domain.ErrNotFound
	}
	if err := r.checkCollection(userID, in.CollectionID); err != nil {
		return domain.Bookmark{}, err
	}

	applyInput(&row.Bookmark, in, false)
	row.UpdatedAt = r.now()
	return row.Bookmark.Clone(), nil
}

func (r *Repository) SetFavorite(_ context.Context, userID, id string, favorite bool) (domain.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.bookmarks[id]
	if !ok || row.UserID != userID {
		return domain.Bookmark{}, domain.ErrNotFound
	}
	row.IsFavorite = favorite
	row.UpdatedAt = r.now()
	return row.Bookmark.Clone(), nil
}

func (r *Repository) DeleteBookmark(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.bookmarks[id]
	if !ok || row.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.bookmarks, id)
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Collections
// ─────────────────────────────────────────────────────────────────

func (r *Repository) ListCollections(_ context.Context, userID string) ([]domain.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]*collectionRow, 0)
	for _, row := range r.collections {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]domain.Collection, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Collection)
	}
	return out, nil
}

func (r *Repository) CreateCollection(_ context.Context, userID string, in domain.CollectionInput) (domain.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	c := domain.Collection{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Color:     in.Color,
		Icon:      iconOrDefault(in.Icon),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.collections[c.ID] = &collectionRow{Collection: c, seq: r.nextSeq()}
	return c, nil
}

func (r *Repository) UpdateCollection(_ context.Context, userID, id string, in domain.CollectionInput) (domain.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.collections[id]
	if !ok || row.UserID != userID {
		return domain.Collection{}, domain.ErrNotFound
	}
	row.Name = in.Name
	row.Color = in.Color
	if in.Icon != "" {
		row.Icon = in.Icon
	}
	row.UpdatedAt = r.now()
	return row.Collection, nil
}

func (r *Repository) DeleteCollection(_ context.Context, userID, id string) ([]domain.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.collections[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrNotFound
	}
	delete(r.collections, id)

	now := r.now()
	detached := make([]domain.Bookmark, 0)
	for _, b := range r.bookmarks {
		if b.UserID == userID && b.InCollection(id) {
			b.CollectionID = nil
			b.UpdatedAt = now
			detached = append(detached, b.Bookmark.Clone())
		}
	}
	return detached, nil
}

// ─────────────────────────────────────────────────────────────────
// helpers (caller holds mu)
// ─────────────────────────────────────────────────────────────────

func (r *Repository) checkCollection(userID string, id *string) error {
	if id == nil {
		return nil
	}
	row, ok := r.collections[*id]
	if !ok || row.UserID != userID {
		return store.ErrInvalidCollection
	}
	return nil
}

func applyInput(b *domain.Bookmark, in domain.BookmarkInput, create bool) {
	next := domain.Bookmark{
		Title:        in.Title,
		URL:          in.URL,
		Description:  in.Description,
		CollectionID: in.CollectionID,
		FaviconURL:   in.FaviconURL,
		OGImageURL:   in.OGImageURL,
		Tags:         in.Tags,
	}.Clone()
	if next.Tags == nil {
		next.Tags = []string{}
	}

	b.Title = next.Title
	b.URL = next.URL
	b.Description = next.Description
	b.CollectionID = next.CollectionID
	b.Tags = next.Tags
	if create {
		b.FaviconURL = next.FaviconURL
		b.OGImageURL = next.OGImageURL
	}
}

func iconOrDefault(icon string) string {
	if icon == "" {
		return domain.DefaultCollectionIcon
	}
	return icon
}
