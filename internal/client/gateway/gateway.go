// Package gateway issues user mutations against the remote store and
// mirrors their effect in the entity store, optimistically where it is
// safe to roll back.
package gateway

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// Remote is the owner-scoped mutation surface of the remote store.
type Remote interface {
	CreateBookmark(ctx context.Context, userID string, in domain.BookmarkInput) (domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, userID, id string, in domain.BookmarkInput) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, id string) error
	SetFavorite(ctx context.Context, userID, id string, favorite bool) (domain.Bookmark, error)

	CreateCollection(ctx context.Context, userID string, in domain.CollectionInput) (domain.Collection, error)
	UpdateCollection(ctx context.Context, userID, id string, in domain.CollectionInput) (domain.Collection, error)
	DeleteCollection(ctx context.Context, userID, id string) error
}

// RemoteRequestError wraps a failed remote call.
type RemoteRequestError struct {
	Op  string
	Err error
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *RemoteRequestError) Unwrap() error { return e.Err }

// Level classifies a Notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a non-blocking message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Gateway performs mutations for one user.
type Gateway struct {
	remote   Remote
	store    *entitystore.Store
	userID   string
	active   func() bool
	notifier Notifier
	log      logger.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithActive sets the check consulted before any store mutation that
// follows a remote call. Once it reports false the results are discarded.
func WithActive(fn func() bool) Option {
	return func(g *Gateway) { g.active = fn }
}

// WithNotifier sets where notices go.
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) { g.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// New creates a Gateway.
func New(remote Remote, store *entitystore.Store, userID string, opts ...Option) *Gateway {
	g := &Gateway{
		remote: remote,
		store:  store,
		userID: userID,
		active: func() bool { return true },
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) notify(level Level, msg string) {
	if g.notifier != nil {
		g.notifier.Notify(Notice{Level: level, Message: msg})
	}
}

func (g *Gateway) remoteFailed(op, msg string, err error) error {
	g.log.Warn("remote request failed", logger.String("op", op), logger.Error(err))
	g.notify(LevelError, msg)
	return &RemoteRequestError{Op: op, Err: err}
}

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

// CreateBookmark validates form, creates the row remotely and merges the
// server's row into the store. A change event for the same row may
// arrive before or after; the store keeps exactly one copy.
func (g *Gateway) CreateBookmark(ctx context.Context, form domain.BookmarkForm) (domain.Bookmark, error) {
	if err := form.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	in := form.Input()
	if in.FaviconURL == nil {
		in.FaviconURL = domain.FaviconURL(in.URL)
	}

	row, err := g.remote.CreateBookmark(ctx, g.userID, in)
	if err != nil {
		return domain.Bookmark{}, g.remoteFailed("create bookmark", "Failed to save bookmark.", err)
	}

	if !g.active() {
		return row, nil
	}
	g.store.InsertBookmark(row)
	g.notify(LevelInfo, "Bookmark added.")
	return row, nil
}

// UpdateBookmark validates form and replaces the bookmark with the server's row.
func (g *Gateway) UpdateBookmark(ctx context.Context, id string, form domain.BookmarkForm) (domain.Bookmark, error) {
	if err := form.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	in := form.Input()
	if in.FaviconURL == nil {
		in.FaviconURL = domain.FaviconURL(in.URL)
	}

	row, err := g.remote.UpdateBookmark(ctx, g.userID, id, in)
	if err != nil {
		return domain.Bookmark{}, g.remoteFailed("update bookmark", "Failed to save bookmark.", err)
	}

	if !g.active() {
		return row, nil
	}
	g.store.UpdateBookmark(row)
	g.notify(LevelInfo, "Bookmark updated.")
	return row, nil
}

// DeleteBookmark removes the bookmark locally first and restores it at its
// former position if the remote call fails.
func (g *Gateway) DeleteBookmark(ctx context.Context, id string) error {
	removed, pos, had := g.store.RemoveBookmark(id)

	if err := g.remote.DeleteBookmark(ctx, g.userID, id); err != nil {
		if had && g.active() {
			g.store.RestoreBookmark(removed, pos)
		}
		return g.remoteFailed("delete bookmark", "Failed to delete bookmark.", err)
	}

	if g.active() {
		g.notify(LevelInfo, "Bookmark deleted.")
	}
	return nil
}

// ToggleFavorite flips the favorite flag locally, then remotely. On failure
// the previous value is restored; on success the server's row is applied.
func (g *Gateway) ToggleFavorite(ctx context.Context, id string) (domain.Bookmark, error) {
	current, ok := g.store.GetBookmark(id)
	if !ok {
		return domain.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
	}

	next := !current.IsFavorite
	prev, _ := g.store.SetFavorite(id, next)

	row, err := g.remote.SetFavorite(ctx, g.userID, id, next)
	if err != nil {
		if g.active() {
			g.store.SetFavorite(id, prev)
		}
		return domain.Bookmark{}, g.remoteFailed("update favorite", "Failed to update favorite.", err)
	}

	if g.active() {
		g.store.UpdateBookmark(row)
	}
	return row, nil
}

// ─────────────────────────────────────────────────────────────────
// Collections
// ─────────────────────────────────────────────────────────────────

// CreateCollection validates form and appends the server's row.
func (g *Gateway) CreateCollection(ctx context.Context, form domain.CollectionForm) (domain.Collection, error) {
	if err := form.Validate(); err != nil {
		return domain.Collection{}, err
	}

	row, err := g.remote.CreateCollection(ctx, g.userID, form.Input())
	if err != nil {
		return domain.Collection{}, g.remoteFailed("create collection", "Failed to create collection.", err)
	}

	if !g.active() {
		return row, nil
	}
	g.store.InsertCollection(row)
	g.notify(LevelInfo, "Collection created.")
	return row, nil
}

// UpdateCollection validates form and replaces the collection in place.
func (g *Gateway) UpdateCollection(ctx context.Context, id string, form domain.CollectionForm) (domain.Collection, error) {
	if err := form.Validate(); err != nil {
		return domain.Collection{}, err
	}

	row, err := g.remote.UpdateCollection(ctx, g.userID, id, form.Input())
	if err != nil {
		return domain.Collection{}, g.remoteFailed("update collection", "Failed to update collection.", err)
	}

	if !g.active() {
		return row, nil
	}
	g.store.UpdateCollection(row)
	g.notify(LevelInfo, "Collection updated.")
	return row, nil
}

// DeleteCollection is not optimistic: the local cascade runs only after
// the remote delete succeeds.
func (g *Gateway) DeleteCollection(ctx context.Context, id string) error {
	if err := g.remote.DeleteCollection(ctx, g.userID, id); err != nil {
		return g.remoteFailed("delete collection", "Failed to delete collection.", err)
	}

	if !g.active() {
		return nil
	}
	g.store.RemoveCollection(id)
	g.notify(LevelInfo, "Collection deleted.")
	return nil
}
