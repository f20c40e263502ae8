package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// SnapshotSource lists a user's rows from the remote store.
type SnapshotSource interface {
	ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error)
	ListCollections(ctx context.Context, userID string) ([]domain.Collection, error)
}

// Resyncer periodically reloads the full snapshot into the entity store.
// It re-converges the store after live updates were lost.
type Resyncer struct {
	source        SnapshotSource
	store         *entitystore.Store
	userID        string
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
	prepare       func(ctx context.Context)

	// mu orders Stop against the store write at the end of Reload.
	mu      sync.Mutex
	stopped bool
}

// NewResyncer creates a new resyncer
func NewResyncer(
	source SnapshotSource,
	store *entitystore.Store,
	userID string,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Resyncer {
	return &Resyncer{
		source:        source,
		store:         store,
		userID:        userID,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// SetPrepare registers fn to run before every reload.
func (r *Resyncer) SetPrepare(fn func(ctx context.Context)) {
	r.prepare = fn
}

// Start loads the snapshot and begins the periodic reload process
func (r *Resyncer) Start(ctx context.Context) error {
	// Load immediately on start
	if err := r.Reload(ctx); err != nil {
		return fmt.Errorf("initial snapshot load failed: %w", err)
	}

	if r.interval <= 0 {
		go r.loop(ctx, nil)
		return nil
	}

	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		r.loop(ctx, ticker.C)
	}()

	return nil
}

func (r *Resyncer) loop(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-tick:
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("failed to resync snapshot", logger.Error(err))
			}
		case <-r.manualTrigger:
			r.logger.Info("manual resync triggered")
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("failed to resync snapshot", logger.Error(err))
			}
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the resyncer. A Reload still in flight finishes its request
// but no longer writes to the store.
func (r *Resyncer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	close(r.stopCh)
}

// Reload fetches bookmarks (newest first) and collections (oldest first)
// and replaces the store contents.
func (r *Resyncer) Reload(ctx context.Context) error {
	if r.prepare != nil {
		r.prepare(ctx)
	}

	bookmarks, err := r.source.ListBookmarks(ctx, r.userID)
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}

	collections, err := r.source.ListCollections(ctx, r.userID)
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}

	sort.SliceStable(bookmarks, func(i, j int) bool {
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
	sort.SliceStable(collections, func(i, j int) bool {
		return collections[i].CreatedAt.Before(collections[j].CreatedAt)
	})

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.logger.Debug("discarding snapshot, resyncer stopped")
		return nil
	}
	r.store.Replace(bookmarks, collections)
	r.mu.Unlock()

	r.logger.Info("loaded snapshot",
		logger.Int("bookmarks", len(bookmarks)),
		logger.Int("collections", len(collections)))

	return nil
}
