// Package reconcile folds change events into the entity store.
package reconcile

import (
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// Reconciler applies decoded events to a Store.
// Applying the same event twice leaves the store as applying it once.
type Reconciler struct {
	store *entitystore.Store
	log   logger.Logger
}

// New creates a Reconciler for store.
func New(store *entitystore.Store, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{store: store, log: log}
}

// Apply folds ev into the store. Updates for unknown ids are dropped.
func (r *Reconciler) Apply(ev changefeed.Event) error {
	switch ev.Table {
	case changefeed.Bookmarks:
		return r.applyBookmark(ev.Change)
	case changefeed.Collections:
		return r.applyCollection(ev.Change)
	default:
		return fmt.Errorf("%w: %q", changefeed.ErrUnknownTable, ev.Table)
	}
}

// ApplyEnvelope decodes env and applies it.
func (r *Reconciler) ApplyEnvelope(env changefeed.Envelope) error {
	ev, err := changefeed.Decode(env)
	if err != nil {
		return err
	}
	return r.Apply(ev)
}

func (r *Reconciler) applyBookmark(ch changefeed.Change) error {
	switch c := ch.(type) {
	case changefeed.Insert:
		b, err := c.Row.Bookmark()
		if err != nil {
			return err
		}
		if !r.store.InsertBookmark(b) {
			r.log.Debug("bookmark insert already applied", logger.String("id", b.ID))
		}
	case changefeed.Update:
		b, err := c.Row.Bookmark()
		if err != nil {
			return err
		}
		if !r.store.UpdateBookmark(b) {
			r.log.Debug("dropped update for unknown bookmark", logger.String("id", b.ID))
		}
	case changefeed.Delete:
		r.store.RemoveBookmark(c.ID)
	default:
		return fmt.Errorf("%w: %T", changefeed.ErrUnknownKind, ch)
	}
	return nil
}

func (r *Reconciler) applyCollection(ch changefeed.Change) error {
	switch c := ch.(type) {
	case changefeed.Insert:
		col, err := c.Row.Collection()
		if err != nil {
			return err
		}
		r.store.InsertCollection(col)
	case changefeed.Update:
		col, err := c.Row.Collection()
		if err != nil {
			return err
		}
		if !r.store.UpdateCollection(col) {
			r.log.Debug("dropped update for unknown collection", logger.String("id", col.ID))
		}
	case changefeed.Delete:
		detached, _ := r.store.RemoveCollection(c.ID)
		if detached > 0 {
			r.log.Debug("detached bookmarks from deleted collection",
				logger.String("id", c.ID), logger.Int("count", detached))
		}
	default:
		return fmt.Errorf("%w: %T", changefeed.ErrUnknownKind, ch)
	}
	return nil
}
