// Package changefeed defines row-change events for the bookmarks and
// collections tables and the envelope they travel in.
package changefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Table names a remote table with a change feed.
type Table string

const (
	Bookmarks   Table = "bookmarks"
	Collections Table = "collections"
)

// Valid reports whether t is a known table.
func (t Table) Valid() bool {
	return t == Bookmarks || t == Collections
}

// Kind is the change type carried by an envelope.
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

var (
	ErrUnknownKind  = errors.New("unknown change kind")
	ErrUnknownTable = errors.New("unknown table")
	ErrMissingRow   = errors.New("change is missing its row")
	ErrMissingID    = errors.New("delete change is missing the row id")
)

// Row is a full row image as received from the feed.
type Row json.RawMessage

// Bookmark decodes the row as a bookmark.
func (r Row) Bookmark() (domain.Bookmark, error) {
	var b domain.Bookmark
	if err := json.Unmarshal(r, &b); err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to decode bookmark row: %w", err)
	}
	if b.ID == "" {
		return domain.Bookmark{}, ErrMissingID
	}
	return b, nil
}

// Collection decodes the row as a collection.
func (r Row) Collection() (domain.Collection, error) {
	var c domain.Collection
	if err := json.Unmarshal(r, &c); err != nil {
		return domain.Collection{}, fmt.Errorf("failed to decode collection row: %w", err)
	}
	if c.ID == "" {
		return domain.Collection{}, ErrMissingID
	}
	return c, nil
}

// Change is one of Insert, Update or Delete.
type Change interface {
	Kind() Kind
	change()
}

// Insert carries the full new row.
type Insert struct{ Row Row }

// Update carries the full new row.
type Update struct{ Row Row }

// Delete carries only the id of the removed row.
type Delete struct{ ID string }

func (Insert) Kind() Kind { return KindInsert }
func (Update) Kind() Kind { return KindUpdate }
func (Delete) Kind() Kind { return KindDelete }

func (Insert) change() {}
func (Update) change() {}
func (Delete) change() {}

// Event is a decoded change for one table.
type Event struct {
	Table  Table
	Change Change
}

// Envelope is the wire shape of a change.
type Envelope struct {
	Table           Table           `json:"table"`
	EventType       Kind            `json:"eventType"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

type oldKey struct {
	ID string `json:"id"`
}

// Decode validates an envelope and turns it into an Event.
func Decode(env Envelope) (Event, error) {
	if !env.Table.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownTable, env.Table)
	}

	ev := Event{Table: env.Table}

	switch env.EventType {
	case KindInsert, KindUpdate:
		if len(env.New) == 0 || string(env.New) == "null" {
			return Event{}, fmt.Errorf("%s %s: %w", env.Table, env.EventType, ErrMissingRow)
		}
		row := Row(append([]byte(nil), env.New...))
		if env.EventType == KindInsert {
			ev.Change = Insert{Row: row}
		} else {
			ev.Change = Update{Row: row}
		}
	case KindDelete:
		var key oldKey
		if len(env.Old) > 0 {
			if err := json.Unmarshal(env.Old, &key); err != nil {
				return Event{}, fmt.Errorf("failed to decode old row: %w", err)
			}
		}
		if key.ID == "" {
			return Event{}, fmt.Errorf("%s %s: %w", env.Table, env.EventType, ErrMissingID)
		}
		ev.Change = Delete{ID: key.ID}
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, env.EventType)
	}

	return ev, nil
}

// NewInsert builds an INSERT envelope for row.
func NewInsert(table Table, row any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s row: %w", table, err)
	}
	return Envelope{Table: table, EventType: KindInsert, New: raw, CommitTimestamp: at.UTC()}, nil
}

// NewUpdate builds an UPDATE envelope for row.
func NewUpdate(table Table, row any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s row: %w", table, err)
	}
	return Envelope{Table: table, EventType: KindUpdate, New: raw, CommitTimestamp: at.UTC()}, nil
}

// NewDelete builds a DELETE envelope carrying only the id.
func NewDelete(table Table, id string, at time.Time) Envelope {
	raw, _ := json.Marshal(oldKey{ID: id})
	return Envelope{Table: table, EventType: KindDelete, Old: raw, CommitTimestamp: at.UTC()}
}

// Channel returns the broadcast channel name for an owner and table.
func Channel(table Table, userID string) string {
	return "shelf:changes:" + string(table) + ":" + userID
}
