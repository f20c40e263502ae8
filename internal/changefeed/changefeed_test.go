package changefeed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func TestDecodeInsertBookmark(t *testing.T) {
	env, err := NewInsert(Bookmarks, domain.Bookmark{ID: "b1", Title: "Go", Tags: []string{"x"}}, time.Now())
	require.NoError(t, err)

	ev, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, Bookmarks, ev.Table)

	ins, ok := ev.Change.(Insert)
	require.True(t, ok)
	b, err := ins.Row.Bookmark()
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, []string{"x"}, b.Tags)
}

func TestDecodeUpdateCollection(t *testing.T) {
	env, err := NewUpdate(Collections, domain.Collection{ID: "c1", Name: "Reading"}, time.Now())
	require.NoError(t, err)

	ev, err := Decode(env)
	require.NoError(t, err)
	up, ok := ev.Change.(Update)
	require.True(t, ok)
	assert.Equal(t, KindUpdate, up.Kind())

	c, err := up.Row.Collection()
	require.NoError(t, err)
	assert.Equal(t, "Reading", c.Name)
}

func TestDecodeDelete(t *testing.T) {
	ev, err := Decode(NewDelete(Bookmarks, "b9", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, Delete{ID: "b9"}, ev.Change)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want error
	}{
		{name: "unknown table", env: Envelope{Table: "tags", EventType: KindInsert, New: json.RawMessage(`{}`)}, want: ErrUnknownTable},
		{name: "unknown kind", env: Envelope{Table: Bookmarks, EventType: "TRUNCATE"}, want: ErrUnknownKind},
		{name: "insert without row", env: Envelope{Table: Bookmarks, EventType: KindInsert}, want: ErrMissingRow},
		{name: "update with null row", env: Envelope{Table: Bookmarks, EventType: KindUpdate, New: json.RawMessage(`null`)}, want: ErrMissingRow},
		{name: "delete without id", env: Envelope{Table: Collections, EventType: KindDelete, Old: json.RawMessage(`{}`)}, want: ErrMissingID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.env)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRowWithoutID(t *testing.T) {
	_, err := Row(`{"title":"x"}`).Bookmark()
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = Row(`{not json`).Collection()
	assert.Error(t, err)
}

func TestEnvelopeWireShape(t *testing.T) {
	raw, err := json.Marshal(NewDelete(Collections, "c1", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"table":"collections","eventType":"DELETE","old":{"id":"c1"},"commit_timestamp":"2024-01-02T03:04:05Z"}`, string(raw))
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "shelf:changes:bookmarks:u1", Channel(Bookmarks, "u1"))
}
