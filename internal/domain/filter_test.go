package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(bs []Bookmark) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}

func sampleBookmarks() []Bookmark {
	c1 := "c1"
	desc := "A Tour of concurrency"
	return []Bookmark{
		{ID: "b1", Title: "Go", URL: "https://go.dev", IsFavorite: true, CollectionID: &c1},
		{ID: "b2", Title: "Rust", URL: "https://rust-lang.org", Tags: []string{"Systems"}},
		{ID: "b3", Title: "Docs", URL: "https://example.com", Description: &desc, CollectionID: &c1},
		{ID: "b4", Title: "News", URL: "https://news.example", IsFavorite: true},
	}
}

func TestFilterBookmarks(t *testing.T) {
	tests := []struct {
		name   string
		filter FilterState
		want   []string
	}{
		{name: "all", filter: FilterState{}, want: []string{"b1", "b2", "b3", "b4"}},
		{name: "favorites", filter: FilterState{FavoritesOnly: true}, want: []string{"b1", "b4"}},
		{name: "collection", filter: FilterState{CollectionID: "c1"}, want: []string{"b1", "b3"}},
		{name: "search title case-insensitive", filter: FilterState{Search: "RUST"}, want: []string{"b2"}},
		{name: "search url", filter: FilterState{Search: "example"}, want: []string{"b3", "b4"}},
		{name: "search description", filter: FilterState{Search: "concurrency"}, want: []string{"b3"}},
		{name: "search tag", filter: FilterState{Search: "system"}, want: []string{"b2"}},
		{name: "favorites then search", filter: FilterState{FavoritesOnly: true, Search: "news"}, want: []string{"b4"}},
		{name: "collection then search", filter: FilterState{CollectionID: "c1", Search: "rust"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterBookmarks(sampleBookmarks(), tt.filter)))
		})
	}
}

func TestFilterStateMutualExclusion(t *testing.T) {
	var f FilterState

	f.SelectCollection("c1")
	assert.Equal(t, "c1", f.CollectionID)
	assert.False(t, f.FavoritesOnly)

	f.SelectFavorites()
	assert.Empty(t, f.CollectionID)
	assert.True(t, f.FavoritesOnly)

	f.SelectCollection("c2")
	assert.False(t, f.FavoritesOnly)

	f.SetSearch("go")
	f.SelectAll()
	assert.True(t, f.IsAll())
	assert.Equal(t, "go", f.Search)
}

func TestTitle(t *testing.T) {
	cols := []Collection{{ID: "c1", Name: "Reading"}}

	assert.Equal(t, "All Bookmarks", Title(FilterState{}, cols))
	assert.Equal(t, "Favorites", Title(FilterState{FavoritesOnly: true}, cols))
	assert.Equal(t, "Reading", Title(FilterState{CollectionID: "c1"}, cols))
	assert.Equal(t, "All Bookmarks", Title(FilterState{CollectionID: "gone"}, cols))
}
