package domain

import "strings"

// FilterState is the client-local selection driving the displayed list.
// Selecting a collection clears FavoritesOnly and vice versa.
type FilterState struct {
	CollectionID  string // "" means no collection selected
	FavoritesOnly bool
	Search        string
}

// SelectAll clears both collection and favorites selection.
func (f *FilterState) SelectAll() {
	f.CollectionID = ""
	f.FavoritesOnly = false
}

// SelectFavorites shows favorites only.
func (f *FilterState) SelectFavorites() {
	f.FavoritesOnly = true
	f.CollectionID = ""
}

// SelectCollection shows a single collection.
func (f *FilterState) SelectCollection(id string) {
	f.CollectionID = id
	f.FavoritesOnly = false
}

// SetSearch sets the free-text query.
func (f *FilterState) SetSearch(q string) {
	f.Search = q
}

// IsAll reports whether no collection or favorites selection is active.
func (f FilterState) IsAll() bool {
	return f.CollectionID == "" && !f.FavoritesOnly
}

// FilterBookmarks projects bookmarks through the filter state, preserving order.
// Favorites and collection filters apply first; search narrows the result
// by a case-insensitive substring match on title, url, description or any tag.
func FilterBookmarks(bookmarks []Bookmark, f FilterState) []Bookmark {
	query := strings.ToLower(f.Search)
	out := make([]Bookmark, 0, len(bookmarks))

	for _, b := range bookmarks {
		if f.FavoritesOnly && !b.IsFavorite {
			continue
		}
		if f.CollectionID != "" && !b.InCollection(f.CollectionID) {
			continue
		}
		if query != "" && !matchesSearch(&b, query) {
			continue
		}
		out = append(out, b)
	}

	return out
}

func matchesSearch(b *Bookmark, query string) bool {
	if strings.Contains(strings.ToLower(b.Title), query) ||
		strings.Contains(strings.ToLower(b.URL), query) {
		return true
	}
	if b.Description != nil && strings.Contains(strings.ToLower(*b.Description), query) {
		return true
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// Title returns the heading for the current selection.
func Title(f FilterState, collections []Collection) string {
	if f.FavoritesOnly {
		return "Favorites"
	}
	for _, c := range collections {
		if c.ID == f.CollectionID {
			return c.Name
		}
	}
	return "All Bookmarks"
}
