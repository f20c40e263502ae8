package entitystore

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Store is the client-side cache of one user's bookmarks and collections
// plus the local filter selection. Bookmarks are kept newest first,
// collections oldest first. Every mutation runs under a single lock so
// readers never observe a half-applied cascade.
type Store struct {
	mu          sync.RWMutex
	bookmarks   []domain.Bookmark
	collections []domain.Collection
	filter      domain.FilterState
	lastReplace time.Time // Timestamp of last full snapshot load

	obsMu     sync.Mutex
	observers map[int]func()
	nextObsID int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		bookmarks:   make([]domain.Bookmark, 0),
		collections: make([]domain.Collection, 0),
		observers:   make(map[int]func()),
	}
}

// OnChange registers fn to be called after every state change.
// The returned func unregisters it.
func (s *Store) OnChange(fn func()) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) notify() {
	s.obsMu.Lock()
	fns := make([]func(), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Replace swaps the whole state for a fresh snapshot.
// An active collection filter that no longer exists is reset.
func (s *Store) Replace(bookmarks []domain.Bookmark, collections []domain.Collection) {
	s.mu.Lock()

	s.bookmarks = make([]domain.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		s.bookmarks = append(s.bookmarks, b.Clone())
	}
	s.collections = append(make([]domain.Collection, 0, len(collections)), collections...)

	if s.filter.CollectionID != "" && s.collectionIndex(s.filter.CollectionID) < 0 {
		s.filter.SelectAll()
	}
	s.lastReplace = time.Now()

	s.mu.Unlock()
	s.notify()
}

// Snapshot returns copies of both sequences.
func (s *Store) Snapshot() ([]domain.Bookmark, []domain.Collection) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cloneBookmarks(), append([]domain.Collection(nil), s.collections...)
}

// GetLastReplace returns the timestamp of the last snapshot load
func (s *Store) GetLastReplace() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastReplace
}

// ─────────────────────────────────────────────────────────────────
// Bookmark methods
// ─────────────────────────────────────────────────────────────────

// Bookmarks returns all bookmarks, newest first
func (s *Store) Bookmarks() []domain.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cloneBookmarks()
}

// GetBookmark retrieves a bookmark by ID
func (s *Store) GetBookmark(id string) (domain.Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.bookmarkIndex(id); i >= 0 {
		return s.bookmarks[i].Clone(), true
	}
	return domain.Bookmark{}, false
}

// InsertBookmark prepends b unless a bookmark with the same id exists.
// It reports whether the store changed.
func (s *Store) InsertBookmark(b domain.Bookmark) bool {
	s.mu.Lock()
	if s.bookmarkIndex(b.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.bookmarks = append([]domain.Bookmark{b.Clone()}, s.bookmarks...)
	s.mu.Unlock()

	s.notify()
	return true
}

// UpdateBookmark replaces the bookmark with the same id in place.
// Unknown ids are ignored.
func (s *Store) UpdateBookmark(b domain.Bookmark) bool {
	s.mu.Lock()
	i := s.bookmarkIndex(b.ID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.bookmarks[i] = b.Clone()
	s.mu.Unlock()

	s.notify()
	return true
}

// RemoveBookmark deletes a bookmark and returns it with its former position.
func (s *Store) RemoveBookmark(id string) (domain.Bookmark, int, bool) {
	s.mu.Lock()
	i := s.bookmarkIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Bookmark{}, -1, false
	}
	removed := s.bookmarks[i].Clone()
	s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
	s.mu.Unlock()

	s.notify()
	return removed, i, true
}

// RestoreBookmark reinserts b at pos (clamped). It is a no-op when the id
// is already present, e.g. when a remote insert arrived meanwhile.
func (s *Store) RestoreBookmark(b domain.Bookmark, pos int) bool {
	s.mu.Lock()
	if s.bookmarkIndex(b.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.bookmarks) {
		pos = len(s.bookmarks)
	}
	s.bookmarks = append(s.bookmarks, domain.Bookmark{})
	copy(s.bookmarks[pos+1:], s.bookmarks[pos:])
	s.bookmarks[pos] = b.Clone()
	s.mu.Unlock()

	s.notify()
	return true
}

// SetFavorite sets the favorite flag and returns the previous value.
func (s *Store) SetFavorite(id string, favorite bool) (bool, bool) {
	s.mu.Lock()
	i := s.bookmarkIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false, false
	}
	prev := s.bookmarks[i].IsFavorite
	s.bookmarks[i].IsFavorite = favorite
	s.mu.Unlock()

	s.notify()
	return prev, true
}

// BookmarkCount returns the number of bookmarks in the store
func (s *Store) BookmarkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bookmarks)
}

// FavoriteCount returns the number of favorite bookmarks
func (s *Store) FavoriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.bookmarks {
		if s.bookmarks[i].IsFavorite {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────
// Collection methods
// ─────────────────────────────────────────────────────────────────

// Collections returns all collections, oldest first
func (s *Store) Collections() []domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Collection(nil), s.collections...)
}

// GetCollection retrieves a collection by ID
func (s *Store) GetCollection(id string) (domain.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.collectionIndex(id); i >= 0 {
		return s.collections[i], true
	}
	return domain.Collection{}, false
}

// InsertCollection appends c unless a collection with the same id exists.
func (s *Store) InsertCollection(c domain.Collection) bool {
	s.mu.Lock()
	if s.collectionIndex(c.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.collections = append(s.collections, c)
	s.mu.Unlock()

	s.notify()
	return true
}

// UpdateCollection replaces the collection with the same id in place.
func (s *Store) UpdateCollection(c domain.Collection) bool {
	s.mu.Lock()
	i := s.collectionIndex(c.ID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.collections[i] = c
	s.mu.Unlock()

	s.notify()
	return true
}

// RemoveCollection deletes a collection, detaches every bookmark that
// referenced it and resets the filter if it was selected. The whole
// cascade is applied atomically. It returns the number of detached bookmarks.
func (s *Store) RemoveCollection(id string) (int, bool) {
	s.mu.Lock()

	found := false
	if i := s.collectionIndex(id); i >= 0 {
		s.collections = append(s.collections[:i], s.collections[i+1:]...)
		found = true
	}

	detached := 0
	for i := range s.bookmarks {
		if s.bookmarks[i].InCollection(id) {
			s.bookmarks[i].CollectionID = nil
			detached++
		}
	}

	if s.filter.CollectionID == id {
		s.filter.SelectAll()
	}

	changed := found || detached > 0
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return detached, found
}

// CollectionCount returns how many bookmarks reference the collection
func (s *Store) CollectionCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.bookmarks {
		if s.bookmarks[i].InCollection(id) {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────
// Filter methods
// ─────────────────────────────────────────────────────────────────

// Filter returns the current filter state
func (s *Store) Filter() domain.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter
}

// SelectAll clears the collection and favorites selection.
func (s *Store) SelectAll() {
	s.updateFilter(func(f *domain.FilterState) { f.SelectAll() })
}

// SelectFavorites shows favorites only.
func (s *Store) SelectFavorites() {
	s.updateFilter(func(f *domain.FilterState) { f.SelectFavorites() })
}

// SelectCollection shows one collection.
func (s *Store) SelectCollection(id string) {
	s.updateFilter(func(f *domain.FilterState) { f.SelectCollection(id) })
}

// SetSearch sets the free-text query.
func (s *Store) SetSearch(q string) {
	s.updateFilter(func(f *domain.FilterState) { f.SetSearch(q) })
}

func (s *Store) updateFilter(fn func(*domain.FilterState)) {
	s.mu.Lock()
	fn(&s.filter)
	s.mu.Unlock()

	s.notify()
}

// View returns the bookmarks visible under the current filter
func (s *Store) View() []domain.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := domain.FilterBookmarks(s.bookmarks, s.filter)
	for i := range view {
		view[i] = view[i].Clone()
	}
	return view
}

// Title returns the heading for the current selection
func (s *Store) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Title(s.filter, s.collections)
}

// ─────────────────────────────────────────────────────────────────
// helpers (caller holds mu)
// ─────────────────────────────────────────────────────────────────

func (s *Store) bookmarkIndex(id string) int {
	for i := range s.bookmarks {
		if s.bookmarks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) collectionIndex(id string) int {
	for i := range s.collections {
		if s.collections[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) cloneBookmarks() []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		out = append(out, b.Clone())
	}
	return out
}
