package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/client/gateway"
	"github.com/MrSnakeDoc/shelf/internal/client/subscription"
	"github.com/MrSnakeDoc/shelf/internal/domain"
)

type memRemote struct {
	mu          sync.Mutex
	bookmarks   []domain.Bookmark
	collections []domain.Collection
	seq         int
}

func (r *memRemote) ListBookmarks(context.Context, string) ([]domain.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Bookmark(nil), r.bookmarks...), nil
}

func (r *memRemote) ListCollections(context.Context, string) ([]domain.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Collection(nil), r.collections...), nil
}

func (r *memRemote) CreateBookmark(_ context.Context, userID string, in domain.BookmarkInput) (domain.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b := domain.Bookmark{ID: fmt.Sprintf("b%d", r.seq), UserID: userID, Title: in.Title, URL: in.URL, Tags: in.Tags}
	r.bookmarks = append(r.bookmarks, b)
	return b, nil
}

func (r *memRemote) UpdateBookmark(_ context.Context, userID, id string, in domain.BookmarkInput) (domain.Bookmark, error) {
	return domain.Bookmark{ID: id, UserID: userID, Title: in.Title, URL: in.URL}, nil
}

func (r *memRemote) DeleteBookmark(context.Context, string, string) error { return nil }

func (r *memRemote) SetFavorite(_ context.Context, userID, id string, fav bool) (domain.Bookmark, error) {
	return domain.Bookmark{ID: id, UserID: userID, IsFavorite: fav}, nil
}

func (r *memRemote) CreateCollection(_ context.Context, userID string, in domain.CollectionInput) (domain.Collection, error) {
	return domain.Collection{ID: "c-new", UserID: userID, Name: in.Name, Color: in.Color}, nil
}

func (r *memRemote) UpdateCollection(_ context.Context, userID, id string, in domain.CollectionInput) (domain.Collection, error) {
	return domain.Collection{ID: id, UserID: userID, Name: in.Name, Color: in.Color}, nil
}

func (r *memRemote) DeleteCollection(context.Context, string, string) error { return nil }

type chanStream struct {
	envs chan changefeed.Envelope
	drop chan error
}

func (s *chanStream) Recv(ctx context.Context) (changefeed.Envelope, error) {
	select {
	case env := <-s.envs:
		return env, nil
	case err := <-s.drop:
		return changefeed.Envelope{}, err
	case <-ctx.Done():
		return changefeed.Envelope{}, ctx.Err()
	}
}

func (s *chanStream) Close() error { return nil }

type tableTransport struct {
	mu      sync.Mutex
	down    bool
	calls   map[changefeed.Table]int
	streams map[changefeed.Table]chan *chanStream
}

func newTableTransport() *tableTransport {
	return &tableTransport{
		calls: make(map[changefeed.Table]int),
		streams: map[changefeed.Table]chan *chanStream{
			changefeed.Bookmarks:   make(chan *chanStream, 8),
			changefeed.Collections: make(chan *chanStream, 8),
		},
	}
}

func (t *tableTransport) Subscribe(_ context.Context, _ string, table changefeed.Table) (subscription.Stream, error) {
	t.mu.Lock()
	t.calls[table]++
	down := t.down
	t.mu.Unlock()

	if down {
		return nil, subscription.ErrChannel
	}
	s := &chanStream{envs: make(chan changefeed.Envelope, 8), drop: make(chan error, 1)}
	t.streams[table] <- s
	return s, nil
}

func (t *tableTransport) setDown(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.down = v
}

func (t *tableTransport) stream(tb testing.TB, table changefeed.Table) *chanStream {
	tb.Helper()
	select {
	case s := <-t.streams[table]:
		return s
	case <-time.After(2 * time.Second):
		tb.Fatalf("no %s stream", table)
		return nil
	}
}

type notices struct {
	mu  sync.Mutex
	all []gateway.Notice
}

func (n *notices) Notify(x gateway.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, x)
}

func (n *notices) errors() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, x := range n.all {
		if x.Level == gateway.LevelError {
			c++
		}
	}
	return c
}

func TestSessionAppliesLiveChanges(t *testing.T) {
	remote := &memRemote{
		bookmarks:   []domain.Bookmark{{ID: "seed", Title: "Seed"}},
		collections: []domain.Collection{{ID: "c1", Name: "Reading"}},
	}
	tr := newTableTransport()

	s, err := New(Config{UserID: "u1", Remote: remote, Transport: tr, Subscription: subscription.Options{BackoffUnit: time.Millisecond}})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	assert.Equal(t, 1, s.Store().BookmarkCount())

	bs := tr.stream(t, changefeed.Bookmarks)
	cs := tr.stream(t, changefeed.Collections)

	env, err := changefeed.NewInsert(changefeed.Bookmarks, domain.Bookmark{ID: "live", Title: "Live"}, time.Now())
	require.NoError(t, err)
	bs.envs <- env
	cs.envs <- changefeed.NewDelete(changefeed.Collections, "c1", time.Now())

	require.Eventually(t, func() bool {
		return s.Store().BookmarkCount() == 2 && len(s.Store().Collections()) == 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "live", s.Store().Bookmarks()[0].ID)
}

func TestSessionCreateAndEchoConverge(t *testing.T) {
	remote := &memRemote{}
	tr := newTableTransport()

	s, err := New(Config{UserID: "u1", Remote: remote, Transport: tr})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	bs := tr.stream(t, changefeed.Bookmarks)

	row, err := s.Gateway().CreateBookmark(context.Background(), domain.BookmarkForm{URL: "https://go.dev", Title: "Go"})
	require.NoError(t, err)

	env, err := changefeed.NewInsert(changefeed.Bookmarks, row, time.Now())
	require.NoError(t, err)
	bs.envs <- env
	bs.envs <- env

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, s.Store().BookmarkCount())
}

func TestSessionCloseStopsUpdates(t *testing.T) {
	tr := newTableTransport()
	s, err := New(Config{UserID: "u1", Remote: &memRemote{}, Transport: tr})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	bs := tr.stream(t, changefeed.Bookmarks)
	s.Close()
	assert.False(t, s.Active())
	assert.Zero(t, s.Live())

	env, err := changefeed.NewInsert(changefeed.Bookmarks, domain.Bookmark{ID: "late"}, time.Now())
	require.NoError(t, err)
	bs.envs <- env
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, s.Store().BookmarkCount())

	// results of mutations after close are discarded
	_, err = s.Gateway().CreateBookmark(context.Background(), domain.BookmarkForm{URL: "https://x.io", Title: "X"})
	require.NoError(t, err)
	assert.Zero(t, s.Store().BookmarkCount())
}

func TestSessionTerminalFailureAndRefresh(t *testing.T) {
	tr := newTableTransport()
	tr.setDown(true)
	sink := &notices{}

	s, err := New(Config{
		UserID:       "u1",
		Remote:       &memRemote{},
		Transport:    tr,
		Notifier:     sink,
		Subscription: subscription.Options{BackoffUnit: time.Millisecond},
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	require.Eventually(t, func() bool { return sink.errors() == 2 && s.Live() == 0 }, 2*time.Second, 5*time.Millisecond)

	tr.setDown(false)
	s.Refresh()

	tr.stream(t, changefeed.Bookmarks)
	tr.stream(t, changefeed.Collections)
	require.Eventually(t, func() bool { return s.Live() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionReloadsAfterReconnect(t *testing.T) {
	tr := newTableTransport()
	remote := &memRemote{}
	sink := &notices{}

	var mu sync.Mutex
	var seen []subscription.Status
	s, err := New(Config{
		UserID:    "u1",
		Remote:    remote,
		Transport: tr,
		Notifier:  sink,
		Subscription: subscription.Options{
			BackoffUnit: time.Millisecond,
			OnStatus: func(key subscription.Key, status subscription.Status, err error) {
				if key.Table == changefeed.Bookmarks {
					mu.Lock()
					seen = append(seen, status)
					mu.Unlock()
				}
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	first := tr.stream(t, changefeed.Bookmarks)
	tr.stream(t, changefeed.Collections)

	// Written while the feed is down, so no event ever arrives for it.
	_, err = remote.CreateBookmark(context.Background(), "u1", domain.BookmarkInput{Title: "Missed", URL: "https://missed.io"})
	require.NoError(t, err)
	first.drop <- subscription.ErrChannel

	tr.stream(t, changefeed.Bookmarks)
	require.Eventually(t, func() bool {
		_, ok := s.Store().GetBookmark("b1")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Contains(t, seen, subscription.Reconnecting)
	mu.Unlock()

	sink.mu.Lock()
	assert.Empty(t, sink.all, "a transient reconnect must not notify the user")
	sink.mu.Unlock()
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{Remote: &memRemote{}, Transport: newTableTransport()})
	assert.Error(t, err)

	_, err = New(Config{UserID: "u1"})
	assert.Error(t, err)
}
