package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/client/rest"
	"github.com/MrSnakeDoc/shelf/internal/client/session"
	"github.com/MrSnakeDoc/shelf/internal/client/subscription"
	"github.com/MrSnakeDoc/shelf/internal/client/ws"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/feed"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
)

var secret = []byte("test-secret-0123456789")

type harness struct {
	srv    *httptest.Server
	broker *feed.MemoryBroker
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	broker := feed.NewMemoryBroker(nil)
	d := deps.Deps{
		Logger:         logger.Nop(),
		StartTime:      time.Now(),
		Repo:           memory.New(),
		StoreDriver:    "memory",
		Broker:         broker,
		BrokerDriver:   "memory",
		JWTSecret:      secret,
		Idempotency:    cache.New(time.Minute, time.Minute),
		RequestTimeout: 5 * time.Second,
		PingInterval:   50 * time.Millisecond,
		RateBurst:      1000,
		RatePerMin:     6000,
	}

	srv := httptest.NewServer(httpserver.NewRouter(logger.Nop(), d))
	t.Cleanup(func() {
		_ = broker.Close()
		srv.Close()
	})
	return &harness{srv: srv, broker: broker}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.Issue(secret, userID, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func (h *harness) client(t *testing.T, userID string) *rest.Client {
	t.Helper()
	c, err := rest.New(h.srv.URL, token(t, userID), 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestBookmarkAndCollectionCRUD(t *testing.T) {
	h := newHarness(t)
	c := h.client(t, "u1")
	ctx := context.Background()

	col, err := c.CreateCollection(ctx, "u1", domain.CollectionInput{Name: "Reading", Color: "blue"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCollectionIcon, col.Icon)

	b, err := c.CreateBookmark(ctx, "u1", domain.BookmarkInput{
		Title:        "Go",
		URL:          "https://go.dev",
		CollectionID: &col.ID,
		Tags:         []string{"lang"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", b.UserID)

	list, err := c.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := c.UpdateBookmark(ctx, "u1", b.ID, domain.BookmarkInput{Title: "Go docs", URL: "https://go.dev/doc", CollectionID: &col.ID})
	require.NoError(t, err)
	assert.Equal(t, "Go docs", updated.Title)

	fav, err := c.SetFavorite(ctx, "u1", b.ID, true)
	require.NoError(t, err)
	assert.True(t, fav.IsFavorite)

	require.NoError(t, c.DeleteCollection(ctx, "u1", col.ID))
	list, err = c.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].CollectionID)

	require.NoError(t, c.DeleteBookmark(ctx, "u1", b.ID))
	err = c.DeleteBookmark(ctx, "u1", b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOwnerFilterMustMatchToken(t *testing.T) {
	h := newHarness(t)
	c := h.client(t, "u1")

	_, err := c.ListBookmarks(context.Background(), "u2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/api/bookmarks?user_id=u1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestValidationIsUnprocessable(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/api/bookmarks?user_id=u1",
		strings.NewReader(`{"title":"  ","url":"ftp://x"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Code   string `json:"code"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation", body.Code)
	assert.Len(t, body.Fields, 2)
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "u1")

	post := func() domain.Bookmark {
		req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/api/bookmarks?user_id=u1",
			bytes.NewBufferString(`{"title":"Go","url":"https://go.dev"}`))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Idempotency-Key", "01HX-same-key")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var b domain.Bookmark
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
		return b
	}

	first := post()
	second := post()
	assert.Equal(t, first.ID, second.ID)

	list, err := h.client(t, "u1").ListBookmarks(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRealtimeDeliversChanges(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := ws.New(h.srv.URL, token(t, "u1"), time.Second)
	require.NoError(t, err)

	stream, err := tr.Subscribe(ctx, "u1", changefeed.Bookmarks)
	require.NoError(t, err)
	defer stream.Close()
	require.Equal(t, 1, h.broker.Subscribers("u1", changefeed.Bookmarks))

	created, err := h.client(t, "u1").CreateBookmark(ctx, "u1", domain.BookmarkInput{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)

	// pings keep the stream alive past the read timeout
	env, err := stream.Recv(ctx)
	require.NoError(t, err)

	ev, err := changefeed.Decode(env)
	require.NoError(t, err)
	ins, ok := ev.Change.(changefeed.Insert)
	require.True(t, ok)
	row, err := ins.Row.Bookmark()
	require.NoError(t, err)
	assert.Equal(t, created.ID, row.ID)
}

func TestRealtimeRejectsUnknownTable(t *testing.T) {
	h := newHarness(t)

	tr, err := ws.New(h.srv.URL, token(t, "u1"), time.Second)
	require.NoError(t, err)

	_, err = tr.Subscribe(context.Background(), "u1", changefeed.Table("tags"))
	assert.ErrorIs(t, err, subscription.ErrChannel)
}

func TestRealtimeRejectsOtherOwner(t *testing.T) {
	h := newHarness(t)

	tr, err := ws.New(h.srv.URL, token(t, "u1"), time.Second)
	require.NoError(t, err)

	_, err = tr.Subscribe(context.Background(), "u2", changefeed.Bookmarks)
	assert.ErrorIs(t, err, subscription.ErrChannel)
	assert.Equal(t, 0, h.broker.Subscribers("u2", changefeed.Bookmarks))
}

func TestSessionsConvergeAcrossClients(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	open := func() *session.Session {
		c := h.client(t, "u1")
		tr, err := ws.New(h.srv.URL, c.Token(), time.Second)
		require.NoError(t, err)

		s, err := session.New(session.Config{
			UserID:       "u1",
			Remote:       c,
			Transport:    tr,
			Subscription: subscription.Options{BackoffUnit: 10 * time.Millisecond},
		})
		require.NoError(t, err)
		require.NoError(t, s.Start(ctx))
		t.Cleanup(s.Close)
		return s
	}

	a := open()
	b := open()

	require.Eventually(t, func() bool {
		return h.broker.Subscribers("u1", changefeed.Bookmarks) == 2 &&
			h.broker.Subscribers("u1", changefeed.Collections) == 2
	}, 2*time.Second, 10*time.Millisecond)

	col, err := a.Gateway().CreateCollection(ctx, domain.CollectionForm{Name: "Reading", Color: "red"})
	require.NoError(t, err)
	bm, err := a.Gateway().CreateBookmark(ctx, domain.BookmarkForm{Title: "Go", URL: "https://go.dev", CollectionID: col.ID})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := b.Store().GetBookmark(bm.ID)
		return ok && got.InCollection(col.ID) && b.Store().CollectionCount(col.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// the creating session absorbed its own echo
	assert.Equal(t, 1, a.Store().BookmarkCount())

	require.NoError(t, a.Gateway().DeleteCollection(ctx, col.ID))
	require.Eventually(t, func() bool {
		got, ok := b.Store().GetBookmark(bm.ID)
		_, colExists := b.Store().GetCollection(col.ID)
		return ok && got.CollectionID == nil && !colExists
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealthAndReadiness(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/healthz", "/readyz", "/infra"} {
		resp, err := http.Get(h.srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	require.NoError(t, h.broker.Close())
	resp, err := http.Get(h.srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body.Code)
}

func TestHealthzReportsDrivers(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
		Store  string `json:"store"`
		Broker string `json:"broker"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "memory", body.Store)
	assert.Equal(t, "memory", body.Broker)
}
