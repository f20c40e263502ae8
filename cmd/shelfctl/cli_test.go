package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/feed"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
)

const testSecret = "cli-test-secret-0123456789"

type fixture struct {
	url   string
	token string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	for _, key := range []string{"SHELF_CLIENT_CONFIG", "SHELF_SERVER_URL", "SHELF_TOKEN", "SHELF_USER_ID", "SHELF_LOG_FILE"} {
		t.Setenv(key, "")
	}

	broker := feed.NewMemoryBroker(nil)
	d := deps.Deps{
		Logger:         logger.Nop(),
		StartTime:      time.Now(),
		Repo:           memory.New(),
		Broker:         broker,
		JWTSecret:      []byte(testSecret),
		Idempotency:    cache.New(time.Minute, time.Minute),
		RequestTimeout: 5 * time.Second,
		PingInterval:   time.Second,
		RateBurst:      1000,
		RatePerMin:     6000,
	}
	srv := httptest.NewServer(httpserver.NewRouter(logger.Nop(), d))
	t.Cleanup(func() {
		_ = broker.Close()
		srv.Close()
	})

	tok, err := auth.Issue([]byte(testSecret), "u1", time.Hour, time.Now())
	require.NoError(t, err)
	return fixture{url: srv.URL, token: tok}
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newCLIApp(strings.NewReader(""), &out, &errOut)
	argv := append([]string{"shelfctl", "--server", f.url, "--token", f.token, "--quiet"}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func (f fixture) list(t *testing.T, args ...string) listView {
	t.Helper()
	out, err := f.run(t, append([]string{"--json", "list"}, args...)...)
	require.NoError(t, err)

	var view listView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	return view
}

func TestTokenCommand(t *testing.T) {
	var out bytes.Buffer
	app := newCLIApp(strings.NewReader(""), &out, &bytes.Buffer{})
	err := app.Run([]string{"shelfctl", "token", "--user", "alice", "--secret", testSecret})
	require.NoError(t, err)

	sub, err := auth.Verify([]byte(testSecret), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestBookmarkLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "collection", "add", "--name", "Reading", "--color", "red")
	require.NoError(t, err)

	out, err := f.run(t, "--json", "add", "--url", "https://go.dev", "--title", "Go", "--collection", "reading", "--tags", "go, lang")
	require.NoError(t, err)
	var added domain.Bookmark
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, []string{"go", "lang"}, added.Tags)
	require.NotNil(t, added.FaviconURL)

	view := f.list(t)
	require.Len(t, view.Bookmarks, 1)
	require.Len(t, view.Collections, 1)
	assert.Equal(t, 1, view.Collections[0].Count)

	out, err = f.run(t, "fav", added.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "favorited")
	assert.Len(t, f.list(t, "--favorites").Bookmarks, 1)

	_, err = f.run(t, "edit", added.ID, "--title", "Go docs", "--collection", "")
	require.NoError(t, err)

	view = f.list(t, "--collection", "Reading")
	assert.Equal(t, "Reading", view.Title)
	assert.Empty(t, view.Bookmarks)

	view = f.list(t, "--search", "DOCS")
	require.Len(t, view.Bookmarks, 1)
	assert.Equal(t, "Go docs", view.Bookmarks[0].Title)
	assert.True(t, view.Bookmarks[0].IsFavorite)

	_, err = f.run(t, "collection", "rm", "Reading")
	require.NoError(t, err)
	_, err = f.run(t, "rm", added.ID)
	require.NoError(t, err)

	view = f.list(t)
	assert.Empty(t, view.Bookmarks)
	assert.Empty(t, view.Collections)
}

func TestAddRejectsInvalidForm(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "add", "--url", "ftp://example.com", "--title", "x")
	assert.True(t, domain.IsValidation(err), "got %v", err)
}

func TestEditUnknownBookmark(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "edit", "missing", "--title", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRejectsConflictingFilters(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "list", "--favorites", "--collection", "x")
	assert.Error(t, err)
}

func TestListRequiresToken(t *testing.T) {
	t.Setenv("SHELF_TOKEN", "")
	t.Setenv("SHELF_CLIENT_CONFIG", "")

	app := newCLIApp(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	err := app.Run([]string{"shelfctl", "--quiet", "list"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")
}

func TestImportSkipsExistingURLs(t *testing.T) {
	f := newFixture(t)

	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go:
        - abbr: GO
          href: https://go.dev
- Social:
    - Reddit:
        - href: https://reddit.com/
`), 0o644))

	_, err := f.run(t, "add", "--url", "https://go.dev/", "--title", "Go")
	require.NoError(t, err)

	out, err := f.run(t, "--json", "import", path)
	require.NoError(t, err)
	var res importResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, importResult{Created: 2, Skipped: 1, CollectionsCreated: 2}, res)

	view := f.list(t, "--collection", "developer")
	require.Len(t, view.Bookmarks, 1)
	assert.Equal(t, "Github", view.Bookmarks[0].Title)
	assert.Equal(t, []string{"gh"}, view.Bookmarks[0].Tags)

	out, err = f.run(t, "--json", "import", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, importResult{Skipped: 3}, res)
}

func TestOpenPrintsBestMatch(t *testing.T) {
	f := newFixture(t)

	for _, args := range [][]string{
		{"--url", "https://grafana.domain.ext", "--title", "Grafana"},
		{"--url", "https://git.domain.ext", "--title", "Gitea"},
	} {
		_, err := f.run(t, append([]string{"add"}, args...)...)
		require.NoError(t, err)
	}

	out, err := f.run(t, "open", "git")
	require.NoError(t, err)
	assert.Equal(t, "https://git.domain.ext\n", out)

	_, err = f.run(t, "open", "nothing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
