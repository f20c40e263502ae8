package domain

import "testing"

func TestScoreBookmark(t *testing.T) {
	b := &Bookmark{
		Title: "Jellyfin Media",
		URL:   "https://jellyfin.domain.ext/web",
		Tags:  []string{"media", "home"},
	}

	tests := []struct {
		name           string
		query          string
		expectPositive bool
	}{
		{name: "hostname exact", query: "jellyfin", expectPositive: true},
		{name: "hostname prefix", query: "jelly", expectPositive: true},
		{name: "tag", query: "home", expectPositive: true},
		{name: "title word and tag", query: "media home", expectPositive: true},
		{name: "one word misses", query: "media xyz", expectPositive: false},
		{name: "no match", query: "xyz", expectPositive: false},
		{name: "empty", query: "   ", expectPositive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreBookmark(tt.query, b)

			if tt.expectPositive && score <= 0 {
				t.Errorf("Expected positive score, got %f", score)
			}
			if !tt.expectPositive && score > 0 {
				t.Errorf("Expected zero score, got %f", score)
			}
		})
	}

	if ScoreBookmark("jellyfin", nil) != 0 {
		t.Error("nil bookmark should score 0")
	}
}

func TestScoreBookmarkExactTitleWins(t *testing.T) {
	exact := &Bookmark{Title: "Go", URL: "https://go.dev"}
	prefix := &Bookmark{Title: "Gopher", URL: "https://gopher.example"}

	if ScoreBookmark("go", exact) <= ScoreBookmark("go", prefix) {
		t.Error("exact title should outrank a prefix match")
	}
}

func TestRankBookmarks(t *testing.T) {
	bookmarks := []Bookmark{
		{ID: "a", Title: "Grafana", URL: "https://grafana.domain.ext"},
		{ID: "b", Title: "Gitea", URL: "https://git.domain.ext"},
		{ID: "c", Title: "Git docs", URL: "https://git-scm.com"},
		{ID: "d", Title: "Unrelated", URL: "https://example.com"},
	}

	matches := RankBookmarks("git", bookmarks)
	if len(matches) != 2 {
		t.Fatalf("RankBookmarks() returned %d matches, want 2", len(matches))
	}
	if matches[0].Bookmark.ID != "b" {
		t.Errorf("best match = %s, want b", matches[0].Bookmark.ID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Score < matches[i].Score {
			t.Errorf("matches not sorted at %d", i)
		}
	}

	best, ok := BestBookmark("grafana", bookmarks)
	if !ok || best.ID != "a" {
		t.Errorf("BestBookmark() = %v, %v", best.ID, ok)
	}

	if _, ok := BestBookmark("nothing", bookmarks); ok {
		t.Error("BestBookmark() should report no match")
	}
}

func TestNormalizeFragment(t *testing.T) {
	tests := map[string]string{
		"Git-SCM": "gitscm",
		"v1.2":    "v12",
		"  ":      "",
	}
	for in, want := range tests {
		if got := normalizeFragment(in); got != want {
			t.Errorf("normalizeFragment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScoreBookmarkFavoriteBreaksTie(t *testing.T) {
	plain := &Bookmark{Title: "Docs", URL: "https://a.example"}
	fav := &Bookmark{Title: "Docs", URL: "https://b.example", IsFavorite: true}

	if ScoreBookmark("docs", fav) <= ScoreBookmark("docs", plain) {
		t.Error("favorite should win an otherwise equal match")
	}
}
