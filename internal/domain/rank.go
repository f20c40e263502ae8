package domain

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"unicode"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Whole query equals the title (huge boost)
	ScoreExactTitleBonus = 200.0

	// Favorites win ties
	ScoreFavoriteBonus = 5.0
)

// Match is a bookmark with its score against a query.
type Match struct {
	Bookmark Bookmark `json:"bookmark"`
	Score    float64  `json:"score"`
}

// ScoreBookmark scores a bookmark against a free-text query. Every query
// word must match one of the bookmark's title words, tags or hostname
// labels, otherwise the score is 0.
func ScoreBookmark(query string, b *Bookmark) float64 {
	if b == nil {
		return 0.0
	}
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return 0.0
	}

	fragments := bookmarkFragments(b)

	var total float64
	for _, word := range words {
		best := 0.0
		for i, frag := range fragments {
			if s := scoreFragment(word, frag, i); s > best {
				best = s
			}
		}
		if best == 0.0 {
			return 0.0
		}
		total += best
	}

	if normalizeFragment(query) == normalizeFragment(b.Title) {
		total += ScoreExactTitleBonus
	}
	if b.IsFavorite {
		total += ScoreFavoriteBonus
	}
	return total
}

// RankBookmarks returns the matching bookmarks, best first. Equal scores
// keep their input order.
func RankBookmarks(query string, bookmarks []Bookmark) []Match {
	matches := make([]Match, 0, len(bookmarks))
	for i := range bookmarks {
		score := ScoreBookmark(query, &bookmarks[i])
		if score == 0.0 {
			continue
		}
		matches = append(matches, Match{Bookmark: bookmarks[i], Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// BestBookmark finds the best matching bookmark for a query.
func BestBookmark(query string, bookmarks []Bookmark) (Bookmark, bool) {
	matches := RankBookmarks(query, bookmarks)
	if len(matches) == 0 {
		return Bookmark{}, false
	}
	return matches[0].Bookmark, true
}

// bookmarkFragments lists hostname labels first, then title words, then tags.
// Example: "https://pkg.go.dev/net" titled "Go packages" ->
// ["pkg", "go", "dev", "go", "packages"]
func bookmarkFragments(b *Bookmark) []string {
	var out []string
	if u, err := url.Parse(b.URL); err == nil {
		for _, label := range strings.Split(strings.ToLower(u.Hostname()), ".") {
			if label != "" && label != "www" {
				out = append(out, label)
			}
		}
	}
	out = append(out, strings.Fields(strings.ToLower(b.Title))...)
	for _, tag := range b.Tags {
		out = append(out, strings.ToLower(tag))
	}
	return out
}

// scoreFragment scores a single query fragment against a bookmark fragment
func scoreFragment(queryFrag, frag string, position int) float64 {
	queryFrag = normalizeFragment(queryFrag)
	frag = normalizeFragment(frag)

	if queryFrag == "" || frag == "" {
		return 0.0
	}

	// Exact match
	if queryFrag == frag {
		return ScoreExactMatch + calculatePositionBonus(position)
	}

	// Prefix match
	if strings.HasPrefix(frag, queryFrag) {
		return ScorePrefixMatch + calculatePositionBonus(position)
	}

	// Substring match
	if strings.Contains(frag, queryFrag) {
		index := strings.Index(frag, queryFrag)
		// Earlier substring matches get higher score
		substringBonus := ScorePositionBonus * (1.0 - float64(index)/float64(len(frag)))
		return ScoreSubstringMatch + substringBonus
	}

	// Fuzzy match (Levenshtein-like)
	similarity := calculateSimilarity(queryFrag, frag)
	if similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}

	return 0.0
}

// calculatePositionBonus gives bonus for earlier positions
func calculatePositionBonus(position int) float64 {
	return ScorePositionBonus * math.Exp(-float64(position)*0.3)
}

// calculateSimilarity is the share of s1's characters that also occur in s2.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}

	matches := 0
	total := 0
	for _, c := range s1 {
		total++
		if strings.ContainsRune(s2, c) {
			matches++
		}
	}

	return float64(matches) / float64(total)
}

// normalizeFragment keeps letters and digits, lowercased.
func normalizeFragment(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}
