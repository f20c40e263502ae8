package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/domain"
)

const maxTitleWidth = 48

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// listView is the JSON shape of list and watch output.
type listView struct {
	Title       string              `json:"title"`
	Bookmarks   []domain.Bookmark   `json:"bookmarks"`
	Collections []collectionSummary `json:"collections"`
}

type collectionSummary struct {
	domain.Collection
	Count int `json:"count"`
}

func summarize(st *entitystore.Store) listView {
	cols := st.Collections()
	summaries := make([]collectionSummary, 0, len(cols))
	for _, c := range cols {
		summaries = append(summaries, collectionSummary{Collection: c, Count: st.CollectionCount(c.ID)})
	}
	return listView{
		Title:       st.Title(),
		Bookmarks:   st.View(),
		Collections: summaries,
	}
}

// printView renders the filtered bookmarks under the view title.
func printView(w io.Writer, st *entitystore.Store, asJSON bool) error {
	view := summarize(st)
	if asJSON {
		return outputJSON(w, view)
	}

	names := make(map[string]string, len(view.Collections))
	for _, c := range view.Collections {
		names[c.ID] = c.Name
	}

	fmt.Fprintf(w, "%s (%d of %d, %d favorites)\n", view.Title, len(view.Bookmarks), st.BookmarkCount(), st.FavoriteCount())
	if len(view.Bookmarks) == 0 {
		fmt.Fprintln(w, "  no bookmarks")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tID\tTITLE\tURL\tCOLLECTION\tTAGS")
	for _, b := range view.Bookmarks {
		star := " "
		if b.IsFavorite {
			star = "*"
		}
		collection := "-"
		if b.CollectionID != nil {
			collection = names[*b.CollectionID]
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			star, b.ID, truncate(b.Title, maxTitleWidth), b.URL, collection, strings.Join(b.Tags, ","))
	}
	return tw.Flush()
}

// printCollections renders collections with their bookmark counts.
func printCollections(w io.Writer, st *entitystore.Store, asJSON bool) error {
	view := summarize(st)
	if asJSON {
		return outputJSON(w, view.Collections)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tICON\tCOUNT")
	for _, c := range view.Collections {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", c.ID, c.Name, c.Color, c.Icon, c.Count)
	}
	return tw.Flush()
}

func printBookmark(w io.Writer, verb string, b domain.Bookmark, asJSON bool) error {
	if asJSON {
		return outputJSON(w, b)
	}
	_, err := fmt.Fprintf(w, "%s %s %q\n", verb, b.ID, b.Title)
	return err
}

func printCollection(w io.Writer, verb string, c domain.Collection, asJSON bool) error {
	if asJSON {
		return outputJSON(w, c)
	}
	_, err := fmt.Fprintf(w, "%s %s %q\n", verb, c.ID, c.Name)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
