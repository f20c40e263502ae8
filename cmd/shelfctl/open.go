package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// openCmd resolves a short query to the best matching bookmark URL.
func openCmd() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Print the URL of the bookmark that best matches a query",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Print every match with its score"},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return errors.New("a query is required")
			}

			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.close()

			st, err := cl.snapshot(c.Context)
			if err != nil {
				return err
			}

			matches := domain.RankBookmarks(query, st.Bookmarks())
			if len(matches) == 0 {
				return fmt.Errorf("no bookmark matches %q: %w", query, domain.ErrNotFound)
			}

			if cl.asJSON {
				if c.Bool("all") {
					return outputJSON(cl.out, matches)
				}
				return outputJSON(cl.out, matches[0])
			}
			if !c.Bool("all") {
				_, err := fmt.Fprintln(cl.out, matches[0].Bookmark.URL)
				return err
			}

			tw := tabwriter.NewWriter(cl.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tTITLE\tURL")
			for _, m := range matches {
				fmt.Fprintf(tw, "%.1f\t%s\t%s\n", m.Score, truncate(m.Bookmark.Title, maxTitleWidth), m.Bookmark.URL)
			}
			return tw.Flush()
		},
	}
}
