package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/sources/homepage"
)

// importResult counts what an import did.
type importResult struct {
	Created            int `json:"created"`
	Skipped            int `json:"skipped"`
	Invalid            int `json:"invalid"`
	CollectionsCreated int `json:"collections_created"`
}

// importCmd creates the import command.
func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a Homepage bookmarks.yaml or services.yaml",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "color", Value: "gray", Usage: "Color for collections created by the import"},
			&cli.BoolFlag{Name: "no-collections", Usage: "Do not group imported bookmarks into collections"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report what would be imported without writing"},
		},
		Action: func(c *cli.Context) error {
			path, err := requireID(c)
			if err != nil {
				return errors.New("exactly one file argument is required")
			}

			doc, err := homepage.NewLoader(path).Load()
			if err != nil {
				return err
			}
			items, err := homepage.NewMapper().Map(doc)
			if err != nil {
				return err
			}

			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.close()

			gw, st, err := cl.gateway(c.Context)
			if err != nil {
				return err
			}

			seen := make(map[string]struct{})
			for _, b := range st.Bookmarks() {
				seen[normalizeURL(b.URL)] = struct{}{}
			}
			groups := make(map[string]string)
			for _, col := range st.Collections() {
				groups[strings.ToLower(col.Name)] = col.ID
			}

			var res importResult
			for _, item := range items {
				key := normalizeURL(item.Form.URL)
				if _, dup := seen[key]; dup {
					res.Skipped++
					continue
				}
				if err := item.Form.Validate(); err != nil {
					cl.log.Warnf("skipping %q: %v", item.Form.Title, err)
					res.Invalid++
					continue
				}
				seen[key] = struct{}{}

				if c.Bool("dry-run") {
					fmt.Fprintf(cl.out, "would add %q (%s) to %q\n", item.Form.Title, item.Form.URL, item.Group)
					res.Created++
					continue
				}

				form := item.Form
				if !c.Bool("no-collections") && item.Group != "" {
					id, ok := groups[strings.ToLower(item.Group)]
					if !ok {
						col, err := gw.CreateCollection(c.Context, domain.CollectionForm{Name: item.Group, Color: c.String("color")})
						if err != nil {
							return err
						}
						id = col.ID
						groups[strings.ToLower(item.Group)] = id
						res.CollectionsCreated++
					}
					form.CollectionID = id
				}

				if _, err := gw.CreateBookmark(c.Context, form); err != nil {
					return err
				}
				res.Created++
			}

			if cl.asJSON {
				return outputJSON(cl.out, res)
			}
			_, err = fmt.Fprintf(cl.out, "imported %d bookmarks (%d new collections), skipped %d duplicates, %d invalid\n",
				res.Created, res.CollectionsCreated, res.Skipped, res.Invalid)
			return err
		},
	}
}

// normalizeURL compares URLs ignoring case and a trailing slash.
func normalizeURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}
