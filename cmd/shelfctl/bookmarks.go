package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func bookmarkFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Required: required, Usage: "http(s) URL"},
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: required, Usage: "Title"},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description"},
		&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Collection id or name, empty to clear on edit"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
	}
}

// applyBookmarkFlags overlays the flags that were set onto form.
func applyBookmarkFlags(c *cli.Context, st *entitystore.Store, form *domain.BookmarkForm) error {
	if c.IsSet("url") {
		form.URL = c.String("url")
	}
	if c.IsSet("title") {
		form.Title = c.String("title")
	}
	if c.IsSet("description") {
		form.Description = c.String("description")
	}
	if c.IsSet("tags") {
		form.Tags = c.String("tags")
	}
	if c.IsSet("collection") {
		form.CollectionID = ""
		if ref := c.String("collection"); ref != "" {
			col, err := resolveCollection(st, ref)
			if err != nil {
				return err
			}
			form.CollectionID = col.ID
		}
	}
	return nil
}

func requireID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.New("exactly one id argument is required")
	}
	return c.Args().First(), nil
}

// addCmd creates the add command.
func addCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Save a new bookmark",
		Flags: bookmarkFlags(true),
		Action: func(c *cli.Context) error {
			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.close()

			gw, st, err := cl.gateway(c.Context)
			if err != nil {
				return err
			}

			var form domain.BookmarkForm
			if err := applyBookmarkFlags(c, st, &form); err != nil {
				return err
			}

			b, err := gw.CreateBookmark(c.Context, form)
			if err != nil {
				return err
			}
			return printBookmark(cl.out, "added", b, cl.asJSON)
		},
	}
}

// editCmd creates the edit command. Unset flags keep their current value.
func editCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change a bookmark",
		ArgsUsage: "<id>",
		Flags:     bookmarkFlags(false),
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
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

			current, ok := st.GetBookmark(id)
			if !ok {
				return fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
			}

			form := domain.FormFromBookmark(current)
			if err := applyBookmarkFlags(c, st, &form); err != nil {
				return err
			}

			b, err := gw.UpdateBookmark(c.Context, id, form)
			if err != nil {
				return err
			}
			return printBookmark(cl.out, "updated", b, cl.asJSON)
		},
	}
}

// rmCmd creates the rm command.
func rmCmd() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a bookmark",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}

			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.close()

			gw, _, err := cl.gateway(c.Context)
			if err != nil {
				return err
			}
			return gw.DeleteBookmark(c.Context, id)
		},
	}
}

// favCmd creates the fav command.
func favCmd() *cli.Command {
	return &cli.Command{
		Name:      "fav",
		Usage:     "Toggle a bookmark's favorite flag",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}

			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.close()

			gw, _, err := cl.gateway(c.Context)
			if err != nil {
				return err
			}

			b, err := gw.ToggleFavorite(c.Context, id)
			if err != nil {
				return err
			}
			verb := "unfavorited"
			if b.IsFavorite {
				verb = "favorited"
			}
			return printBookmark(cl.out, verb, b, cl.asJSON)
		},
	}
}
