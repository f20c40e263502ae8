package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/client/session"
	"github.com/MrSnakeDoc/shelf/internal/client/subscription"
	"github.com/MrSnakeDoc/shelf/internal/client/ws"
	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Only this collection (id or name)"},
		&cli.BoolFlag{Name: "favorites", Aliases: []string{"f"}, Usage: "Only favorites"},
		&cli.StringFlag{Name: "search", Usage: "Case-insensitive text search"},
	}
}

// applyFilter sets the view filter on st from the command flags.
func applyFilter(c *cli.Context, st *entitystore.Store) error {
	ref := c.String("collection")
	if ref != "" && c.Bool("favorites") {
		return errors.New("--collection and --favorites are mutually exclusive")
	}

	switch {
	case ref != "":
		col, err := resolveCollection(st, ref)
		if err != nil {
			return err
		}
		st.SelectCollection(col.ID)
	case c.Bool("favorites"):
		st.SelectFavorites()
	default:
		st.SelectAll()
	}

	st.SetSearch(c.String("search"))
	return nil
}

// resolveCollection matches ref against ids first, then names ignoring case.
func resolveCollection(st *entitystore.Store, ref string) (domain.Collection, error) {
	if col, ok := st.GetCollection(ref); ok {
		return col, nil
	}
	for _, col := range st.Collections() {
		if strings.EqualFold(col.Name, ref) {
			return col, nil
		}
	}
	return domain.Collection{}, fmt.Errorf("collection %q: %w", ref, domain.ErrNotFound)
}

// listCmd creates the list command.
func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print bookmarks from a fresh snapshot",
		Flags: append(filterFlags(),
			&cli.BoolFlag{Name: "collections", Usage: "List collections with their counts instead"},
		),
		Action: func(c *cli.Context) error {
			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.close()

			st, err := cl.snapshot(c.Context)
			if err != nil {
				return err
			}

			if c.Bool("collections") {
				return printCollections(cl.out, st, cl.asJSON)
			}
			if err := applyFilter(c, st); err != nil {
				return err
			}
			return printView(cl.out, st, cl.asJSON)
		},
	}
}

// watchCmd creates the watch command.
func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep a live session open and reprint the view on every change (Enter refreshes)",
		Flags: filterFlags(),
		Action: func(c *cli.Context) error {
			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			tr, err := ws.New(cl.cfg.ServerURL, cl.cfg.Token, ws.DefaultReadTimeout)
			if err != nil {
				return err
			}

			s, err := session.New(session.Config{
				UserID:    cl.cfg.UserID,
				Remote:    cl.rest,
				Transport: tr,
				Notifier:  cl.notifier(),
				Logger:    cl.log,
				Subscription: subscription.Options{
					BackoffUnit: cl.cfg.BackoffUnit,
					MaxBackoff:  cl.cfg.MaxBackoff,
					MaxAttempts: cl.cfg.MaxAttempts,
				},
				ResyncInterval: cl.cfg.ResyncInterval,
			})
			if err != nil {
				return err
			}

			if err := s.Start(ctx); err != nil {
				return err
			}
			defer s.Close()

			changed := make(chan struct{}, 1)
			unsubscribe := s.Store().OnChange(func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			defer unsubscribe()

			if err := applyFilter(c, s.Store()); err != nil {
				return err
			}

			go func() {
				scanner := bufio.NewScanner(c.App.Reader)
				for scanner.Scan() {
					s.Refresh()
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-changed:
					fmt.Fprintf(cl.out, "\n── %d live ──\n", s.Live())
					if err := printView(cl.out, s.Store(), cl.asJSON); err != nil {
						return err
					}
				}
			}
		},
	}
}
