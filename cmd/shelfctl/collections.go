package main

import (
	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// collectionCmd groups the collection subcommands.
func collectionCmd() *cli.Command {
	return &cli.Command{
		Name:    "collection",
		Aliases: []string{"col"},
		Usage:   "Manage collections",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a collection",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Name"},
					&cli.StringFlag{Name: "color", Value: "blue", Usage: "Color"},
					&cli.StringFlag{Name: "icon", Usage: "Icon, defaults to " + domain.DefaultCollectionIcon},
				},
				Action: func(c *cli.Context) error {
					cl, err := connect(c)
					if err != nil {
						return err
					}
					defer cl.close()

					gw, _, err := cl.gateway(c.Context)
					if err != nil {
						return err
					}

					col, err := gw.CreateCollection(c.Context, domain.CollectionForm{
						Name:  c.String("name"),
						Color: c.String("color"),
						Icon:  c.String("icon"),
					})
					if err != nil {
						return err
					}
					return printCollection(cl.out, "created", col, cl.asJSON)
				},
			},
			{
				Name:      "edit",
				Usage:     "Rename or restyle a collection",
				ArgsUsage: "<id|name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Name"},
					&cli.StringFlag{Name: "color", Usage: "Color"},
					&cli.StringFlag{Name: "icon", Usage: "Icon"},
				},
				Action: func(c *cli.Context) error {
					ref, err := requireID(c)
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

					current, err := resolveCollection(st, ref)
					if err != nil {
						return err
					}

					form := domain.CollectionForm{Name: current.Name, Color: current.Color, Icon: current.Icon}
					if c.IsSet("name") {
						form.Name = c.String("name")
					}
					if c.IsSet("color") {
						form.Color = c.String("color")
					}
					if c.IsSet("icon") {
						form.Icon = c.String("icon")
					}

					col, err := gw.UpdateCollection(c.Context, current.ID, form)
					if err != nil {
						return err
					}
					return printCollection(cl.out, "updated", col, cl.asJSON)
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a collection; its bookmarks are kept without a collection",
				ArgsUsage: "<id|name>",
				Action: func(c *cli.Context) error {
					ref, err := requireID(c)
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

					col, err := resolveCollection(st, ref)
					if err != nil {
						return err
					}
					return gw.DeleteCollection(c.Context, col.ID)
				},
			},
		},
	}
}
