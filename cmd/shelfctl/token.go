package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/shelf/internal/auth"
)

// tokenCmd mints a bearer token signed with the server secret.
func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint an HS256 bearer token for a user (development helper)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "Owner id placed in the sub claim"},
			&cli.StringFlag{Name: "secret", EnvVars: []string{"SHELF_JWT_SECRET"}, Required: true, Usage: "Server signing secret"},
			&cli.DurationFlag{Name: "ttl", Value: 30 * 24 * time.Hour, Usage: "Token lifetime, 0 for no expiry"},
		},
		Action: func(c *cli.Context) error {
			tok, err := auth.Issue([]byte(c.String("secret")), c.String("user"), c.Duration("ttl"), time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, tok)
			return err
		},
	}
}
