package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/client/gateway"
	"github.com/MrSnakeDoc/shelf/internal/client/rest"
	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(in io.Reader, out, errOut io.Writer) *cli.App {
	app := &cli.App{
		Name:      "shelfctl",
		Usage:     "Personal bookmark shelf client",
		Version:   version.String(),
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: "Server URL (overrides SHELF_SERVER_URL)"},
			&cli.StringFlag{Name: "token", Usage: "Bearer token (overrides SHELF_TOKEN)"},
			&cli.StringFlag{Name: "user", Usage: "Owner id, defaults to the token subject"},
			&cli.DurationFlag{Name: "timeout", Usage: "Per-request timeout"},
			&cli.StringFlag{Name: "log-level", Usage: "debug|info|warn|error"},
			&cli.StringFlag{Name: "log-file", Usage: "Also write JSON logs to this rotating file"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Discard logs"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of tables"},
		},
		Commands: []*cli.Command{
			tokenCmd(),
			listCmd(),
			watchCmd(),
			addCmd(),
			editCmd(),
			rmCmd(),
			favCmd(),
			openCmd(),
			collectionCmd(),
			importCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// client is what every networked command works with.
type client struct {
	cfg    *config.ClientConfig
	log    logger.Logger
	rest   *rest.Client
	out    io.Writer
	errOut io.Writer
	asJSON bool
}

// connect resolves configuration: file and environment first, then flags.
func connect(c *cli.Context) (*client, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	if c.IsSet("server") {
		cfg.ServerURL = c.String("server")
	}
	if c.IsSet("token") {
		cfg.Token = c.String("token")
	}
	if c.IsSet("user") {
		cfg.UserID = c.String("user")
	}
	if c.IsSet("timeout") {
		cfg.RequestTimeout = c.Duration("timeout")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.Nop()
	if !c.Bool("quiet") {
		log = logger.NewWithFile(cfg.LogLevel, true, cfg.LogFile)
	}

	rc, err := rest.New(cfg.ServerURL, cfg.Token, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	return &client{
		cfg:    cfg,
		log:    log,
		rest:   rc,
		out:    c.App.Writer,
		errOut: c.App.ErrWriter,
		asJSON: c.Bool("json"),
	}, nil
}

// notifier prints gateway and session notices on stderr.
func (cl *client) notifier() gateway.Notifier {
	return gateway.NotifierFunc(func(n gateway.Notice) {
		if n.Level == gateway.LevelError {
			fmt.Fprintf(cl.errOut, "! %s\n", n.Message)
			return
		}
		fmt.Fprintf(cl.errOut, "%s\n", n.Message)
	})
}

// snapshot loads the user's rows into a fresh entity store, ordered the
// same way a live session would hold them.
func (cl *client) snapshot(ctx context.Context) (*entitystore.Store, error) {
	bookmarks, err := cl.rest.ListBookmarks(ctx, cl.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	collections, err := cl.rest.ListCollections(ctx, cl.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	st := entitystore.NewStore()
	st.Replace(bookmarks, collections)
	return st, nil
}

// gateway loads a snapshot and returns a gateway bound to it, for
// one-shot mutations.
func (cl *client) gateway(ctx context.Context) (*gateway.Gateway, *entitystore.Store, error) {
	st, err := cl.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	gw := gateway.New(cl.rest, st, cl.cfg.UserID,
		gateway.WithNotifier(cl.notifier()),
		gateway.WithLogger(cl.log),
	)
	return gw, st, nil
}

func (cl *client) close() {
	_ = cl.log.Sync()
}
