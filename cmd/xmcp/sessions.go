package main

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/urfave/cli/v2"
)

func (a *app) sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "manage conversation sessions kept by the run command",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list stored session IDs",
				Action: a.listSessions,
			},
			{
				Name:      "reset",
				Usage:     "delete the history of a session",
				ArgsUsage: "<session>",
				Action:    a.resetSession,
			},
		},
	}
}

func (a *app) listSessions(c *cli.Context) error {
	st, err := a.cfg.Store.NewStore(c.Context)
	if err != nil {
		return err
	}

	ids, err := st.ListSessions(c.Context)
	if err != nil {
		return err
	}

	if len(ids) == 0 && c.String("output") == "text" {
		return nil
	}
	return a.print(c, strings.Join(ids, "\n"), ids)
}

func (a *app) resetSession(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("session ID is required")
	}

	st, err := a.cfg.Store.NewStore(c.Context)
	if err != nil {
		return err
	}
	if err = st.Reset(c.Context, id); err != nil {
		return err
	}
	logger.KV(xlog.INFO, "status", "session_reset", "session", id)
	return nil
}
