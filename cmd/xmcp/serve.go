package main

import (
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/server"
	"github.com/urfave/cli/v2"
)

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the MCP server over streamable HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "address to listen on, overrides the configuration",
			},
			&cli.BoolFlag{
				Name:  "stateless",
				Usage: "disable MCP session tracking",
			},
		},
		Action: a.serve,
	}
}

func (a *app) newServer(c *cli.Context) (*server.Server, error) {
	cfg := a.cfg.Server
	if addr := c.String("addr"); addr != "" {
		cfg.Addr = addr
	}
	if c.Bool("stateless") {
		cfg.Stateless = true
	}

	srv, err := server.New(cfg, a.cfg.Connections)
	if err != nil {
		return nil, err
	}
	if err = srv.Collect(a.cfg.Tools()...); err != nil {
		return nil, err
	}
	return srv, nil
}

func (a *app) serve(c *cli.Context) error {
	srv, err := a.newServer(c)
	if err != nil {
		return err
	}

	cfg := srv.Config()
	logger.KV(xlog.INFO,
		"status", "starting",
		"name", cfg.Name,
		"addr", cfg.Addr,
		"path", cfg.Path,
		"tools", len(srv.ToolNames()),
		"connections", srv.Connections().Names(),
	)
	return srv.Serve(c.Context)
}
