package main

import (
	"github.com/effective-security/xmcp/callbacks"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/dispatch"
	"github.com/effective-security/xmcp/sdk"
	"github.com/effective-security/xmcp/tools"
	"github.com/urfave/cli/v2"
)

// DefaultRunServer is the hosted MCP server used by the run command
const DefaultRunServer = "windsor/example-dedalus-mcp"

// DefaultRunInput is the demo prompt of the run command
const DefaultRunInput = "Use the Supabase tool to list all tables in the database."

func (a *app) runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run a conversation with the model and hosted MCP servers",
		ArgsUsage: "[input]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "model name",
				Value: sdk.DefaultModel,
			},
			&cli.StringSliceFlag{
				Name:  "mcp-server",
				Usage: "hosted MCP server slug or URL",
				Value: cli.NewStringSlice(DefaultRunServer),
			},
			&cli.StringFlag{
				Name:  "instructions",
				Usage: "system instructions",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "session ID to continue",
			},
			&cli.IntFlag{
				Name:  "max-steps",
				Usage: "maximum number of model calls",
				Value: sdk.DefaultMaxSteps,
			},
			&cli.BoolFlag{
				Name:  "local-tools",
				Usage: "offer the configured tools to the model and execute them locally",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print run events",
			},
		},
		Action: a.run,
	}
}

func (a *app) run(c *cli.Context) error {
	ctx := c.Context

	client, err := sdk.NewClient(a.cfg.SDK)
	if err != nil {
		return err
	}

	st, err := a.cfg.Store.NewStore(ctx)
	if err != nil {
		return err
	}

	cb := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if c.Bool("verbose") {
		cb.Add(callbacks.NewPrinter(c.App.ErrWriter, callbacks.ModeVerbose))
	}

	opts := []sdk.RunnerOption{
		sdk.WithStore(st),
		sdk.WithCallback(cb),
		sdk.WithModel(c.String("model")),
		sdk.WithMaxSteps(c.Int("max-steps")),
	}
	if c.Bool("local-tools") {
		d, err := dispatch.NewHTTPDispatcher(a.cfg.Connections...)
		if err != nil {
			return err
		}
		opts = append(opts, sdk.WithDispatcher(d))
	}
	runner := sdk.NewRunner(client, opts...)

	var servers []*sdk.MCPServerRef
	for _, name := range c.StringSlice("mcp-server") {
		servers = append(servers, sdk.NewMCPServerRef(name, connection.GitHub, connection.Supabase("")))
	}

	params := sdk.RunParams{
		Input:        DefaultRunInput,
		Instructions: c.String("instructions"),
		MCPServers:   servers,
		Credentials: []*connection.SecretValues{
			connection.FromEnv(connection.GitHub),
			connection.FromEnv(connection.Supabase("")),
		},
		SessionID: c.String("session"),
	}
	if c.Args().Present() {
		params.Input = c.Args().First()
	}
	if c.Bool("local-tools") {
		params.Tools = tools.AsTools(a.cfg.Tools())
	}

	res, err := runner.Run(ctx, params)
	if err != nil {
		return err
	}
	return a.print(c, res.Output, res)
}
