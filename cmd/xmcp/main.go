package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/config"
	"github.com/effective-security/xmcp/utils"
	"github.com/urfave/cli/v2"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "cmd")

// app holds the state shared by commands
type app struct {
	cfg *config.Config
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{in: os.Stdin, out: os.Stdout, err: os.Stderr}
	if err := a.cli().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:      "xmcp",
		Usage:     "MCP server with read-only X API tools, and its sample clients",
		Reader:    a.in,
		Writer:    a.out,
		ErrWriter: a.err,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file: .yaml, .json or .toml",
				EnvVars: []string{"XMCP_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env",
				Usage: "dotenv files to load",
				Value: cli.NewStringSlice(".env"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "TRACE, DEBUG, INFO, WARNING or ERROR",
				EnvVars: []string{"XMCP_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: text, json or yaml",
				Value:   "text",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			a.serveCommand(),
			a.toolsCommand(),
			a.callCommand(),
			a.runCommand(),
			a.sessionsCommand(),
		},
	}
}

func (a *app) before(c *cli.Context) error {
	if err := config.LoadDotEnv(c.StringSlice("env")...); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	a.cfg = cfg

	xlog.SetFormatter(xlog.NewStringFormatter(a.err))
	xlog.SetGlobalLogLevel(logLevel(values.StringsCoalesce(c.String("log-level"), cfg.LogLevel)))
	return nil
}

func logLevel(s string) xlog.LogLevel {
	switch strings.ToUpper(s) {
	case "TRACE":
		return xlog.TRACE
	case "DEBUG":
		return xlog.DEBUG
	case "WARNING":
		return xlog.WARNING
	case "ERROR":
		return xlog.ERROR
	default:
		return xlog.INFO
	}
}

// print writes the value in the format selected by --output
func (a *app) print(c *cli.Context, text string, val any) error {
	switch c.String("output") {
	case "json":
		fmt.Fprintln(a.out, utils.ToJSONIndent(val))
	case "yaml":
		fmt.Fprint(a.out, utils.ToYAML(val))
	case "text", "":
		fmt.Fprintln(a.out, text)
	default:
		return errors.Newf("unsupported output format: %s", c.String("output"))
	}
	return nil
}
