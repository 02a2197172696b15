package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xmcp/client"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"
)

var serverURLFlag = &cli.StringFlag{
	Name:    "url",
	Usage:   "URL of the MCP endpoint",
	Value:   client.DefaultURL,
	EnvVars: []string{"MCP_SERVER_URL"},
}

var tokenFlag = &cli.StringFlag{
	Name:    "token",
	Usage:   "bearer token for the MCP endpoint",
	EnvVars: []string{"MCP_TOKEN"},
}

func (a *app) toolsCommand() *cli.Command {
	return &cli.Command{
		Name:   "tools",
		Usage:  "list tools of the MCP server",
		Flags:  []cli.Flag{serverURLFlag, tokenFlag},
		Action: a.listTools,
	}
}

func (a *app) callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "call a tool of the MCP server",
		ArgsUsage: "<tool> [json arguments]",
		Flags:     []cli.Flag{serverURLFlag, tokenFlag},
		Action:    a.callTool,
	}
}

func connect(c *cli.Context) (*client.Client, error) {
	var opts []client.Option
	if token := c.String("token"); token != "" {
		opts = append(opts, client.WithBearerToken(token))
	}
	return client.Connect(c.Context, c.String("url"), opts...)
}

func (a *app) listTools(c *cli.Context) error {
	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	list, err := cl.ListTools(c.Context)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, t := range list {
		fmt.Fprintf(&b, "%s\t%s\n", t.Name, t.Description)
	}
	return a.print(c, strings.TrimSuffix(b.String(), "\n"), list)
}

func (a *app) callTool(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("tool name is required")
	}

	args := json.RawMessage(`{}`)
	if raw := c.Args().Get(1); raw != "" {
		if raw == "-" {
			b, err := io.ReadAll(c.App.Reader)
			if err != nil {
				return errors.WithStack(err)
			}
			raw = string(b)
		}
		if !json.Valid([]byte(raw)) {
			return errors.Newf("arguments must be JSON object: %s", raw)
		}
		args = json.RawMessage(raw)
	}

	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	res, err := cl.CallTool(c.Context, name, args)
	if err != nil {
		return err
	}
	if res.IsError {
		return errors.Newf("tool %s failed: %s", name, client.Text(res))
	}
	return a.print(c, client.Text(res), resultValue(res))
}

// resultValue returns the structured content, or the result itself
func resultValue(res *mcp.CallToolResult) any {
	if res.StructuredContent != nil {
		return res.StructuredContent
	}
	return res
}
