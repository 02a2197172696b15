// Package tools defines tools exposed over MCP and to local model runs.
// A tool has a name, a description, a JSON schema of its input,
// and is invoked with JSON arguments.
package tools
