// Package sdk is a client of an OpenAI-compatible model API that runs
// multi-turn conversations with hosted MCP servers and local tools.
//
// Connection secrets never leave the client in clear text: SealCredentials
// encrypts them to the public key published by the authorization server,
// and the sealed values are attached to every model request.
package sdk
