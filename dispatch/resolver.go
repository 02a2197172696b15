package dispatch

import (
	"context"

	"github.com/effective-security/xmcp/connection"
)

// SecretResolver returns secret values for a connection
type SecretResolver interface {
	// Resolve returns the values, or nil when no credentials are available
	Resolve(ctx context.Context, conn *connection.Connection) *connection.SecretValues
}

// EnvResolver resolves secrets from the process environment
type EnvResolver struct{}

// Resolve implements SecretResolver
func (EnvResolver) Resolve(_ context.Context, conn *connection.Connection) *connection.SecretValues {
	sv := connection.FromEnv(conn)
	if sv.Primary() == "" {
		return nil
	}
	return sv
}

// StaticResolver resolves secrets from values provided upfront
type StaticResolver map[string]*connection.SecretValues

// NewStaticResolver returns resolver keyed by connection name
func NewStaticResolver(list ...*connection.SecretValues) StaticResolver {
	r := make(StaticResolver, len(list))
	for _, sv := range list {
		r[sv.Connection().Name] = sv
	}
	return r
}

// Resolve implements SecretResolver
func (r StaticResolver) Resolve(_ context.Context, conn *connection.Connection) *connection.SecretValues {
	sv := r[conn.Name]
	if sv == nil || sv.Primary() == "" {
		return nil
	}
	return sv
}

// ChainResolver returns the first values found
type ChainResolver []SecretResolver

// Resolve implements SecretResolver
func (c ChainResolver) Resolve(ctx context.Context, conn *connection.Connection) *connection.SecretValues {
	for _, r := range c {
		if sv := r.Resolve(ctx, conn); sv != nil {
			return sv
		}
	}
	return nil
}
