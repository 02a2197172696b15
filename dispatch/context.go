package dispatch

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrNoDispatcher is returned when the context has no Dispatcher
var ErrNoDispatcher = errors.New("dispatcher is not available in context")

type contextKey struct{}

// WithDispatcher returns a copy of ctx with the dispatcher bound
func WithDispatcher(ctx context.Context, d Dispatcher) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

// FromContext returns the Dispatcher bound to ctx
func FromContext(ctx context.Context) (Dispatcher, error) {
	if d, ok := ctx.Value(contextKey{}).(Dispatcher); ok && d != nil {
		return d, nil
	}
	return nil, errors.WithStack(ErrNoDispatcher)
}
