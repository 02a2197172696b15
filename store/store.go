// Package store persists run message history per session.
package store

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "store")

// MaxMessages is the number of most recent messages kept per session
const MaxMessages = 50

// ErrInvalidSession is returned for empty session ID
var ErrInvalidSession = errors.New("invalid session")

// Store keeps messages of sessions,
// each message is an opaque JSON document
type Store interface {
	// Messages returns messages of the session, oldest first
	Messages(ctx context.Context, sessionID string) ([]json.RawMessage, error)
	// Add appends messages to the session
	Add(ctx context.Context, sessionID string, msgs ...json.RawMessage) error
	// Reset deletes the session
	Reset(ctx context.Context, sessionID string) error
	// ListSessions returns IDs of the stored sessions
	ListSessions(ctx context.Context) ([]string, error)
}

func checkSession(sessionID string) error {
	if sessionID == "" {
		return errors.WithStack(ErrInvalidSession)
	}
	return nil
}
