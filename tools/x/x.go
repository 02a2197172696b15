// Package x provides read-only tools over the X (Twitter) API v2.
//
// Tools do not call the API directly: each one builds a GET request
// relative to the x connection and sends it through the dispatcher
// bound to the request context. Credentials are attached by the dispatcher.
package x

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/dispatch"
)

// Connection is the X API connection used by the tools
var Connection = connection.X

// MaxIDs is the maximum number of ids in a batch lookup
const MaxIDs = 100

// Field lists requested from the API
const (
	userFields          = "description,public_metrics,created_at"
	tweetFields         = "author_id,created_at,public_metrics,entities"
	timelineFields      = "created_at,public_metrics,entities"
	mentionFields       = "author_id,created_at,public_metrics"
	authorExpansion     = "author_id"
	expandedUserFields  = "username,name"
	listFields          = "description,follower_count,member_count,owner_id,created_at"
	ownedListFields     = "description,follower_count,member_count,created_at"
	defaultErrorMessage = "Request failed"
)

// Clamp returns v limited to [lo, hi]
func Clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// limit returns def when v is not provided, or v clamped to [lo, hi]
func limit(v *int, def, lo, hi int) int {
	if v == nil {
		return def
	}
	return Clamp(*v, lo, hi)
}

// request sends GET request to the X connection and maps the response
func request(ctx context.Context, path string, params map[string]string) (*XResult, error) {
	d, err := dispatch.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	res, err := d.Dispatch(ctx, Connection.Name, &dispatch.HTTPRequest{
		Method: dispatch.GET,
		Path:   dispatch.BuildPath(path, params),
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to dispatch %s", path)
	}
	if res == nil {
		return Failed(defaultErrorMessage), nil
	}

	if res.Success {
		var body any
		if res.Response != nil {
			body = res.Response.Body
		}
		return &XResult{Success: true, Data: body}, nil
	}

	return Failed(values.StringsCoalesce(res.ErrorMessage(), defaultErrorMessage)), nil
}
