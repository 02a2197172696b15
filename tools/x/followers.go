package x

import (
	"context"
	"strconv"

	"github.com/effective-security/xmcp/dispatch"
)

// FollowsRequest is the input of x_get_followers and x_get_following
type FollowsRequest struct {
	UserID     string `json:"user_id" jsonschema:"description=The numeric ID of the user" validate:"required"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"description=Number of users to return (clamped to 1-1000),default=100"`
}

// GetFollowers returns a user's followers
func GetFollowers(ctx context.Context, req *FollowsRequest) (*XResult, error) {
	return follows(ctx, req, "followers")
}

// GetFollowing returns users a user is following
func GetFollowing(ctx context.Context, req *FollowsRequest) (*XResult, error) {
	return follows(ctx, req, "following")
}

func follows(ctx context.Context, req *FollowsRequest, rel string) (*XResult, error) {
	return request(ctx, "/users/"+dispatch.PathEscape(req.UserID)+"/"+rel, map[string]string{
		"max_results": strconv.Itoa(limit(req.MaxResults, 100, 1, 1000)),
		"user.fields": userFields,
	})
}
