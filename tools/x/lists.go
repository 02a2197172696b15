package x

import (
	"context"
	"strconv"

	"github.com/effective-security/xmcp/dispatch"
)

// ListRequest is the input of x_get_list
type ListRequest struct {
	ListID string `json:"list_id" jsonschema:"description=The numeric ID of the list" validate:"required"`
}

// ListTweetsRequest is the input of x_get_list_tweets
type ListTweetsRequest struct {
	ListID     string `json:"list_id" jsonschema:"description=The numeric ID of the list" validate:"required"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"description=Number of tweets to return (clamped to 1-100),default=10"`
}

// UserListsRequest is the input of x_get_user_lists
type UserListsRequest struct {
	UserID     string `json:"user_id" jsonschema:"description=The numeric ID of the user" validate:"required"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"description=Number of lists to return (clamped to 1-100),default=100"`
}

// GetList returns details about a list
func GetList(ctx context.Context, req *ListRequest) (*XResult, error) {
	return request(ctx, "/lists/"+dispatch.PathEscape(req.ListID), map[string]string{
		"list.fields": listFields,
	})
}

// GetListTweets returns recent tweets from a list
func GetListTweets(ctx context.Context, req *ListTweetsRequest) (*XResult, error) {
	return request(ctx, "/lists/"+dispatch.PathEscape(req.ListID)+"/tweets", map[string]string{
		"max_results":  strconv.Itoa(limit(req.MaxResults, 10, 1, 100)),
		"tweet.fields": mentionFields,
		"expansions":   authorExpansion,
		"user.fields":  expandedUserFields,
	})
}

// GetUserLists returns lists owned by a user
func GetUserLists(ctx context.Context, req *UserListsRequest) (*XResult, error) {
	return request(ctx, "/users/"+dispatch.PathEscape(req.UserID)+"/owned_lists", map[string]string{
		"max_results": strconv.Itoa(limit(req.MaxResults, 100, 1, 100)),
		"list.fields": ownedListFields,
	})
}
