package x

import (
	"context"
	"strings"

	"github.com/effective-security/xmcp/dispatch"
)

// UserRequest is the input of x_get_user
type UserRequest struct {
	UserID string `json:"user_id" jsonschema:"description=The numeric ID of the user (e.g. 12345678)" validate:"required"`
}

// UsernameRequest is the input of x_get_user_by_username
type UsernameRequest struct {
	Username string `json:"username" jsonschema:"description=The username without @ (e.g. xdevelopers)" validate:"required"`
}

// UsersRequest is the input of x_get_users
type UsersRequest struct {
	UserIDs []string `json:"user_ids" jsonschema:"description=List of numeric user IDs (max 100)" validate:"required"`
}

// GetUser returns a user's profile by numeric ID
func GetUser(ctx context.Context, req *UserRequest) (*XResult, error) {
	return request(ctx, "/users/"+dispatch.PathEscape(req.UserID), map[string]string{
		"user.fields": userFields,
	})
}

// GetUserByUsername returns a user's profile by username
func GetUserByUsername(ctx context.Context, req *UsernameRequest) (*XResult, error) {
	username := strings.TrimPrefix(req.Username, "@")
	return request(ctx, "/users/by/username/"+dispatch.PathEscape(username), map[string]string{
		"user.fields": userFields,
	})
}

// GetUsers returns multiple users by numeric IDs
func GetUsers(ctx context.Context, req *UsersRequest) (*XResult, error) {
	if len(req.UserIDs) == 0 {
		return Failed("At least one user ID is required"), nil
	}
	if len(req.UserIDs) > MaxIDs {
		return Failed("Maximum 100 user IDs allowed"), nil
	}
	return request(ctx, "/users", map[string]string{
		"ids":         strings.Join(req.UserIDs, ","),
		"user.fields": userFields,
	})
}
