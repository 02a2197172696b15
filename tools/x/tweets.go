package x

import (
	"context"
	"strconv"
	"strings"

	"github.com/effective-security/xmcp/dispatch"
)

// TweetRequest is the input of x_get_tweet
type TweetRequest struct {
	TweetID string `json:"tweet_id" jsonschema:"description=The numeric ID of the tweet" validate:"required"`
}

// TweetsRequest is the input of x_get_tweets
type TweetsRequest struct {
	TweetIDs []string `json:"tweet_ids" jsonschema:"description=List of numeric tweet IDs (max 100)" validate:"required"`
}

// TimelineRequest is the input of x_get_user_tweets and x_get_user_mentions
type TimelineRequest struct {
	UserID     string `json:"user_id" jsonschema:"description=The numeric ID of the user" validate:"required"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"description=Number of tweets to return (clamped to 10-100),default=10"`
}

// GetTweet returns a single tweet by ID
func GetTweet(ctx context.Context, req *TweetRequest) (*XResult, error) {
	return request(ctx, "/tweets/"+dispatch.PathEscape(req.TweetID), map[string]string{
		"tweet.fields": tweetFields,
		"expansions":   authorExpansion,
		"user.fields":  expandedUserFields,
	})
}

// GetTweets returns multiple tweets by IDs
func GetTweets(ctx context.Context, req *TweetsRequest) (*XResult, error) {
	if len(req.TweetIDs) == 0 {
		return Failed("At least one tweet ID is required"), nil
	}
	if len(req.TweetIDs) > MaxIDs {
		return Failed("Maximum 100 tweet IDs allowed"), nil
	}
	return request(ctx, "/tweets", map[string]string{
		"ids":          strings.Join(req.TweetIDs, ","),
		"tweet.fields": tweetFields,
		"expansions":   authorExpansion,
		"user.fields":  expandedUserFields,
	})
}

// GetUserTweets returns a user's recent tweets
func GetUserTweets(ctx context.Context, req *TimelineRequest) (*XResult, error) {
	return request(ctx, "/users/"+dispatch.PathEscape(req.UserID)+"/tweets", map[string]string{
		"max_results":  strconv.Itoa(limit(req.MaxResults, 10, 10, 100)),
		"tweet.fields": timelineFields,
	})
}

// GetUserMentions returns recent tweets mentioning a user
func GetUserMentions(ctx context.Context, req *TimelineRequest) (*XResult, error) {
	return request(ctx, "/users/"+dispatch.PathEscape(req.UserID)+"/mentions", map[string]string{
		"max_results":  strconv.Itoa(limit(req.MaxResults, 10, 10, 100)),
		"tweet.fields": mentionFields,
		"expansions":   authorExpansion,
		"user.fields":  expandedUserFields,
	})
}
