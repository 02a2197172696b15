package x

import (
	"context"
	"strconv"
)

// SearchRequest is the input of x_search_recent
type SearchRequest struct {
	Query      string `json:"query" jsonschema:"description=Search query (supports X search operators)" validate:"required"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"description=Number of results (clamped to 10-100),default=10"`
}

// CountRequest is the input of x_count_recent
type CountRequest struct {
	Query string `json:"query" jsonschema:"description=Search query (supports X search operators)" validate:"required"`
}

// SearchRecent searches tweets from the last 7 days
func SearchRecent(ctx context.Context, req *SearchRequest) (*XResult, error) {
	return request(ctx, "/tweets/search/recent", map[string]string{
		"query":        req.Query,
		"max_results":  strconv.Itoa(limit(req.MaxResults, 10, 10, 100)),
		"tweet.fields": tweetFields,
		"expansions":   authorExpansion,
		"user.fields":  expandedUserFields,
	})
}

// CountRecent counts tweets matching a query from the last 7 days
func CountRecent(ctx context.Context, req *CountRequest) (*XResult, error) {
	return request(ctx, "/tweets/counts/recent", map[string]string{
		"query": req.Query,
	})
}
