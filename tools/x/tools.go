package x

import (
	"github.com/effective-security/xmcp/tools"
)

// Tools
var (
	GetUserTool           = tools.MustFunc("x_get_user", "Get a user by their ID", GetUser)
	GetUserByUsernameTool = tools.MustFunc("x_get_user_by_username", "Get a user by their username", GetUserByUsername)
	GetUsersTool          = tools.MustFunc("x_get_users", "Get multiple users by their IDs", GetUsers)
	GetTweetTool          = tools.MustFunc("x_get_tweet", "Get a tweet by its ID", GetTweet)
	GetTweetsTool         = tools.MustFunc("x_get_tweets", "Get multiple tweets by their IDs", GetTweets)
	GetUserTweetsTool     = tools.MustFunc("x_get_user_tweets", "Get a user's recent tweets", GetUserTweets)
	GetUserMentionsTool   = tools.MustFunc("x_get_user_mentions", "Get tweets mentioning a user", GetUserMentions)
	SearchRecentTool      = tools.MustFunc("x_search_recent", "Search recent tweets (last 7 days)", SearchRecent)
	CountRecentTool       = tools.MustFunc("x_count_recent", "Count tweets matching a query (last 7 days)", CountRecent)
	GetFollowersTool      = tools.MustFunc("x_get_followers", "Get a user's followers", GetFollowers)
	GetFollowingTool      = tools.MustFunc("x_get_following", "Get users a user is following", GetFollowing)
	GetListTool           = tools.MustFunc("x_get_list", "Get a list by its ID", GetList)
	GetListTweetsTool     = tools.MustFunc("x_get_list_tweets", "Get tweets from a list", GetListTweets)
	GetUserListsTool      = tools.MustFunc("x_get_user_lists", "Get lists owned by a user", GetUserLists)
)

// Tools returns all X tools: users, tweets, search, followers, lists
func Tools() []tools.IMCPTool {
	return []tools.IMCPTool{
		GetUserTool,
		GetUserByUsernameTool,
		GetUsersTool,
		GetTweetTool,
		GetTweetsTool,
		GetUserTweetsTool,
		GetUserMentionsTool,
		SearchRecentTool,
		CountRecentTool,
		GetFollowersTool,
		GetFollowingTool,
		GetListTool,
		GetListTweetsTool,
		GetUserListsTool,
	}
}
