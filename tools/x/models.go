package x

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// XResult is the generic result of X tools
type XResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed returns unsuccessful result
func Failed(msg string) *XResult {
	return &XResult{Error: msg}
}

// Decode decodes the "data" field of the API response into out,
// which is a *User, *Tweet, *List or a slice of them
func (r *XResult) Decode(out any) error {
	return r.DecodeField("data", out)
}

// DecodeField decodes a top level field of the API response,
// for example "includes" or "meta"
func (r *XResult) DecodeField(field string, out any) error {
	if !r.Success {
		return errors.Newf("unsuccessful result: %s", r.Error)
	}
	body, ok := r.Data.(map[string]any)
	if !ok {
		return errors.New("unexpected response body")
	}
	val, ok := body[field]
	if !ok {
		return errors.Newf("response has no %q field", field)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if err = dec.Decode(val); err != nil {
		return errors.Wrapf(err, "failed to decode %s", field)
	}
	return nil
}

// User is X user profile
type User struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	PublicMetrics map[string]int `json:"public_metrics,omitempty"`
}

// Tweet is X post
type Tweet struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	AuthorID      string         `json:"author_id,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	PublicMetrics map[string]int `json:"public_metrics,omitempty"`
}

// List is X list
type List struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	FollowerCount int    `json:"follower_count,omitempty"`
	MemberCount   int    `json:"member_count,omitempty"`
	OwnerID       string `json:"owner_id,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Count is a bucket of the recent tweets count
type Count struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	TweetCount int    `json:"tweet_count"`
}

// Includes are expanded objects of the response
type Includes struct {
	Users  []User  `json:"users,omitempty"`
	Tweets []Tweet `json:"tweets,omitempty"`
}
