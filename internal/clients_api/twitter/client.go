package twitter

// Package twitter is a minimal Twitter/X API v2 client: user lookup, timelines and posting.
// Reads use the app bearer token; posts need an OAuth2 user-context token.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"
)

const DefaultBaseURL = "https://api.twitter.com/2"

var (
	ErrUserNotFound = errors.New("twitter: user not found")
	ErrNoUserToken  = errors.New("twitter: posting requires a user token")
)

type Client struct {
	http      *transport.Client
	userToken string
}

func TransportOptions(cfg config.TwitterConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	headers := map[string]string{}
	if cfg.BearerToken != "" {
		headers["Authorization"] = "Bearer " + cfg.BearerToken
	}
	return transport.Options{
		Provider: "twitter",
		BaseURL:  baseURL,
		Headers:  headers,
		Retry: retry.Options{
			MaxRetries: 3,
			BaseDelay:  5 * time.Second,
			MaxDelay:   60 * time.Second,
			Jitter:     true,
			RetryOn:    retry.IsRateLimited,
		},
	}
}

func New(cfg config.TwitterConfig) *Client {
	return NewWithTransport(transport.New(TransportOptions(cfg)), cfg.UserToken)
}

func NewWithTransport(t *transport.Client, userToken string) *Client {
	return &Client{http: t, userToken: userToken}
}

type PublicMetrics struct {
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	TweetCount     int64 `json:"tweet_count"`
	LikeCount      int64 `json:"like_count"`
	RetweetCount   int64 `json:"retweet_count"`
	ReplyCount     int64 `json:"reply_count"`
	QuoteCount     int64 `json:"quote_count"`
}

type User struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Username        string        `json:"username"`
	Description     string        `json:"description"`
	ProfileImageURL string        `json:"profile_image_url"`
	PublicMetrics   PublicMetrics `json:"public_metrics"`
}

type Tweet struct {
	ID             string        `json:"id"`
	Text           string        `json:"text"`
	AuthorID       string        `json:"author_id"`
	ConversationID string        `json:"conversation_id"`
	CreatedAt      time.Time     `json:"created_at"`
	PublicMetrics  PublicMetrics `json:"public_metrics"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type TweetsPage struct {
	Data []Tweet `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NewestID    string `json:"newest_id"`
		OldestID    string `json:"oldest_id"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

func (c *Client) UserByUsername(ctx context.Context, username string) (*User, error) {
	var resp struct {
		Data   *User      `json:"data"`
		Errors []apiError `json:"errors"`
	}
	query := url.Values{"user.fields": {"description,profile_image_url,public_metrics"}}
	if err := c.http.GetJSON(ctx, "/users/by/username/"+url.PathEscape(username), query, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up @%s: %w", username, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("@%s: %w", username, ErrUserNotFound)
	}
	return resp.Data, nil
}

// UserTweets returns one page of a user's timeline, newest first, excluding retweets.
// sinceID limits results to tweets newer than it; paginationToken continues a previous page.
func (c *Client) UserTweets(ctx context.Context, userID, sinceID, paginationToken string, maxResults int) (*TweetsPage, error) {
	if maxResults < 5 || maxResults > 100 {
		maxResults = 100
	}
	query := url.Values{
		"max_results":  {strconv.Itoa(maxResults)},
		"tweet.fields": {"created_at,author_id,conversation_id,public_metrics"},
		"exclude":      {"retweets"},
	}
	if sinceID != "" {
		query.Set("since_id", sinceID)
	}
	if paginationToken != "" {
		query.Set("pagination_token", paginationToken)
	}
	var page TweetsPage
	if err := c.http.GetJSON(ctx, "/users/"+url.PathEscape(userID)+"/tweets", query, &page); err != nil {
		return nil, fmt.Errorf("failed to get tweets for user %s: %w", userID, err)
	}
	for i := range page.Data {
		if page.Data[i].AuthorID == "" {
			page.Data[i].AuthorID = userID
		}
	}
	return &page, nil
}

type postTweetRequest struct {
	Text  string     `json:"text"`
	Reply *replySpec `json:"reply,omitempty"`
}

type replySpec struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

// PostTweet publishes text, optionally as a reply, and returns the new tweet id.
func (c *Client) PostTweet(ctx context.Context, text, replyTo string) (string, error) {
	if c.userToken == "" {
		return "", ErrNoUserToken
	}
	body := postTweetRequest{Text: text}
	if replyTo != "" {
		body.Reply = &replySpec{InReplyToTweetID: replyTo}
	}
	var resp struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	err := c.http.DoJSON(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/tweets",
		Body:   body,
		Header: http.Header{"Authorization": {"Bearer " + c.userToken}},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to post tweet: %w", err)
	}
	return resp.Data.ID, nil
}

// PostThread posts parts as a reply chain and returns the ids in order.
func (c *Client) PostThread(ctx context.Context, parts []string) ([]string, error) {
	ids := make([]string, 0, len(parts))
	replyTo := ""
	for i, part := range parts {
		id, err := c.PostTweet(ctx, part, replyTo)
		if err != nil {
			return ids, fmt.Errorf("thread part %d: %w", i+1, err)
		}
		ids = append(ids, id)
		replyTo = id
	}
	return ids, nil
}
