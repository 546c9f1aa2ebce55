// Package tweets ingests timelines of tracked accounts and embeds them for search.
package tweets

import (
	"context"
	"fmt"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/twitter"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"

	"go.uber.org/zap"
)

const defaultMaxPages = 5

type Timeline interface {
	UserByUsername(ctx context.Context, username string) (*twitter.User, error)
	UserTweets(ctx context.Context, userID, sinceID, paginationToken string, maxResults int) (*twitter.TweetsPage, error)
}

type FetchStore interface {
	UpsertUser(ctx context.Context, u *store.User) error
	ListUsers(ctx context.Context, trackedOnly bool) ([]store.User, error)
	SaveTimelineCursor(ctx context.Context, userID uint, c store.TimelineCursor) error
	UpsertTweets(ctx context.Context, tweets []store.Tweet) (int, error)
	CreateScraper(ctx context.Context, userID uint) (*store.Scraper, error)
	FinishScraper(ctx context.Context, sc *store.Scraper, count int, runErr error) error
}

type Fetcher struct {
	twitter  Timeline
	store    FetchStore
	maxPages int
}

// NewFetcher pages at most maxPages of each timeline per run (0 uses the default).
func NewFetcher(t Timeline, s FetchStore, maxPages int) *Fetcher {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Fetcher{twitter: t, store: s, maxPages: maxPages}
}

type FetchResult struct {
	Users  int `json:"users"`
	Tweets int `json:"tweets"`
	New    int `json:"new"`
	Failed int `json:"failed"`
}

// Track looks up a handle and starts tracking it.
func (f *Fetcher) Track(ctx context.Context, username string) (*store.User, error) {
	tu, err := f.twitter.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	u := &store.User{
		TwitterID:      tu.ID,
		Username:       tu.Username,
		Name:           tu.Name,
		FollowersCount: tu.PublicMetrics.FollowersCount,
		Tracked:        true,
	}
	if err := f.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Fetch pulls new tweets for every tracked user. A failing user is logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context) (*FetchResult, error) {
	users, err := f.store.ListUsers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list tracked users: %w", err)
	}

	res := &FetchResult{Users: len(users)}
	for i := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		u := &users[i]
		fetched, inserted, err := f.fetchUser(ctx, u)
		res.Tweets += fetched
		res.New += inserted
		if err != nil {
			res.Failed++
			log.LogError("Tweet fetch failed", zap.String("user", u.Username), zap.Error(err))
		}
	}

	log.LogSuccess("Tweet fetch finished",
		zap.Int("users", res.Users),
		zap.Int("tweets", res.Tweets),
		zap.Int("new", res.New),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (f *Fetcher) fetchUser(ctx context.Context, u *store.User) (fetched, inserted int, err error) {
	sc, err := f.store.CreateScraper(ctx, u.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("create scraper: %w", err)
	}
	defer func() {
		if ferr := f.store.FinishScraper(ctx, sc, inserted, err); ferr != nil {
			log.LogWarn("Failed to finish scraper", zap.Uint("scraper", sc.ID), zap.Error(ferr))
		}
	}()

	// A resumed backlog keeps the newest id seen when it started.
	var rows []store.Tweet
	token := u.PageToken
	newest := u.PendingNewestID
	for page := 0; page < f.maxPages; page++ {
		resp, perr := f.twitter.UserTweets(ctx, u.TwitterID, u.LastTweetID, token, 100)
		if perr != nil {
			err = fmt.Errorf("timeline page %d: %w", page+1, perr)
			break
		}
		if newest == "" {
			newest = resp.Meta.NewestID
		}
		for _, tw := range resp.Data {
			rows = append(rows, FromTwitter(tw, u))
		}
		token = resp.Meta.NextToken
		if len(resp.Data) == 0 {
			token = ""
		}
		if token == "" {
			break
		}
	}
	fetched = len(rows)

	// Keep whatever arrived before a page failure.
	n, uerr := f.store.UpsertTweets(ctx, rows)
	if uerr != nil {
		return fetched, 0, uerr
	}
	inserted = n
	if err != nil {
		return fetched, inserted, err
	}

	next := store.TimelineCursor{LastTweetID: u.LastTweetID}
	if token != "" {
		// Page cap reached with more to read.
		next.PageToken = token
		next.PendingNewestID = newest
	} else if newest != "" {
		next.LastTweetID = newest
	}
	if next != u.Cursor() {
		if serr := f.store.SaveTimelineCursor(ctx, u.ID, next); serr != nil {
			return fetched, inserted, fmt.Errorf("save timeline cursor: %w", serr)
		}
		u.LastTweetID, u.PageToken, u.PendingNewestID = next.LastTweetID, next.PageToken, next.PendingNewestID
	}
	log.LogDebug("Fetched timeline", zap.String("user", u.Username), zap.Int("fetched", fetched), zap.Int("new", inserted), zap.Bool("backlog", next.PageToken != ""))
	return fetched, inserted, nil
}

// FromTwitter maps an API tweet onto the stored row.
func FromTwitter(tw twitter.Tweet, u *store.User) store.Tweet {
	return store.Tweet{
		TweetID:        tw.ID,
		UserID:         u.ID,
		AuthorUsername: u.Username,
		Text:           tw.Text,
		PostedAt:       tw.CreatedAt.UTC(),
		Likes:          tw.PublicMetrics.LikeCount,
		Retweets:       tw.PublicMetrics.RetweetCount,
		Replies:        tw.PublicMetrics.ReplyCount,
	}
}
