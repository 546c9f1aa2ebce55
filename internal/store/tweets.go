package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tweetBatchSize = 100

// UpsertUser inserts or refreshes a tracked account by Twitter id. The timeline cursor and
// Tracked are left alone on conflict.
func (s *Store) UpsertUser(ctx context.Context, u *User) error {
	u.Username = strings.ToLower(u.Username)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "twitter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "name", "followers_count", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.Username, err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, trackedOnly bool) ([]User, error) {
	var users []User
	q := s.db.WithContext(ctx).Order("username")
	if trackedOnly {
		q = q.Where("tracked = ?", true)
	}
	err := q.Find(&users).Error
	return users, err
}

func (s *Store) SaveTimelineCursor(ctx context.Context, userID uint, c TimelineCursor) error {
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"last_tweet_id":     c.LastTweetID,
		"page_token":        c.PageToken,
		"pending_newest_id": c.PendingNewestID,
	}).Error
}

// UpsertTweets inserts tweets in batches, skipping ids that already exist.
// It returns the number of new rows.
func (s *Store) UpsertTweets(ctx context.Context, tweets []Tweet) (int, error) {
	if len(tweets) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tweet_id"}}, DoNothing: true}).
		CreateInBatches(tweets, tweetBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("upsert tweets: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) TweetsWithoutEmbedding(ctx context.Context, limit int) ([]Tweet, error) {
	var tweets []Tweet
	q := s.db.WithContext(ctx).Where("embedded = ?", false).Order("posted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&tweets).Error
	return tweets, err
}

func (s *Store) MarkEmbedded(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Tweet{}).Where("id IN ?", ids).Update("embedded", true).Error
}

// TweetsForAlpha returns tweets by any of handles posted since the given time, newest first.
func (s *Store) TweetsForAlpha(ctx context.Context, handles []string, since time.Time) ([]Tweet, error) {
	lower := make([]string, len(handles))
	for i, h := range handles {
		lower[i] = strings.ToLower(strings.TrimPrefix(h, "@"))
	}
	var tweets []Tweet
	err := s.db.WithContext(ctx).
		Where("author_username IN ? AND posted_at >= ?", lower, since).
		Order("posted_at DESC").
		Find(&tweets).Error
	return tweets, err
}

// TweetsByTweetIDs loads tweets by their Twitter ids, in no particular order.
func (s *Store) TweetsByTweetIDs(ctx context.Context, tweetIDs []string) ([]Tweet, error) {
	if len(tweetIDs) == 0 {
		return nil, nil
	}
	var tweets []Tweet
	err := s.db.WithContext(ctx).Where("tweet_id IN ?", tweetIDs).Find(&tweets).Error
	return tweets, err
}

func (s *Store) CreateScraper(ctx context.Context, userID uint) (*Scraper, error) {
	sc := &Scraper{UserID: userID, StartedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(sc).Error; err != nil {
		return nil, fmt.Errorf("create scraper: %w", err)
	}
	return sc, nil
}

// FinishScraper stamps the scraper with its result. runErr may be nil.
func (s *Store) FinishScraper(ctx context.Context, sc *Scraper, count int, runErr error) error {
	now := time.Now().UTC()
	sc.FinishedAt = &now
	sc.TweetCount = count
	if runErr != nil {
		sc.Error = runErr.Error()
	}
	return s.db.WithContext(ctx).Model(sc).Updates(map[string]any{
		"finished_at": sc.FinishedAt,
		"tweet_count": sc.TweetCount,
		"error":       sc.Error,
	}).Error
}

func (s *Store) ListAlphas(ctx context.Context) ([]Alpha, error) {
	var alphas []Alpha
	err := s.db.WithContext(ctx).Order("name").Find(&alphas).Error
	return alphas, err
}

func (s *Store) GetAlpha(ctx context.Context, name string) (*Alpha, error) {
	var a Alpha
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) SaveAlpha(ctx context.Context, a *Alpha) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "handles"}),
	}).Create(a).Error
}

// Transaction runs fn inside a database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
