package store

import (
	"time"

	"github.com/lib/pq"
)

// Token is a Solana token tracked from the Birdeye token list, keyed by mint address.
type Token struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Address        string     `gorm:"uniqueIndex;size:64;not null" json:"address"`
	Symbol         string     `gorm:"size:64" json:"symbol"`
	Name           string     `json:"name"`
	Decimals       int        `json:"decimals"`
	LogoURI        string     `json:"logo_uri"`
	Price          float64    `json:"price"`
	MarketCap      float64    `gorm:"index" json:"market_cap"`
	FDV            float64    `json:"fdv"`
	Liquidity      float64    `json:"liquidity"`
	Volume24h      float64    `gorm:"column:volume_24h" json:"volume_24h"`
	PriceChange24h float64    `gorm:"column:price_change_24h" json:"price_change_24h"`
	Holders        int64      `json:"holders"`
	RugScore       *float64   `json:"rug_score,omitempty"` // rugcheck normalised score, 0-100, higher is riskier
	RugDangers     *int       `json:"rug_dangers,omitempty"`
	MintedAt       *time.Time `gorm:"index" json:"minted_at,omitempty"` // on-chain creation time
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `gorm:"index" json:"updated_at"`
}

// Age returns how long ago the token was minted, or -1 when unknown.
func (t *Token) Age(now time.Time) time.Duration {
	if t.MintedAt == nil {
		return -1
	}
	return now.Sub(*t.MintedAt)
}

const (
	AlertTypeNewToken        = "new_token"
	AlertTypeMarketCapChange = "market_cap_change"
)

type Alert struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TokenID    uint      `gorm:"index;not null" json:"token_id"`
	Token      Token     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Type       string    `gorm:"size:32;index" json:"type"`
	MarketCap  float64   `json:"market_cap"` // market cap when the alert fired
	ChangePct  float64   `json:"change_pct"`
	Message    string    `gorm:"type:text" json:"message"`
	Recipients int       `json:"recipients"`
	SentAt     time.Time `gorm:"index" json:"sent_at"`
}

// User is a tracked Twitter account.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TwitterID       string    `gorm:"uniqueIndex;size:32;not null" json:"twitter_id"`
	Username        string    `gorm:"index;size:64" json:"username"`
	Name            string    `json:"name"`
	FollowersCount  int64     `json:"followers_count"`
	Tracked         bool      `gorm:"default:true;index" json:"tracked"`
	LastTweetID     string    `gorm:"size:32" json:"last_tweet_id"`
	// Set while a timeline backlog is only partly read. The next fetch resumes from
	// PageToken with the same since_id, and LastTweetID moves to PendingNewestID once it drains.
	PageToken       string    `gorm:"size:128" json:"-"`
	PendingNewestID string    `gorm:"size:32" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TimelineCursor is where the next timeline fetch for a user starts.
type TimelineCursor struct {
	LastTweetID     string
	PageToken       string
	PendingNewestID string
}

func (u *User) Cursor() TimelineCursor {
	return TimelineCursor{LastTweetID: u.LastTweetID, PageToken: u.PageToken, PendingNewestID: u.PendingNewestID}
}

type Tweet struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TweetID        string    `gorm:"uniqueIndex;size:32;not null" json:"tweet_id"`
	UserID         uint      `gorm:"index" json:"user_id"`
	AuthorUsername string    `gorm:"index;size:64" json:"author_username"`
	Text           string    `gorm:"type:text" json:"text"`
	PostedAt       time.Time `gorm:"index" json:"posted_at"`
	Likes          int64     `json:"likes"`
	Retweets       int64     `json:"retweets"`
	Replies        int64     `json:"replies"`
	Embedded       bool      `gorm:"default:false;index" json:"embedded"`
	CreatedAt      time.Time `json:"created_at"`
}

func (t *Tweet) URL() string {
	return "https://x.com/" + t.AuthorUsername + "/status/" + t.TweetID
}

// FilterThresholds are per-chat alert thresholds. A nil field is not applied.
type FilterThresholds struct {
	MinMarketCap *float64 `json:"min_market_cap"`
	MaxMarketCap *float64 `json:"max_market_cap"`
	MinLiquidity *float64 `json:"min_liquidity"`
	MinVolume24h *float64 `gorm:"column:min_volume_24h" json:"min_volume_24h"`
	MinHolders   *int64   `json:"min_holders"`
	MaxAgeHours  *float64 `json:"max_age_hours"`
}

type Filter struct {
	ID               uint  `gorm:"primaryKey" json:"id"`
	ChatID           int64 `gorm:"uniqueIndex;not null" json:"chat_id"`
	FilterThresholds `gorm:"embedded"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const (
	ProcessorPending     = "pending"
	ProcessorSummarized  = "summarized"
	ProcessorScripted    = "scripted"
	ProcessorIllustrated = "illustrated"
	ProcessorPublished   = "published"
	ProcessorFailed      = "failed"
)

// Processor is one run of the alpha summary / podcast pipeline.
type Processor struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RunID     string         `gorm:"uniqueIndex;size:36" json:"run_id"`
	AlphaName string         `gorm:"index" json:"alpha_name"`
	Status    string         `gorm:"size:16;index" json:"status"`
	Summary   string         `gorm:"type:text" json:"summary,omitempty"`
	Script    string         `gorm:"type:text" json:"script,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	TweetIDs  pq.StringArray `gorm:"type:text[]" json:"tweet_ids,omitempty"` // published thread
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	Attempts  int            `json:"attempts"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Chat is a Telegram chat that talked to the bot.
type Chat struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TelegramChatID   int64     `gorm:"uniqueIndex;not null" json:"telegram_chat_id"`
	Title            string    `json:"title"`
	Username         string    `json:"username"`
	AlertsEnabled    bool      `gorm:"default:false;index" json:"alerts_enabled"`
	SummariesEnabled bool      `gorm:"default:false;index" json:"summaries_enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const (
	SubscriptionAlerts    = "alerts"
	SubscriptionSummaries = "summaries"
)

// Scraper records one timeline collection pass for a user.
type Scraper struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	TweetCount int        `json:"tweet_count"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
}

// Alpha is a named group of tracked accounts summarized together.
type Alpha struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `json:"description"`
	Handles     pq.StringArray `gorm:"type:text[]" json:"handles"`
	CreatedAt   time.Time      `json:"created_at"`
}

func allModels() []any {
	return []any{&Token{}, &Alert{}, &User{}, &Tweet{}, &Filter{}, &Processor{}, &Chat{}, &Scraper{}, &Alpha{}}
}
