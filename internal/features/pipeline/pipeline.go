// Package pipeline turns an alpha group's recent tweets into a summary, a podcast script
// and a cover image, then publishes them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/llm"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/notify"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"

	"go.uber.org/zap"
)

const (
	defaultWindow   = 24 * time.Hour
	defaultBatch    = 10
	maxPromptTweets = 200
	tweetLimit      = 280
)

var ErrNoTweets = errors.New("no tweets in window")

type Store interface {
	GetAlpha(ctx context.Context, name string) (*store.Alpha, error)
	TweetsForAlpha(ctx context.Context, handles []string, since time.Time) ([]store.Tweet, error)
	CreateProcessor(ctx context.Context, alphaName string) (*store.Processor, error)
	PendingProcessors(ctx context.Context, limit int) ([]store.Processor, error)
	UpdateProcessor(ctx context.Context, p *store.Processor) error
	SubscribedChats(ctx context.Context, kind string) ([]store.Chat, error)
}

type ThreadPoster interface {
	PostThread(ctx context.Context, parts []string) ([]string, error)
}

type Options struct {
	Window time.Duration
	Batch  int
	Images llm.ImageGenerator // optional, stage is skipped without it
	Thread ThreadPoster       // optional
	Now    func() time.Time
}

type Service struct {
	store    Store
	llm      llm.Completer
	notifier notify.Notifier
	opts     Options
}

func NewService(s Store, c llm.Completer, n notify.Notifier, opts Options) *Service {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.Batch <= 0 {
		opts.Batch = defaultBatch
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{store: s, llm: c, notifier: n, opts: opts}
}

// Start queues a new run for the named alpha group.
func (s *Service) Start(ctx context.Context, alphaName string) (*store.Processor, error) {
	if _, err := s.store.GetAlpha(ctx, alphaName); err != nil {
		return nil, fmt.Errorf("alpha %q: %w", alphaName, err)
	}
	p, err := s.store.CreateProcessor(ctx, alphaName)
	if err != nil {
		return nil, err
	}
	log.LogInfo("Pipeline run started", zap.String("run", p.RunID), zap.String("alpha", alphaName))
	return p, nil
}

type Result struct {
	Checked   int      `json:"checked"`
	Advanced  int      `json:"advanced"`
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	Runs      []string `json:"runs"`
}

// Check moves every unfinished run forward by one stage. A stage error marks the run failed.
func (s *Service) Check(ctx context.Context) (*Result, error) {
	pending, err := s.store.PendingProcessors(ctx, s.opts.Batch)
	if err != nil {
		return nil, fmt.Errorf("load pending runs: %w", err)
	}
	res := &Result{Checked: len(pending)}
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p := &pending[i]
		res.Runs = append(res.Runs, p.RunID)
		from := p.Status
		stageErr := s.Advance(ctx, p)
		if stageErr != nil {
			p.Status = store.ProcessorFailed
			p.Error = stageErr.Error()
			res.Failed++
			log.LogError("Pipeline stage failed", zap.String("run", p.RunID), zap.String("stage", from), zap.Error(stageErr))
		} else {
			res.Advanced++
			if p.Status == store.ProcessorPublished {
				res.Published++
			}
		}
		p.Attempts++
		if err := s.store.UpdateProcessor(ctx, p); err != nil {
			log.LogError("Failed to save pipeline run", zap.String("run", p.RunID), zap.Error(err))
		}
	}
	return res, nil
}

// Advance runs the stage that follows p.Status and updates p in place.
func (s *Service) Advance(ctx context.Context, p *store.Processor) error {
	switch p.Status {
	case store.ProcessorPending:
		summary, err := s.summarize(ctx, p.AlphaName)
		if err != nil {
			return err
		}
		p.Summary = summary
		p.Status = store.ProcessorSummarized
	case store.ProcessorSummarized:
		script, err := s.llm.Complete(ctx, scriptSystem, "Summary:\n"+p.Summary)
		if err != nil {
			return fmt.Errorf("write script: %w", err)
		}
		p.Script = strings.TrimSpace(script)
		p.Status = store.ProcessorScripted
	case store.ProcessorScripted:
		if s.opts.Images != nil {
			url, err := s.opts.Images.GenerateImage(ctx, coverPrompt(p.AlphaName, p.Summary))
			if err != nil {
				return fmt.Errorf("generate cover: %w", err)
			}
			p.ImageURL = url
		}
		p.Status = store.ProcessorIllustrated
	case store.ProcessorIllustrated:
		if err := s.publish(ctx, p); err != nil {
			return err
		}
		p.Status = store.ProcessorPublished
	default:
		return fmt.Errorf("run %s has terminal status %q", p.RunID, p.Status)
	}
	log.LogInfo("Pipeline run advanced", zap.String("run", p.RunID), zap.String("status", p.Status))
	return nil
}

const summarySystem = `You summarize crypto Twitter for traders. Write 4-6 short bullet points covering
the tokens, narratives and calls that matter. No hashtags, no financial advice disclaimers.`

const scriptSystem = `You write a two-host crypto podcast script (HOST A and HOST B) of about
three minutes from the summary you are given. Keep it conversational and factual.`

func (s *Service) summarize(ctx context.Context, alphaName string) (string, error) {
	alpha, err := s.store.GetAlpha(ctx, alphaName)
	if err != nil {
		return "", fmt.Errorf("load alpha: %w", err)
	}
	since := s.opts.Now().UTC().Add(-s.opts.Window)
	tweets, err := s.store.TweetsForAlpha(ctx, alpha.Handles, since)
	if err != nil {
		return "", fmt.Errorf("load tweets: %w", err)
	}
	if len(tweets) == 0 {
		return "", ErrNoTweets
	}
	out, err := s.llm.Complete(ctx, summarySystem, tweetsPrompt(tweets))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func tweetsPrompt(tweets []store.Tweet) string {
	if len(tweets) > maxPromptTweets {
		tweets = tweets[:maxPromptTweets]
	}
	var sb strings.Builder
	for _, tw := range tweets {
		fmt.Fprintf(&sb, "@%s: %s\n", tw.AuthorUsername, strings.ReplaceAll(tw.Text, "\n", " "))
	}
	return sb.String()
}

func coverPrompt(alphaName, summary string) string {
	topic := format.Truncate(summary, 300)
	return fmt.Sprintf("Podcast cover art for a crypto show called %q, bold flat illustration, no text. Themes: %s", alphaName, topic)
}

func (s *Service) publish(ctx context.Context, p *store.Processor) error {
	if s.opts.Thread != nil && len(p.TweetIDs) == 0 {
		ids, err := s.opts.Thread.PostThread(ctx, SplitThread(p.Summary, tweetLimit))
		p.TweetIDs = ids
		if err != nil {
			return fmt.Errorf("post thread: %w", err)
		}
	}

	chats, err := s.store.SubscribedChats(ctx, store.SubscriptionSummaries)
	if err != nil {
		return fmt.Errorf("load summary subscribers: %w", err)
	}
	text := fmt.Sprintf("<b>%s daily summary</b>\n\n%s", format.Escape(p.AlphaName), format.Escape(p.Summary))
	for _, c := range chats {
		err := s.notifier.Notify(ctx, notify.Message{
			ChatID:   c.TelegramChatID,
			Kind:     "summary",
			Text:     text,
			PhotoURL: p.ImageURL,
		})
		if err != nil {
			log.LogWarn("Failed to send summary", zap.Int64("chatID", c.TelegramChatID), zap.Error(err))
		}
	}
	return nil
}

// SplitThread breaks text into tweet-sized parts on word boundaries and numbers them
// when more than one part is needed.
func SplitThread(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= limit {
		return []string{text}
	}
	const suffixRoom = 8 // " (10/12)"
	budget := limit - suffixRoom

	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, word := range strings.Fields(text) {
		for len([]rune(word)) > budget {
			flush()
			r := []rune(word)
			parts = append(parts, string(r[:budget]))
			word = string(r[budget:])
		}
		if cur.Len() > 0 && len([]rune(cur.String()))+1+len([]rune(word)) > budget {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	flush()
	for i := range parts {
		parts[i] = fmt.Sprintf("%s (%d/%d)", parts[i], i+1, len(parts))
	}
	return parts
}
