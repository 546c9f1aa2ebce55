package alerts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/cache"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/filters"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/metrics"
	"github.com/uneeb123/alpha-hunter-sub000/internal/notify"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"

	"go.uber.org/zap"
)

type Store interface {
	ListTokensUpdatedSince(ctx context.Context, since time.Time) ([]store.Token, error)
	LastAlert(ctx context.Context, tokenID uint) (*store.Alert, error)
	CreateAlert(ctx context.Context, a *store.Alert) error
	SubscribedChats(ctx context.Context, kind string) ([]store.Chat, error)
	FiltersForChats(ctx context.Context, chatIDs []int64) (map[int64]store.Filter, error)
}

// Blocklist returns addresses that must never alert.
type Blocklist interface {
	Set() (map[string]bool, error)
}

type Options struct {
	Thresholds Thresholds
	Lookback   time.Duration // tokens updated within this window are evaluated
	Blocklist  Blocklist     // optional
	Cache      cache.Cache   // optional, claims each alert once across concurrent runs
	Fanout     notify.Notifier
	Now        func() time.Time
}

type Service struct {
	store    Store
	notifier notify.Notifier
	opts     Options
}

func NewService(s Store, n notify.Notifier, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 2 * time.Hour
	}
	if opts.Fanout == nil {
		opts.Fanout = notify.Nop{}
	}
	return &Service{store: s, notifier: n, opts: opts}
}

type Result struct {
	Evaluated int            `json:"evaluated"`
	Alerts    int            `json:"alerts"`
	Messages  int            `json:"messages"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	ByType    map[string]int `json:"by_type"`
}

// Run evaluates recently updated tokens and sends alerts to subscribed chats whose
// filters match. Per-token failures are logged and counted.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	now := s.opts.Now().UTC()
	tokens, err := s.store.ListTokensUpdatedSince(ctx, now.Add(-s.opts.Lookback))
	if err != nil {
		return nil, fmt.Errorf("load tokens: %w", err)
	}

	chats, err := s.store.SubscribedChats(ctx, store.SubscriptionAlerts)
	if err != nil {
		return nil, fmt.Errorf("load subscribed chats: %w", err)
	}
	chatIDs := make([]int64, len(chats))
	for i, c := range chats {
		chatIDs[i] = c.TelegramChatID
	}
	chatFilters, err := s.store.FiltersForChats(ctx, chatIDs)
	if err != nil {
		return nil, fmt.Errorf("load chat filters: %w", err)
	}

	blocked := map[string]bool{}
	if s.opts.Blocklist != nil {
		if blocked, err = s.opts.Blocklist.Set(); err != nil {
			log.LogWarn("Failed to load blocklist, alerting on all tokens", zap.Error(err))
			blocked = map[string]bool{}
		}
	}

	res := &Result{ByType: map[string]int{}}
	for i := range tokens {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tok := &tokens[i]
		res.Evaluated++
		if blocked[tok.Address] {
			res.Skipped++
			continue
		}

		sent, alertType, err := s.processToken(ctx, tok, chatIDs, chatFilters, now)
		if err != nil {
			res.Failed++
			log.LogError("Alert processing failed", zap.String("token", tok.Address), zap.Error(err))
			continue
		}
		if alertType == "" {
			res.Skipped++
			continue
		}
		res.Alerts++
		res.Messages += sent
		res.ByType[alertType]++
	}

	log.LogInfo("Alert run finished",
		zap.Int("evaluated", res.Evaluated),
		zap.Int("alerts", res.Alerts),
		zap.Int("messages", res.Messages),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (s *Service) processToken(ctx context.Context, tok *store.Token, chatIDs []int64, chatFilters map[int64]store.Filter, now time.Time) (int, string, error) {
	last, err := s.store.LastAlert(ctx, tok.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, "", fmt.Errorf("load last alert: %w", err)
	}

	d := Evaluate(tok, last, now, s.opts.Thresholds)
	if !d.ShouldAlert {
		log.LogDebug("No alert", zap.String("token", tok.Address), zap.String("reason", d.Reason))
		return 0, "", nil
	}

	if s.opts.Cache != nil {
		key := "alert:" + strconv.FormatUint(uint64(tok.ID), 10) + ":" + d.Type
		ttl := max(s.opts.Thresholds.Cooldown, time.Minute)
		claimed, err := s.opts.Cache.SetNX(ctx, key, []byte(now.Format(time.RFC3339)), ttl)
		if err != nil {
			log.LogWarn("Alert claim failed, sending anyway", zap.String("key", key), zap.Error(err))
		} else if !claimed {
			return 0, "", nil
		}
	}

	text := FormatAlert(tok, d, now)
	sent := 0
	for _, chatID := range chatIDs {
		if f, ok := chatFilters[chatID]; ok && !filters.MatchesAt(f.FilterThresholds, *tok, now) {
			continue
		}
		err := s.notifier.Notify(ctx, notify.Message{
			ChatID:     chatID,
			Kind:       d.Type,
			Text:       text,
			ButtonText: "Chart on Birdeye",
			ButtonURL:  ChartURL(tok.Address),
		})
		if err != nil {
			log.LogError("Failed to send alert", zap.Int64("chatID", chatID), zap.String("token", tok.Address), zap.Error(err))
			continue
		}
		sent++
	}

	alert := &store.Alert{
		TokenID:    tok.ID,
		Type:       d.Type,
		MarketCap:  tok.MarketCap,
		ChangePct:  d.ChangePct,
		Message:    text,
		Recipients: sent,
		SentAt:     now,
	}
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return sent, "", fmt.Errorf("record alert: %w", err)
	}
	metrics.ObserveAlert(d.Type)

	if err := s.opts.Fanout.Notify(ctx, notify.Message{Kind: d.Type, Text: text, Data: alertEvent{
		Address:   tok.Address,
		Symbol:    tok.Symbol,
		Type:      d.Type,
		MarketCap: tok.MarketCap,
		ChangePct: d.ChangePct,
		SentAt:    now,
	}}); err != nil {
		log.LogWarn("Alert fan-out failed", zap.String("token", tok.Address), zap.Error(err))
	}

	log.LogSuccess("Alert sent",
		zap.String("token", tok.Address),
		zap.String("type", d.Type),
		zap.Int("recipients", sent))
	return sent, d.Type, nil
}

type alertEvent struct {
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	Type      string    `json:"type"`
	MarketCap float64   `json:"market_cap"`
	ChangePct float64   `json:"change_pct"`
	SentAt    time.Time `json:"sent_at"`
}
