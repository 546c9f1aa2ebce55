package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"
)

// UpsertChat records a chat the bot has seen, refreshing title and username.
func (s *Store) UpsertChat(ctx context.Context, c *Chat) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "username", "updated_at"}),
	}).Create(c).Error
	if err != nil {
		return fmt.Errorf("upsert chat %d: %w", c.TelegramChatID, err)
	}
	return nil
}

func subscriptionColumn(kind string) (string, error) {
	switch kind {
	case SubscriptionAlerts:
		return "alerts_enabled", nil
	case SubscriptionSummaries:
		return "summaries_enabled", nil
	default:
		return "", fmt.Errorf("unknown subscription kind %q", kind)
	}
}

// SetChatSubscription turns a subscription kind on or off, creating the chat row if needed.
func (s *Store) SetChatSubscription(ctx context.Context, telegramChatID int64, kind string, enabled bool) error {
	column, err := subscriptionColumn(kind)
	if err != nil {
		return err
	}
	chat := &Chat{TelegramChatID: telegramChatID}
	switch kind {
	case SubscriptionAlerts:
		chat.AlertsEnabled = enabled
	case SubscriptionSummaries:
		chat.SummariesEnabled = enabled
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{column, "updated_at"}),
	}).Create(chat).Error
}

func (s *Store) SubscribedChats(ctx context.Context, kind string) ([]Chat, error) {
	column, err := subscriptionColumn(kind)
	if err != nil {
		return nil, err
	}
	var chats []Chat
	err = s.db.WithContext(ctx).Where(column+" = ?", true).Find(&chats).Error
	return chats, err
}

// GetFilter returns the chat's thresholds, or ErrNotFound when none were saved.
func (s *Store) GetFilter(ctx context.Context, chatID int64) (*Filter, error) {
	var f Filter
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// FiltersForChats loads thresholds for many chats at once, keyed by chat id.
func (s *Store) FiltersForChats(ctx context.Context, chatIDs []int64) (map[int64]Filter, error) {
	out := make(map[int64]Filter, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	var filters []Filter
	if err := s.db.WithContext(ctx).Where("chat_id IN ?", chatIDs).Find(&filters).Error; err != nil {
		return nil, err
	}
	for _, f := range filters {
		out[f.ChatID] = f
	}
	return out, nil
}

// SaveFilter replaces every threshold of the chat's filter, nils included.
func (s *Store) SaveFilter(ctx context.Context, f *Filter) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_market_cap", "max_market_cap", "min_liquidity", "min_volume_24h",
			"min_holders", "max_age_hours", "updated_at",
		}),
	}).Create(f).Error
}
