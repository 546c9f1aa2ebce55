package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// tokenMarketColumns are refreshed on every upsert; identity and on-chain fields are
// only written when present.
var tokenMarketColumns = []string{
	"symbol", "name", "decimals", "logo_uri", "price", "market_cap", "fdv", "liquidity",
	"volume_24h", "price_change_24h", "holders", "updated_at",
}

// UpsertToken inserts the token or refreshes its market fields by address.
// MintedAt and the rugcheck fields are only overwritten when set on t.
func (s *Store) UpsertToken(ctx context.Context, t *Token) error {
	columns := append([]string(nil), tokenMarketColumns...)
	if t.MintedAt != nil {
		columns = append(columns, "minted_at")
	}
	if t.RugScore != nil {
		columns = append(columns, "rug_score", "rug_dangers")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(t).Error
	if err != nil {
		return fmt.Errorf("upsert token %s: %w", t.Address, err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, address string) (*Token, error) {
	var t Token
	if err := s.db.WithContext(ctx).Where("address = ?", address).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// TokenAddressesWithMintTime returns the addresses that already have an on-chain creation time.
func (s *Store) TokenAddressesWithMintTime(ctx context.Context, addresses []string) (map[string]bool, error) {
	out := make(map[string]bool, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}
	var known []string
	err := s.db.WithContext(ctx).Model(&Token{}).
		Where("address IN ? AND minted_at IS NOT NULL", addresses).
		Pluck("address", &known).Error
	if err != nil {
		return nil, err
	}
	for _, a := range known {
		out[a] = true
	}
	return out, nil
}

func (s *Store) ListTokensUpdatedSince(ctx context.Context, since time.Time) ([]Token, error) {
	var tokens []Token
	err := s.db.WithContext(ctx).
		Where("updated_at >= ?", since).
		Order("market_cap DESC").
		Find(&tokens).Error
	return tokens, err
}

// TopTokens returns the largest tokens by market cap.
func (s *Store) TopTokens(ctx context.Context, limit int) ([]Token, error) {
	var tokens []Token
	err := s.db.WithContext(ctx).Order("market_cap DESC").Limit(limit).Find(&tokens).Error
	return tokens, err
}

// LastAlert returns the most recent alert for a token, or ErrNotFound.
func (s *Store) LastAlert(ctx context.Context, tokenID uint) (*Alert, error) {
	var a Alert
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).Order("sent_at DESC").First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) CreateAlert(ctx context.Context, a *Alert) error {
	if a.SentAt.IsZero() {
		a.SentAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	var alerts []Alert
	err := s.db.WithContext(ctx).Preload("Token").Order("sent_at DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}
