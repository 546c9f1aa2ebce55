// Package tokens refreshes the token table from Birdeye's token list.
package tokens

import (
	"context"
	"fmt"

	"github.com/uneeb123/alpha-hunter-sub000/internal/archive"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/birdeye"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/rugcheck"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"

	"go.uber.org/zap"
)

type Lister interface {
	ListAllTokens(ctx context.Context, opts birdeye.ListOptions) (*birdeye.TokenListResult, error)
	TokenCreationInfo(ctx context.Context, address string) (*birdeye.CreationInfo, error)
}

type RugChecker interface {
	TokenSummary(ctx context.Context, mint string) (*rugcheck.Summary, error)
}

type Store interface {
	TokenAddressesWithMintTime(ctx context.Context, addresses []string) (map[string]bool, error)
	UpsertToken(ctx context.Context, t *store.Token) error
}

type Options struct {
	PageSize int
	MaxPages int
	Filters  birdeye.ListFilters
	Archive  archive.Store // optional
	Rug      RugChecker    // optional
}

type Updater struct {
	birdeye Lister
	store   Store
	opts    Options
}

func NewUpdater(b Lister, s Store, opts Options) *Updater {
	return &Updater{birdeye: b, store: s, opts: opts}
}

type Result struct {
	Fetched  int `json:"fetched"`
	Pages    int `json:"pages"`
	Upserted int `json:"upserted"`
	Minted   int `json:"minted"`
	RugScore int `json:"rug_scored"`
	Failed   int `json:"failed"`
}

// Update pulls every listed token and upserts it by address. Creation time and rugcheck
// score are only looked up for tokens that have no stored mint time yet.
func (u *Updater) Update(ctx context.Context) (*Result, error) {
	list, err := u.birdeye.ListAllTokens(ctx, birdeye.ListOptions{
		PageSize: u.opts.PageSize,
		MaxPages: u.opts.MaxPages,
		Filters:  u.opts.Filters,
		OnPage: func(offset int, page *birdeye.TokenListPage) {
			name := fmt.Sprintf("tokenlist_offset_%d", offset)
			if _, err := archive.ArchiveJSON(ctx, u.opts.Archive, "birdeye", name, page.Raw); err != nil {
				log.LogWarn("Failed to archive token list page", zap.Int("offset", offset), zap.Error(err))
			}
		},
	})
	if err != nil && (list == nil || len(list.Items) == 0) {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	if err != nil {
		log.LogWarn("Token list incomplete, continuing with fetched pages", zap.Int("items", len(list.Items)), zap.Error(err))
	}

	res := &Result{Fetched: len(list.Items), Pages: list.Pages}
	items := dedupe(list.Items)
	addresses := make([]string, len(items))
	for i, it := range items {
		addresses[i] = it.Address
	}
	known, err := u.store.TokenAddressesWithMintTime(ctx, addresses)
	if err != nil {
		return res, fmt.Errorf("load known tokens: %w", err)
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tok := FromListItem(it)
		if !known[it.Address] {
			if u.enrich(ctx, &tok, res) {
				res.Minted++
			}
		}
		if err := u.store.UpsertToken(ctx, &tok); err != nil {
			res.Failed++
			log.LogError("Failed to upsert token", zap.String("address", it.Address), zap.Error(err))
			continue
		}
		res.Upserted++
	}

	log.LogSuccess("Token update finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("upserted", res.Upserted),
		zap.Int("minted", res.Minted),
		zap.Int("failed", res.Failed))
	return res, nil
}

// enrich fills mint time and rug score. Both lookups are best effort.
func (u *Updater) enrich(ctx context.Context, tok *store.Token, res *Result) bool {
	found := false
	info, err := u.birdeye.TokenCreationInfo(ctx, tok.Address)
	switch {
	case err != nil:
		log.LogWarn("Creation info unavailable", zap.String("address", tok.Address), zap.Error(err))
	case !info.CreatedAt().IsZero():
		minted := info.CreatedAt()
		tok.MintedAt = &minted
		found = true
	}

	if u.opts.Rug == nil {
		return found
	}
	summary, err := u.opts.Rug.TokenSummary(ctx, tok.Address)
	if err != nil {
		log.LogDebug("Rugcheck summary unavailable", zap.String("address", tok.Address), zap.Error(err))
		return found
	}
	score := summary.ScoreNormalised
	dangers := summary.DangerCount()
	tok.RugScore = &score
	tok.RugDangers = &dangers
	res.RugScore++
	return found
}

// FromListItem maps a Birdeye list row onto the token model.
func FromListItem(it birdeye.TokenListItem) store.Token {
	t := store.Token{
		Address:   it.Address,
		Symbol:    it.Symbol,
		Name:      it.Name,
		Decimals:  it.Decimals,
		LogoURI:   it.LogoURI,
		Price:     it.Price,
		MarketCap: it.MarketCap,
		FDV:       it.FDV,
		Liquidity: it.Liquidity,
		Volume24h: it.Volume24hUSD,
		Holders:   it.Holder,
	}
	if it.PriceChange24hPercent != nil {
		t.PriceChange24h = *it.PriceChange24hPercent
	}
	return t
}

func dedupe(items []birdeye.TokenListItem) []birdeye.TokenListItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if it.Address == "" {
			continue
		}
		if _, ok := seen[it.Address]; ok {
			continue
		}
		seen[it.Address] = struct{}{}
		out = append(out, it)
	}
	return out
}

