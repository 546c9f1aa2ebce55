// Package reports builds on-demand market messages for the bot and API.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/cache"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/birdeye"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/defillama"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/elfa"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/moralis"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/rugcheck"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"go.uber.org/zap"
)

const (
	overviewTTL = 2 * time.Minute
	poolsTTL    = 10 * time.Minute
	trendingTTL = 5 * time.Minute
)

type PoolSource interface {
	Pools(ctx context.Context) ([]defillama.Pool, error)
}

type TrendSource interface {
	TrendingTokens(ctx context.Context, timeWindow string, page, pageSize int) ([]elfa.TrendingToken, error)
}

type OverviewSource interface {
	TokenOverview(ctx context.Context, address string) (*birdeye.TokenOverview, error)
}

type HolderSource interface {
	HolderStats(ctx context.Context, address string) (*moralis.HolderStats, error)
	RecentSwaps(ctx context.Context, address string, since time.Time, maxPages int) ([]moralis.Swap, error)
}

type RugSource interface {
	TokenSummary(ctx context.Context, mint string) (*rugcheck.Summary, error)
}

// Sources groups the upstream clients. Any of them may be nil; the matching report then
// returns ErrUnavailable or omits that section.
type Sources struct {
	Pools    PoolSource
	Trends   TrendSource
	Overview OverviewSource
	Holders  HolderSource
	Rug      RugSource
}

var ErrUnavailable = errors.New("report source not configured")

type Service struct {
	src   Sources
	cache cache.Cache
	now   func() time.Time
}

func NewService(src Sources, c cache.Cache) *Service {
	if c == nil {
		c = cache.NewMemory(256)
	}
	return &Service{src: src, cache: c, now: time.Now}
}

// DefaultYieldFilter is what the bot's yields button shows.
func DefaultYieldFilter() defillama.PoolFilter {
	return defillama.PoolFilter{Chain: "Solana", MinTVL: 1_000_000, MaxAPY: 500, Limit: 10}
}

// Yields lists the best DeFiLlama pools matching f.
func (s *Service) Yields(ctx context.Context, f defillama.PoolFilter) (string, error) {
	if s.src.Pools == nil {
		return "", ErrUnavailable
	}
	pools, err := cache.Remember(ctx, s.cache, "defillama:pools", poolsTTL, s.src.Pools.Pools)
	if err != nil {
		return "", fmt.Errorf("load pools: %w", err)
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	top := defillama.FilterPools(pools, f)

	var sb strings.Builder
	title := "Top yields"
	if f.Chain != "" {
		title += " on " + format.Escape(f.Chain)
	}
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", title)
	if len(top) == 0 {
		sb.WriteString("No pools match these filters.")
		return sb.String(), nil
	}
	for i, p := range top {
		fmt.Fprintf(&sb, "%d. <b>%s</b> on %s: <code>%.2f%%</code> APY, TVL %s",
			i+1, format.Escape(p.Symbol), format.Escape(p.Project), p.APYValue(), format.USD(p.TVLUsd))
		if p.Stablecoin {
			sb.WriteString(" (stable)")
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Trending lists tickers with the most social mentions over window.
func (s *Service) Trending(ctx context.Context, window string) (string, error) {
	if s.src.Trends == nil {
		return "", ErrUnavailable
	}
	if window == "" {
		window = "24h"
	}
	tokens, err := cache.Remember(ctx, s.cache, "elfa:trending:"+window, trendingTTL,
		func(ctx context.Context) ([]elfa.TrendingToken, error) {
			return s.src.Trends.TrendingTokens(ctx, window, 1, 10)
		})
	if err != nil {
		return "", fmt.Errorf("load trending tokens: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Trending on crypto Twitter (%s)</b>\n\n", format.Escape(window))
	if len(tokens) == 0 {
		sb.WriteString("Nothing trending right now.")
		return sb.String(), nil
	}
	for i, t := range tokens {
		fmt.Fprintf(&sb, "%d. <b>$%s</b>: %d mentions (%s)\n",
			i+1, format.Escape(strings.ToUpper(strings.TrimPrefix(t.Token, "$"))), t.CurrentCount, format.Pct(t.ChangePercent))
	}
	return sb.String(), nil
}

// TokenBrief combines the Birdeye overview with holder and risk data. Only the overview
// is required; the other sections are dropped when their source fails.
func (s *Service) TokenBrief(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.New("token address is required")
	}
	if s.src.Overview == nil {
		return "", ErrUnavailable
	}
	ov, err := cache.Remember(ctx, s.cache, "birdeye:overview:"+address, overviewTTL,
		func(ctx context.Context) (*birdeye.TokenOverview, error) {
			return s.src.Overview.TokenOverview(ctx, address)
		})
	if err != nil {
		return "", fmt.Errorf("token overview: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s ($%s)</b>\n<code>%s</code>\n\n", format.Escape(ov.Name), format.Escape(ov.Symbol), format.Escape(address))
	fmt.Fprintf(&sb, "Price: %s (%s 24h)\n", format.Price(ov.Price), format.Pct(ov.PriceChange24hPercent))
	fmt.Fprintf(&sb, "Market cap: %s\n", format.USD(ov.MarketCap))
	fmt.Fprintf(&sb, "Liquidity: %s\n", format.USD(ov.Liquidity))
	fmt.Fprintf(&sb, "Volume 24h: %s\n", format.USD(ov.Volume24hUSD))
	fmt.Fprintf(&sb, "Holders: %s\n", format.Compact(float64(ov.Holder)))

	if s.src.Holders != nil {
		if stats, err := s.src.Holders.HolderStats(ctx, address); err != nil {
			log.LogWarn("Holder stats unavailable", zap.String("address", address), zap.Error(err))
		} else {
			sb.WriteString(holderSection(stats))
		}
	}
	if s.src.Rug != nil {
		if sum, err := s.src.Rug.TokenSummary(ctx, address); err != nil {
			log.LogWarn("Rugcheck summary unavailable", zap.String("address", address), zap.Error(err))
		} else {
			sb.WriteString(rugSection(sum))
		}
	}
	return sb.String(), nil
}

func holderSection(st *moralis.HolderStats) string {
	var sb strings.Builder
	sb.WriteString("\n<b>Holders</b>\n")
	if ch, ok := st.HolderChange["24h"]; ok {
		fmt.Fprintf(&sb, "Change 24h: %+d (%s)\n", ch.Change, format.Pct(ch.ChangePercent))
	}
	if top, ok := st.HolderSupply["top10"]; ok {
		fmt.Fprintf(&sb, "Top 10 hold: %.1f%%\n", top.SupplyPercent)
	}
	return sb.String()
}

func rugSection(sum *rugcheck.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n<b>Rugcheck</b>: score %.0f", sum.ScoreNormalised)
	if n := sum.DangerCount(); n > 0 {
		fmt.Fprintf(&sb, ", %d danger", n)
	}
	sb.WriteByte('\n')
	for _, r := range sum.Risks {
		if r.Level != "danger" {
			continue
		}
		fmt.Fprintf(&sb, "- %s\n", format.Escape(r.Name))
	}
	return sb.String()
}
