package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/moralis"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
)

// HotThresholds mark a token as hot when enough distinct wallets traded it recently.
type HotThresholds struct {
	MinSwaps   int
	MinTraders int
}

func DefaultHotThresholds() HotThresholds {
	return HotThresholds{MinSwaps: 50, MinTraders: 20}
}

// IsHot reports whether the swap summary clears both thresholds.
func IsHot(sum moralis.SwapSummary, th HotThresholds) bool {
	return sum.Buys+sum.Sells >= th.MinSwaps && sum.Traders >= th.MinTraders
}

// Flow summarizes buy and sell pressure for a token over window.
func (s *Service) Flow(ctx context.Context, address string, window time.Duration) (string, error) {
	if s.src.Holders == nil {
		return "", ErrUnavailable
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	swaps, err := s.src.Holders.RecentSwaps(ctx, address, s.now().Add(-window), 5)
	if err != nil && len(swaps) == 0 {
		return "", fmt.Errorf("load swaps: %w", err)
	}
	sum := moralis.Summarize(swaps)
	return FlowReport(format.ShortAddress(address), window, sum, IsHot(sum, DefaultHotThresholds())), nil
}

// FlowReport renders buy/sell counts and the count and value ratios.
func FlowReport(label string, window time.Duration, sum moralis.SwapSummary, hot bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s flow, last %s</b>", format.Escape(label), format.Age(window))
	if hot {
		sb.WriteString(" 🔥")
	}
	sb.WriteString("\n\n<blockquote>")
	fmt.Fprintf(&sb, "Buys: %d (%s)\n", sum.Buys, format.USD(sum.BuyVolume))
	fmt.Fprintf(&sb, "Sells: %d (%s)\n", sum.Sells, format.USD(sum.SellVolume))
	fmt.Fprintf(&sb, "Traders: %d\n\n", sum.Traders)
	fmt.Fprintf(&sb, "B/S = %s\n", ratio(float64(sum.Buys), float64(sum.Sells)))
	fmt.Fprintf(&sb, "B/S$ = %s", ratio(sum.BuyVolume, sum.SellVolume))
	sb.WriteString("</blockquote>")
	if sum.LargestSell != nil {
		fmt.Fprintf(&sb, "\nLargest sell: %s by <code>%s</code>", format.USD(sum.LargestSell.TotalValueUSD), format.ShortAddress(sum.LargestSell.WalletAddress))
	}
	return sb.String()
}

func ratio(a, b float64) string {
	switch {
	case b > 0:
		return fmt.Sprintf("<code>%.2f</code>", a/b)
	case a > 0:
		return "∞"
	default:
		return "<code>0.00</code>"
	}
}
