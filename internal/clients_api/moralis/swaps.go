package moralis

import (
	"context"
	"fmt"
	"time"
)

// SwapSummary aggregates buy/sell flow over a set of swaps.
type SwapSummary struct {
	Buys        int
	Sells       int
	BuyVolume   float64
	SellVolume  float64
	Traders     int
	LargestSell *Swap
	LargestBuy  *Swap
}

func (s SwapSummary) NetFlow() float64 { return s.BuyVolume - s.SellVolume }

func Summarize(swaps []Swap) SwapSummary {
	var sum SwapSummary
	wallets := make(map[string]struct{})
	for i := range swaps {
		sw := &swaps[i]
		wallets[sw.WalletAddress] = struct{}{}
		switch sw.TransactionType {
		case SwapTypeBuy:
			sum.Buys++
			sum.BuyVolume += sw.TotalValueUSD
			if sum.LargestBuy == nil || sw.TotalValueUSD > sum.LargestBuy.TotalValueUSD {
				sum.LargestBuy = sw
			}
		case SwapTypeSell:
			sum.Sells++
			sum.SellVolume += sw.TotalValueUSD
			if sum.LargestSell == nil || sw.TotalValueUSD > sum.LargestSell.TotalValueUSD {
				sum.LargestSell = sw
			}
		}
	}
	sum.Traders = len(wallets)
	return sum
}

// RecentSwaps pages back through swaps until one older than since is seen or maxPages is hit.
func (c *Client) RecentSwaps(ctx context.Context, address string, since time.Time, maxPages int) ([]Swap, error) {
	if maxPages <= 0 {
		maxPages = 5
	}
	var out []Swap
	cursor := ""
	for page := 0; page < maxPages; page++ {
		resp, err := c.TokenSwaps(ctx, address, cursor, 100)
		if err != nil {
			return out, fmt.Errorf("swaps page %d: %w", page+1, err)
		}
		for _, sw := range resp.Result {
			if sw.BlockTimestamp.Before(since) {
				return out, nil
			}
			out = append(out, sw)
		}
		if resp.Cursor == "" || len(resp.Result) == 0 {
			break
		}
		cursor = resp.Cursor
	}
	return out, nil
}
