package moralis

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentSwapsFollowsCursorUntilSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/mainnet/MINT/swaps", r.URL.Path)
		assert.Equal(t, "mk", r.Header.Get("X-API-Key"))
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{"cursor":"c2","result":[
				{"transactionHash":"t1","transactionType":"buy","blockTimestamp":"2026-10-17T12:00:00Z","walletAddress":"w1","totalValueUsd":100},
				{"transactionHash":"t2","transactionType":"sell","blockTimestamp":"2026-10-17T11:00:00Z","walletAddress":"w2","totalValueUsd":900}
			]}`)
		case "c2":
			fmt.Fprint(w, `{"cursor":"c3","result":[
				{"transactionHash":"t3","transactionType":"sell","blockTimestamp":"2026-10-17T10:30:00Z","walletAddress":"w1","totalValueUsd":50},
				{"transactionHash":"t4","transactionType":"buy","blockTimestamp":"2026-10-16T00:00:00Z","walletAddress":"w3","totalValueUsd":1}
			]}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer srv.Close()

	c := New(config.ProviderConfig{BaseURL: srv.URL, APIKey: "mk"})
	since := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	swaps, err := c.RecentSwaps(context.Background(), "MINT", since, 10)
	require.NoError(t, err)
	require.Len(t, swaps, 3)

	sum := Summarize(swaps)
	assert.Equal(t, 1, sum.Buys)
	assert.Equal(t, 2, sum.Sells)
	assert.Equal(t, 2, sum.Traders)
	assert.Equal(t, 950.0, sum.SellVolume)
	assert.Equal(t, -850.0, sum.NetFlow())
	require.NotNil(t, sum.LargestSell)
	assert.Equal(t, "t2", sum.LargestSell.TransactionHash)
}

func TestHolderStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/mainnet/holders/MINT", r.URL.Path)
		fmt.Fprint(w, `{"totalHolders":1234,"holderChange":{"24h":{"change":40,"changePercent":3.3}},"holderSupply":{"top10":{"supply":"1","supplyPercent":42.5}}}`)
	}))
	defer srv.Close()

	c := New(config.ProviderConfig{BaseURL: srv.URL})
	stats, err := c.HolderStats(context.Background(), "MINT")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), stats.TotalHolders)
	assert.Equal(t, int64(40), stats.HolderChange["24h"].Change)
	assert.Equal(t, 42.5, stats.HolderSupply["top10"].SupplyPercent)
}
