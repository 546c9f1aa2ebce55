package defillama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestPools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pools", r.URL.Path)
		fmt.Fprint(w, `{"status":"success","data":[
			{"pool":"p1","chain":"Solana","project":"kamino","symbol":"USDC","tvlUsd":5000000,"apy":8.5,"stablecoin":true},
			{"pool":"p2","chain":"Ethereum","project":"aave-v3","symbol":"WETH","tvlUsd":900000000,"apyBase":1.2,"apyReward":0.3}
		]}`)
	}))
	defer srv.Close()

	c := New(config.ProviderConfig{BaseURL: srv.URL})
	pools, err := c.Pools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, 8.5, pools[0].APYValue())
	assert.InDelta(t, 1.5, pools[1].APYValue(), 1e-9)
}

func TestFilterPools(t *testing.T) {
	stable := true
	pools := []Pool{
		{Pool: "low-tvl", Chain: "Solana", TVLUsd: 10, APY: f64(50), Stablecoin: true},
		{Pool: "mid", Chain: "solana", TVLUsd: 2_000_000, APY: f64(12), Stablecoin: true},
		{Pool: "top", Chain: "Solana", TVLUsd: 3_000_000, APY: f64(20), Stablecoin: true},
		{Pool: "outlier", Chain: "Solana", TVLUsd: 3_000_000, APY: f64(5000), Stablecoin: true},
		{Pool: "volatile", Chain: "Solana", TVLUsd: 3_000_000, APY: f64(30)},
		{Pool: "eth", Chain: "Ethereum", TVLUsd: 9_000_000, APY: f64(40), Stablecoin: true},
	}

	got := FilterPools(pools, PoolFilter{Chain: "SOLANA", MinTVL: 1_000_000, MaxAPY: 1000, Stablecoin: &stable})
	require.Len(t, got, 2)
	assert.Equal(t, "top", got[0].Pool)
	assert.Equal(t, "mid", got[1].Pool)

	limited := FilterPools(pools, PoolFilter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, "outlier", limited[0].Pool)
}
