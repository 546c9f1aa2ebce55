package birdeye

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

// ListFilters maps to the optional query parameters of /defi/v3/token/list.
type ListFilters struct {
	SortBy       string // e.g. "liquidity", "market_cap", "volume_24h_usd", "recent_listing_time"
	SortType     string // "asc" | "desc"
	MinLiquidity float64
	MinMarketCap float64
	MinVolume24h float64
}

func (f ListFilters) values() url.Values {
	v := url.Values{}
	sortBy, sortType := f.SortBy, f.SortType
	if sortBy == "" {
		sortBy = "liquidity"
	}
	if sortType == "" {
		sortType = "desc"
	}
	v.Set("sort_by", sortBy)
	v.Set("sort_type", sortType)
	if f.MinLiquidity > 0 {
		v.Set("min_liquidity", strconv.FormatFloat(f.MinLiquidity, 'f', -1, 64))
	}
	if f.MinMarketCap > 0 {
		v.Set("min_market_cap", strconv.FormatFloat(f.MinMarketCap, 'f', -1, 64))
	}
	if f.MinVolume24h > 0 {
		v.Set("min_volume_24h_usd", strconv.FormatFloat(f.MinVolume24h, 'f', -1, 64))
	}
	return v
}

type ListOptions struct {
	PageSize int
	MaxPages int
	Filters  ListFilters
	// OnPage is called after each page, e.g. to archive the raw payload.
	OnPage func(offset int, page *TokenListPage)
}

type TokenListItem struct {
	Address                string   `json:"address"`
	Symbol                 string   `json:"symbol"`
	Name                   string   `json:"name"`
	Decimals               int      `json:"decimals"`
	LogoURI                string   `json:"logo_uri"`
	Price                  float64  `json:"price"`
	MarketCap              float64  `json:"market_cap"`
	FDV                    float64  `json:"fdv"`
	Liquidity              float64  `json:"liquidity"`
	Volume24hUSD           float64  `json:"volume_24h_usd"`
	Volume24hChangePercent *float64 `json:"volume_24h_change_percent"`
	PriceChange24hPercent  *float64 `json:"price_change_24h_percent"`
	Holder                 int64    `json:"holder"`
	RecentListingTime      int64    `json:"recent_listing_time"`
	LastTradeUnixTime      int64    `json:"last_trade_unix_time"`
}

type TokenListPage struct {
	Items   []TokenListItem `json:"items"`
	HasNext bool            `json:"has_next"`
	Raw     json.RawMessage `json:"-"`
}

type TokenListResult struct {
	Items []TokenListItem
	Total int
	Pages int
}

type TokenOverview struct {
	Address               string            `json:"address"`
	Symbol                string            `json:"symbol"`
	Name                  string            `json:"name"`
	Decimals              int               `json:"decimals"`
	LogoURI               string            `json:"logoURI"`
	Price                 float64           `json:"price"`
	MarketCap             float64           `json:"marketCap"`
	FDV                   float64           `json:"fdv"`
	Liquidity             float64           `json:"liquidity"`
	Supply                float64           `json:"supply"`
	CirculatingSupply     float64           `json:"circulatingSupply"`
	Holder                int64             `json:"holder"`
	Volume24hUSD          float64           `json:"v24hUSD"`
	PriceChange24hPercent float64           `json:"priceChange24hPercent"`
	UniqueWallet24h       int64             `json:"uniqueWallet24h"`
	LastTradeUnixTime     int64             `json:"lastTradeUnixTime"`
	Extensions            map[string]string `json:"extensions"`
}

type CreationInfo struct {
	TxHash         string `json:"txHash"`
	Slot           int64  `json:"slot"`
	TokenAddress   string `json:"tokenAddress"`
	Decimals       int    `json:"decimals"`
	Owner          string `json:"owner"`
	BlockUnixTime  int64  `json:"blockUnixTime"`
	BlockHumanTime string `json:"blockHumanTime"`
}

func (ci *CreationInfo) CreatedAt() time.Time {
	if ci == nil || ci.BlockUnixTime <= 0 {
		return time.Time{}
	}
	return time.Unix(ci.BlockUnixTime, 0).UTC()
}

type Security struct {
	CreatorAddress     string   `json:"creatorAddress"`
	OwnerAddress       string   `json:"ownerAddress"`
	CreationTime       *int64   `json:"creationTime"`
	MintTx             string   `json:"mintTx"`
	Freezeable         *bool    `json:"freezeable"`
	FreezeAuthority    *string  `json:"freezeAuthority"`
	Top10HolderPercent *float64 `json:"top10HolderPercent"`
	MutableMetadata    bool     `json:"mutableMetadata"`
	IsToken2022        bool     `json:"isToken2022"`
	NonTransferable    *bool    `json:"nonTransferable"`
	TransferFeeEnable  *bool    `json:"transferFeeEnable"`
}
