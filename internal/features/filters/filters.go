// Package filters turns loosely typed user input into per-chat alert thresholds and
// checks tokens against them.
package filters

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"
)

type Filter = store.FilterThresholds

const (
	KeyMinMarketCap = "min_market_cap"
	KeyMaxMarketCap = "max_market_cap"
	KeyMinLiquidity = "min_liquidity"
	KeyMinVolume24h = "min_volume_24h"
	KeyMinHolders   = "min_holders"
	KeyMaxAgeHours  = "max_age_hours"
)

// Keys lists every accepted field name in display order.
var Keys = []string{KeyMinMarketCap, KeyMaxMarketCap, KeyMinLiquidity, KeyMinVolume24h, KeyMinHolders, KeyMaxAgeHours}

// ParseNumber accepts JSON numbers and numeric strings. Empty strings, invalid strings,
// NaN and infinities yield nil.
func ParseNumber(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Sanitize builds a Filter from raw input. Unknown keys are ignored.
func Sanitize(raw map[string]any) Filter {
	var f Filter
	f.MinMarketCap = ParseNumber(raw[KeyMinMarketCap])
	f.MaxMarketCap = ParseNumber(raw[KeyMaxMarketCap])
	f.MinLiquidity = ParseNumber(raw[KeyMinLiquidity])
	f.MinVolume24h = ParseNumber(raw[KeyMinVolume24h])
	f.MaxAgeHours = ParseNumber(raw[KeyMaxAgeHours])
	if n := ParseNumber(raw[KeyMinHolders]); n != nil {
		h := int64(*n)
		f.MinHolders = &h
	}
	return f
}

// Set updates one field from text input, as typed in a chat command. An empty or
// "off" value clears the field.
func Set(f *Filter, key, value string) error {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "off") || strings.EqualFold(value, "none") {
		value = ""
	}
	n := ParseNumber(value)
	if value != "" && n == nil {
		return fmt.Errorf("%q is not a number", value)
	}

	switch key {
	case KeyMinMarketCap:
		f.MinMarketCap = n
	case KeyMaxMarketCap:
		f.MaxMarketCap = n
	case KeyMinLiquidity:
		f.MinLiquidity = n
	case KeyMinVolume24h:
		f.MinVolume24h = n
	case KeyMaxAgeHours:
		f.MaxAgeHours = n
	case KeyMinHolders:
		if n == nil {
			f.MinHolders = nil
		} else {
			h := int64(*n)
			f.MinHolders = &h
		}
	default:
		return fmt.Errorf("unknown filter %q, expected one of %s", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Matches reports whether t passes every set threshold of f.
func Matches(f Filter, t store.Token) bool {
	return MatchesAt(f, t, time.Now())
}

func MatchesAt(f Filter, t store.Token, now time.Time) bool {
	if f.MinMarketCap != nil && t.MarketCap < *f.MinMarketCap {
		return false
	}
	if f.MaxMarketCap != nil && t.MarketCap > *f.MaxMarketCap {
		return false
	}
	if f.MinLiquidity != nil && t.Liquidity < *f.MinLiquidity {
		return false
	}
	if f.MinVolume24h != nil && t.Volume24h < *f.MinVolume24h {
		return false
	}
	if f.MinHolders != nil && t.Holders < *f.MinHolders {
		return false
	}
	if f.MaxAgeHours != nil {
		age := t.Age(now)
		if age < 0 || age.Hours() > *f.MaxAgeHours {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no threshold is set.
func IsEmpty(f Filter) bool {
	return len(Describe(f)) == 0
}

// Describe lists the set thresholds as "key: value" lines, sorted by key.
func Describe(f Filter) []string {
	var lines []string
	add := func(key string, v *float64, usd bool) {
		if v == nil {
			return
		}
		s := format.Compact(*v)
		if usd {
			s = format.USD(*v)
		}
		lines = append(lines, key+": "+s)
	}
	add(KeyMinMarketCap, f.MinMarketCap, true)
	add(KeyMaxMarketCap, f.MaxMarketCap, true)
	add(KeyMinLiquidity, f.MinLiquidity, true)
	add(KeyMinVolume24h, f.MinVolume24h, true)
	add(KeyMaxAgeHours, f.MaxAgeHours, false)
	if f.MinHolders != nil {
		lines = append(lines, fmt.Sprintf("%s: %d", KeyMinHolders, *f.MinHolders))
	}
	sort.Strings(lines)
	return lines
}
