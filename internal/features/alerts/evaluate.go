// Package alerts decides which tokens deserve a Telegram alert and delivers them.
package alerts

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"
)

type Thresholds struct {
	MarketCapChangePct float64       // absolute % move vs the last alert
	Cooldown           time.Duration // minimum gap between alerts for one token
	NewTokenWindow     time.Duration // tokens minted within this window count as new
}

func ThresholdsFromConfig(cfg config.AlertsConfig) Thresholds {
	return Thresholds{
		MarketCapChangePct: cfg.MarketCapChangePct,
		Cooldown:           cfg.Cooldown,
		NewTokenWindow:     cfg.NewTokenWindow,
	}
}

func DefaultThresholds() Thresholds {
	return Thresholds{MarketCapChangePct: 20, Cooldown: time.Hour, NewTokenWindow: 24 * time.Hour}
}

type Decision struct {
	ShouldAlert bool
	Type        string
	ChangePct   float64
	Reason      string
}

// Evaluate applies the alert rules to a token and its most recent alert (nil if none).
func Evaluate(token *store.Token, last *store.Alert, now time.Time, th Thresholds) Decision {
	if last == nil {
		age := token.Age(now)
		switch {
		case age < 0:
			return Decision{Reason: "no prior alert and creation time unknown"}
		case age < th.NewTokenWindow:
			return Decision{ShouldAlert: true, Type: store.AlertTypeNewToken, Reason: "created " + format.Age(age) + " ago"}
		default:
			return Decision{Reason: "no prior alert and token older than new-token window"}
		}
	}

	if last.MarketCap <= 0 {
		return Decision{Reason: "last alert has no market cap"}
	}
	change := (token.MarketCap - last.MarketCap) / last.MarketCap * 100

	if since := now.Sub(last.SentAt); since < th.Cooldown {
		return Decision{ChangePct: change, Reason: fmt.Sprintf("cooldown, last alert %s ago", format.Age(since))}
	}
	if math.Abs(change) < th.MarketCapChangePct {
		return Decision{ChangePct: change, Reason: fmt.Sprintf("market cap change %s below %.0f%%", format.Pct(change), th.MarketCapChangePct)}
	}
	return Decision{
		ShouldAlert: true,
		Type:        store.AlertTypeMarketCapChange,
		ChangePct:   change,
		Reason:      "market cap " + format.Pct(change) + " since last alert",
	}
}

// FormatAlert renders the Telegram HTML body of an alert.
func FormatAlert(t *store.Token, d Decision, now time.Time) string {
	var sb strings.Builder
	name := format.Escape(t.Name)
	symbol := format.Escape(t.Symbol)

	switch d.Type {
	case store.AlertTypeNewToken:
		fmt.Fprintf(&sb, "🆕 <b>New token: %s ($%s)</b>\n\n", name, symbol)
	case store.AlertTypeMarketCapChange:
		icon := "📈"
		if d.ChangePct < 0 {
			icon = "📉"
		}
		fmt.Fprintf(&sb, "%s <b>%s ($%s) market cap %s</b>\n\n", icon, name, symbol, format.Pct(d.ChangePct))
	default:
		fmt.Fprintf(&sb, "<b>%s ($%s)</b>\n\n", name, symbol)
	}

	fmt.Fprintf(&sb, "💰 Market cap: %s\n", format.USD(t.MarketCap))
	fmt.Fprintf(&sb, "💵 Price: %s (%s 24h)\n", format.Price(t.Price), format.Pct(t.PriceChange24h))
	fmt.Fprintf(&sb, "💧 Liquidity: %s\n", format.USD(t.Liquidity))
	fmt.Fprintf(&sb, "📊 Volume 24h: %s\n", format.USD(t.Volume24h))
	if t.Holders > 0 {
		fmt.Fprintf(&sb, "👥 Holders: %d\n", t.Holders)
	}
	if age := t.Age(now); age >= 0 {
		fmt.Fprintf(&sb, "⏱ Age: %s\n", format.Age(age))
	}
	if t.RugScore != nil {
		fmt.Fprintf(&sb, "🛡 Rugcheck score: %.0f", *t.RugScore)
		if t.RugDangers != nil && *t.RugDangers > 0 {
			fmt.Fprintf(&sb, " (%d danger)", *t.RugDangers)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n<code>%s</code>", format.Escape(t.Address))
	return sb.String()
}

// ChartURL is the Birdeye token page linked from alert buttons.
func ChartURL(address string) string {
	return "https://birdeye.so/token/" + address + "?chain=solana"
}
