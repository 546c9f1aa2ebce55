// Package format renders numbers and token facts for Telegram HTML messages.
package format

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"
)

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}

// Compact renders 1234567 as 1.23M. Values under 1000 keep two decimals.
func Compact(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e9:
		return sign + trimZeros(fmt.Sprintf("%.2f", v/1e9)) + "B"
	case v >= 1e6:
		return sign + trimZeros(fmt.Sprintf("%.2f", v/1e6)) + "M"
	case v >= 1e3:
		return sign + trimZeros(fmt.Sprintf("%.2f", v/1e3)) + "K"
	default:
		return sign + trimZeros(fmt.Sprintf("%.2f", v))
	}
}

// USD is Compact with a dollar sign; zero renders as "n/a".
func USD(v float64) string {
	if v == 0 {
		return "n/a"
	}
	if v < 0 {
		return "-$" + Compact(-v)
	}
	return "$" + Compact(v)
}

// Price keeps significant digits for sub-cent prices.
func Price(v float64) string {
	switch {
	case v == 0:
		return "n/a"
	case v >= 1:
		return "$" + trimZeros(fmt.Sprintf("%.4f", v))
	default:
		digits := int(math.Ceil(-math.Log10(v))) + 3
		return "$" + trimZeros(fmt.Sprintf("%.*f", digits, v))
	}
}

// Pct renders a signed percentage, e.g. +25.4%.
func Pct(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

// Age renders a duration as 3d 4h, 5h 12m or 40m.
func Age(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// Escape escapes text for Telegram HTML parse mode.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ShortAddress renders the first and last four characters of an address.
func ShortAddress(a string) string {
	if len(a) <= 10 {
		return a
	}
	return a[:4] + "…" + a[len(a)-4:]
}
