package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uneeb123/alpha-hunter-sub000/internal/features/filters"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"

	"go.uber.org/zap"
)

const helpText = "" +
	"<b>Commands</b>\n" +
	"• <code>/start</code> - subscribe this chat to token alerts\n" +
	"• <code>/stop</code> - unsubscribe from alerts and summaries\n" +
	"• <code>/menu</code> - show the button menu\n" +
	"• <code>/filter {key} {value}</code> - set an alert threshold, <code>off</code> clears it\n" +
	"• <code>/filters</code> - show this chat's thresholds\n" +
	"• <code>/token {address}</code> - market, holder and risk brief\n" +
	"• <code>/flow {address}</code> - buy/sell pressure over the last day\n" +
	"• <code>/alerts</code> - the latest alerts\n" +
	"• <code>/top</code> - largest tracked tokens by market cap\n" +
	"• <code>/summaries on|off</code> - daily alpha summaries\n" +
	"\nFilter keys: "

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) error {
	chatID := m.Chat.ID
	args := strings.TrimSpace(m.CommandArguments())

	log.LogDebug("Received command",
		zap.String("command", m.Command()),
		zap.String("args", args),
		zap.Int64("chatID", chatID))

	switch m.Command() {
	case "start":
		return b.cmdStart(ctx, m)
	case "stop":
		return b.cmdStop(ctx, chatID)
	case "menu":
		return b.send(chatID, "What do you want to see?", menuKeyboard())
	case "help":
		return b.cmdHelp(chatID)
	case "filter":
		return b.cmdFilter(ctx, chatID, args)
	case "filters":
		return b.showFilters(ctx, chatID)
	case "token":
		if args == "" {
			return b.send(chatID, "Usage: <code>/token {address}</code>", nil)
		}
		text, err := b.reports.TokenBrief(ctx, args)
		return b.sendReport(chatID, "that token", text, err)
	case "flow":
		if args == "" {
			return b.send(chatID, "Usage: <code>/flow {address}</code>", nil)
		}
		text, err := b.reports.Flow(ctx, args, 24*time.Hour)
		return b.sendReport(chatID, "swap flow", text, err)
	case "alerts":
		return b.cmdRecentAlerts(ctx, chatID)
	case "top":
		return b.cmdTop(ctx, chatID)
	case "summaries":
		return b.cmdSummaries(ctx, chatID, args)
	case "block", "unblock":
		return b.cmdBlock(chatID, m.Command(), args)
	default:
		return b.send(chatID, "Unknown command. Try /help.", nil)
	}
}

func (b *Bot) cmdStart(ctx context.Context, m *tgbotapi.Message) error {
	chat := &store.Chat{TelegramChatID: m.Chat.ID, Title: m.Chat.Title, Username: m.Chat.UserName}
	if err := b.store.UpsertChat(ctx, chat); err != nil {
		return err
	}
	if err := b.setAlerts(ctx, m.Chat.ID, true); err != nil {
		return err
	}
	log.LogInfo("Chat subscribed", zap.Int64("chatID", m.Chat.ID), zap.String("username", m.Chat.UserName))
	return b.send(m.Chat.ID,
		"👋 You're subscribed to new token and market cap alerts.\nNarrow them down with /filter or use the menu below.",
		menuKeyboard())
}

func (b *Bot) cmdStop(ctx context.Context, chatID int64) error {
	if err := b.store.SetChatSubscription(ctx, chatID, store.SubscriptionAlerts, false); err != nil {
		return err
	}
	if err := b.store.SetChatSubscription(ctx, chatID, store.SubscriptionSummaries, false); err != nil {
		return err
	}
	log.LogInfo("Chat unsubscribed", zap.Int64("chatID", chatID))
	return b.send(chatID, "Unsubscribed. Send /start to turn alerts back on.", nil)
}

func (b *Bot) cmdHelp(chatID int64) error {
	return b.send(chatID, helpText+"<code>"+strings.Join(filters.Keys, "</code>, <code>")+"</code>", nil)
}

func (b *Bot) cmdFilter(ctx context.Context, chatID int64, args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return b.send(chatID, "Usage: <code>/filter {key} {value}</code>\n\nExample: <code>/filter min_market_cap 250000</code>", nil)
	}
	value := ""
	if len(parts) == 2 {
		value = parts[1]
	}

	f, err := b.loadFilter(ctx, chatID)
	if err != nil {
		return err
	}
	if err := filters.Set(&f.FilterThresholds, strings.ToLower(parts[0]), value); err != nil {
		return b.send(chatID, format.Escape(err.Error()), nil)
	}
	if err := b.store.SaveFilter(ctx, f); err != nil {
		return err
	}
	log.LogInfo("Filter updated", zap.Int64("chatID", chatID), zap.String("key", parts[0]), zap.String("value", value))
	return b.send(chatID, describeFilter(f.FilterThresholds), nil)
}

func (b *Bot) showFilters(ctx context.Context, chatID int64) error {
	f, err := b.loadFilter(ctx, chatID)
	if err != nil {
		return err
	}
	return b.send(chatID, describeFilter(f.FilterThresholds), nil)
}

func (b *Bot) loadFilter(ctx context.Context, chatID int64) (*store.Filter, error) {
	f, err := b.store.GetFilter(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return &store.Filter{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load filter: %w", err)
	}
	return f, nil
}

func describeFilter(f filters.Filter) string {
	lines := filters.Describe(f)
	if len(lines) == 0 {
		return "No filters set, you get every alert."
	}
	return "<b>Your filters</b>\n<blockquote>" + format.Escape(strings.Join(lines, "\n")) + "</blockquote>"
}

const listLimit = 10

func (b *Bot) cmdRecentAlerts(ctx context.Context, chatID int64) error {
	alerts, err := b.store.RecentAlerts(ctx, listLimit)
	if err != nil {
		return b.sendReport(chatID, "recent alerts", "", err)
	}
	if len(alerts) == 0 {
		return b.send(chatID, "No alerts yet.", nil)
	}
	var sb strings.Builder
	sb.WriteString("<b>Latest alerts</b>\n")
	for _, a := range alerts {
		label := a.Token.Symbol
		if label == "" {
			label = format.ShortAddress(a.Token.Address)
		}
		fmt.Fprintf(&sb, "\n• <b>%s</b> %s · mc %s", format.Escape(label), strings.ReplaceAll(a.Type, "_", " "), format.USD(a.MarketCap))
		if a.ChangePct != 0 {
			sb.WriteString(" (" + format.Pct(a.ChangePct) + ")")
		}
		sb.WriteString(" · " + a.SentAt.UTC().Format("Jan 2 15:04"))
	}
	return b.send(chatID, sb.String(), nil)
}

func (b *Bot) cmdTop(ctx context.Context, chatID int64) error {
	tokens, err := b.store.TopTokens(ctx, listLimit)
	if err != nil {
		return b.sendReport(chatID, "top tokens", "", err)
	}
	if len(tokens) == 0 {
		return b.send(chatID, "No tokens tracked yet.", nil)
	}
	var sb strings.Builder
	sb.WriteString("<b>Top tokens by market cap</b>\n")
	for i, t := range tokens {
		fmt.Fprintf(&sb, "\n%d. <b>%s</b> %s · liq %s · <code>%s</code>",
			i+1, format.Escape(t.Symbol), format.USD(t.MarketCap), format.USD(t.Liquidity), format.ShortAddress(t.Address))
	}
	return b.send(chatID, sb.String(), nil)
}

func (b *Bot) cmdSummaries(ctx context.Context, chatID int64, args string) error {
	var enabled bool
	switch strings.ToLower(args) {
	case "on":
		enabled = true
	case "off":
	default:
		return b.send(chatID, "Usage: <code>/summaries on|off</code>", nil)
	}
	if err := b.store.SetChatSubscription(ctx, chatID, store.SubscriptionSummaries, enabled); err != nil {
		return err
	}
	if enabled {
		return b.send(chatID, "You'll get alpha summaries when they're published.", nil)
	}
	return b.send(chatID, "Summaries turned off.", nil)
}

func (b *Bot) cmdBlock(chatID int64, command, address string) error {
	if b.opts.Blocklist == nil || b.opts.AdminChatID == 0 || chatID != b.opts.AdminChatID {
		return b.send(chatID, "Unknown command. Try /help.", nil)
	}
	if address == "" {
		return b.send(chatID, fmt.Sprintf("Usage: <code>/%s {address}</code>", command), nil)
	}

	var (
		changed bool
		err     error
	)
	if command == "block" {
		changed, err = b.opts.Blocklist.Add(address)
	} else {
		changed, err = b.opts.Blocklist.Remove(address)
	}
	if err != nil {
		log.LogError("Blocklist update failed", zap.String("address", address), zap.Error(err))
		return b.send(chatID, "An error occurred, please try again later", nil)
	}

	short := format.ShortAddress(address)
	switch {
	case command == "block" && changed:
		return b.send(chatID, "Blocked <code>"+short+"</code>, no more alerts for it.", nil)
	case command == "block":
		return b.send(chatID, "<code>"+short+"</code> is already blocked.", nil)
	case changed:
		return b.send(chatID, "Unblocked <code>"+short+"</code>.", nil)
	default:
		return b.send(chatID, "<code>"+short+"</code> is not in the blocklist.", nil)
	}
}

func (b *Bot) setAlerts(ctx context.Context, chatID int64, enabled bool) error {
	return b.store.SetChatSubscription(ctx, chatID, store.SubscriptionAlerts, enabled)
}
