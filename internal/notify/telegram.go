package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/oisentry/internal/models"
)

// Telegram delivers reports to a single chat via the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a Telegram sink.
func NewTelegram(botToken, chatID string) (*Telegram, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: chatIDInt}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (t *Telegram) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					t.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (t *Telegram) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		t.bot.Send(reply) //nolint:errcheck
	}
}

// Notify sends the report once as MarkdownV2.
func (t *Telegram) Notify(ctx context.Context, report models.Report) error {
	msg := tgbotapi.NewMessage(t.chatID, formatTelegram(report))
	msg.ParseMode = "MarkdownV2"
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}

// formatTelegram renders a report as a Telegram MarkdownV2 message.
func formatTelegram(r models.Report) string {
	e := r.Evaluation
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 *%s*\n", escapeMarkdownV2(Title(e.Alerts)))
	fmt.Fprintf(&b, "📅 %s\n\n", escapeMarkdownV2(r.Time.UTC().Format(time.DateTime)))

	fmt.Fprintf(&b, "Binance OI: *%s* %s\n",
		escapeMarkdownV2(formatOI(r.Current.Binance)),
		escapeMarkdownV2(fmt.Sprintf("(%+.2f%%) z=%+.2f", e.DeltaBinancePct, e.ZBinance)))
	fmt.Fprintf(&b, "Bybit OI: *%s* %s\n",
		escapeMarkdownV2(formatOI(r.Current.Bybit)),
		escapeMarkdownV2(fmt.Sprintf("(%+.2f%%) z=%+.2f", e.DeltaBybitPct, e.ZBybit)))
	fmt.Fprintf(&b, "ΔTotal OI: %s\n\n", escapeMarkdownV2(formatOI(e.TotalSwing)))

	for _, a := range e.Alerts {
		fmt.Fprintf(&b, "• %s → %s\n", escapeMarkdownV2(a.Category.Badge()), escapeMarkdownV2(a.Description))
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
