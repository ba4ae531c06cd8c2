package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/batch"
)

// maxMessageLength is the Telegram limit for one text message
const maxMessageLength = 4096

// Sender is the part of the bot API the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts batch summaries to one Telegram chat
type Notifier struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegram connects a bot with token and targets chatID
func NewTelegram(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return NewNotifier(bot, chatID), nil
}

// NewNotifier wraps an existing sender
func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// Send posts a Markdown message, truncated to the Telegram limit
func (n *Notifier) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength-3] + "..."
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	n.logger.Debug().Int64("chat_id", n.chatID).Int("length", len(text)).Msg("Message sent")
	return nil
}

// NotifyBatch posts the summary of a finished batch
func (n *Notifier) NotifyBatch(ctx context.Context, report *batch.Report) error {
	return n.Send(ctx, FormatBatchSummary(report))
}

// FormatBatchSummary renders a batch report as a short Markdown message
func FormatBatchSummary(report *batch.Report) string {
	if report == nil {
		return "No batch results available"
	}
	s := report.Summary

	var b strings.Builder
	b.WriteString("*Backtest batch finished*\n\n")
	fmt.Fprintf(&b, "Trials: %d (completed %d, failed %d)\n", s.Total, s.Completed, s.Failed)
	fmt.Fprintf(&b, "Duration: %s\n", report.Duration.Round(time.Millisecond))
	if s.Completed == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "\nMean return: %.2f%%\n", s.MeanReturn*100)
	fmt.Fprintf(&b, "Median return: %.2f%%\n", s.MedianReturn*100)
	fmt.Fprintf(&b, "Mean Sharpe: %.2f\n", s.MeanSharpe)
	fmt.Fprintf(&b, "Mean alpha: %.2f%%\n", s.MeanAlpha*100)
	fmt.Fprintf(&b, "Worst drawdown: %.2f%%\n", s.WorstDrawdown*100)
	fmt.Fprintf(&b, "Beat benchmark: %d/%d\n", s.Outperformed, s.Completed)
	writeTrial(&b, "Best", s.Best)
	writeTrial(&b, "Worst", s.Worst)
	return b.String()
}

func writeTrial(b *strings.Builder, label string, r *model.TrialResult) {
	if r == nil {
		return
	}
	fmt.Fprintf(b, "%s: %s %s..%s %.2f%%\n", label, r.Profile,
		r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), r.Metrics.TotalReturn*100)
}
