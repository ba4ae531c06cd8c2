package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/batch"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func sampleReport() *batch.Report {
	best := &model.TrialResult{
		Profile: model.ProfileAggressive,
		Start:   time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC),
		Metrics: model.Metrics{TotalReturn: 0.42},
	}
	return &batch.Report{
		Duration: 3 * time.Second,
		Summary: batch.Summary{
			Total: 10, Completed: 9, Failed: 1, Outperformed: 4,
			MeanReturn: 0.081, MedianReturn: 0.07, MeanSharpe: 0.9, MeanAlpha: 0.01,
			WorstDrawdown: -0.23, Best: best, Worst: best,
		},
	}
}

func TestFormatBatchSummary(t *testing.T) {
	out := FormatBatchSummary(sampleReport())
	assert.Contains(t, out, "Trials: 10 (completed 9, failed 1)")
	assert.Contains(t, out, "Mean return: 8.10%")
	assert.Contains(t, out, "Worst drawdown: -23.00%")
	assert.Contains(t, out, "Beat benchmark: 4/9")
	assert.Contains(t, out, "Best: aggressive 2020-04-01..2021-04-01 42.00%")

	empty := FormatBatchSummary(&batch.Report{Summary: batch.Summary{Total: 2, Failed: 2}})
	assert.NotContains(t, empty, "Mean return")
	assert.Equal(t, "No batch results available", FormatBatchSummary(nil))
}

func TestNotifyBatch(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 42)

	require.NoError(t, n.NotifyBatch(context.Background(), sampleReport()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[0].ParseMode)
}

func TestSendTruncatesAndWrapsErrors(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 1)

	require.NoError(t, n.Send(context.Background(), strings.Repeat("x", 5000)))
	assert.Len(t, sender.sent[0].Text, maxMessageLength)

	n = NewNotifier(&fakeSender{err: errors.New("blocked")}, 1)
	err := n.Send(context.Background(), "hi")
	assert.ErrorContains(t, err, "blocked")
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	_, err := NewTelegram("", 1)
	assert.Error(t, err)
	_, err = NewTelegram("token", 0)
	assert.Error(t, err)
}
