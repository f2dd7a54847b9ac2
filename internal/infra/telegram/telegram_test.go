package telegram

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"recurring_payments/internal/app"
	"recurring_payments/internal/domain/notification"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/infra/memstore"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID, text})
	return nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Recipients().Upsert(ctx, &notification.Recipient{UserID: 1, TelegramChatID: 1001, Enabled: true}))
	require.NoError(t, store.Recipients().Upsert(ctx, &notification.Recipient{UserID: 2, TelegramChatID: 1002, Enabled: false}))

	tests := []struct {
		name     string
		userID   int64
		sendErr  error
		wantErr  error
		wantSent int
	}{
		{"linked chat", 1, nil, nil, 1},
		{"unknown user", 3, nil, notification.ErrRecipientNotFound, 0},
		{"disabled chat", 2, nil, notification.ErrRecipientNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{err: tt.sendErr}
			n := NewNotifier(sender, store.Recipients(), testLogger())

			err := n.Notify(ctx, tt.userID, "Netflix is due tomorrow")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, sender.sent, tt.wantSent)
			if tt.wantSent > 0 {
				assert.Equal(t, sentMessage{1001, "Netflix is due tomorrow"}, sender.sent[0])
			}
		})
	}
}

func TestNotifier_SendFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Recipients().Upsert(ctx, &notification.Recipient{UserID: 1, TelegramChatID: 1001, Enabled: true}))

	n := NewNotifier(&fakeSender{err: errors.New("telegram: bot was blocked")}, store.Recipients(), testLogger())
	err := n.Notify(ctx, 1, "hello")
	require.Error(t, err)
	assert.NotErrorIs(t, err, notification.ErrRecipientNotFound)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(testLogger()).Notify(context.Background(), 1, "hello"))
}

func newCommandHandler(t *testing.T) (*CommandHandler, *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	payments := app.NewPaymentServiceImpl(store.Payments(), store.Categories(), testLogger())

	_, err := payments.Create(ctx, 1, app.CreatePaymentInput{
		Name:      "Netflix",
		Amount:    decimal.RequireFromString("15.99"),
		Currency:  "USD",
		Frequency: payment.FrequencyMonthly,
		DueDay:    15,
		StartDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, store.Recipients().Upsert(ctx, &notification.Recipient{UserID: 1, TelegramChatID: 1001, Enabled: true}))

	today := func() time.Time { return time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC) }
	return NewCommandHandler(store.Recipients(), payments, today, testLogger()), store
}

func TestStartReply(t *testing.T) {
	h, store := newCommandHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Recipients().Upsert(ctx, &notification.Recipient{UserID: 2, TelegramChatID: 1002, Enabled: false}))

	assert.Contains(t, h.StartReply(ctx, 1001), "will be sent to this chat")
	assert.Contains(t, h.StartReply(ctx, 1002), "switched off")
	assert.Contains(t, h.StartReply(ctx, 5555), "Register chat id 5555")
}

func TestUpcomingReply(t *testing.T) {
	h, _ := newCommandHandler(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		chatID  int64
		payload string
		want    string
	}{
		{"default window", 1001, "", "Due in the next 7 days:\n• Netflix: 15.99 USD on 2024-03-15 (in 3 days)"},
		{"short window", 1001, "2", "Nothing due in the next 2 days."},
		{"bad payload", 1001, "soon", "Usage: /upcoming [days], days between 1 and 366."},
		{"unlinked chat", 5555, "", "This chat is not linked to an account yet."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.UpcomingReply(ctx, tt.chatID, tt.payload))
		})
	}
}

func TestWhenText(t *testing.T) {
	assert.Equal(t, "today", whenText(0))
	assert.Equal(t, "tomorrow", whenText(1))
	assert.Equal(t, "in 12 days", whenText(12))
}
