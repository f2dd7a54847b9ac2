package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"recurring_payments/internal/app"
	"recurring_payments/internal/domain/notification"
)

const defaultUpcomingDays = 7

// CommandHandler answers the bot's chat commands.
type CommandHandler struct {
	recipients notification.RecipientRepository
	payments   app.PaymentService
	today      func() time.Time
	logger     *logrus.Entry
}

func NewCommandHandler(
	recipients notification.RecipientRepository,
	payments app.PaymentService,
	today func() time.Time,
	logger *logrus.Entry,
) *CommandHandler {
	return &CommandHandler{
		recipients: recipients,
		payments:   payments,
		today:      today,
		logger:     logger.WithField("handler_group", "bot_commands"),
	}
}

// RegisterBotCommands wires /start, /help and /upcoming on b.
func RegisterBotCommands(ctx context.Context, b *telebot.Bot, h *CommandHandler) {
	b.Handle("/start", func(c telebot.Context) error {
		return c.Send(h.StartReply(ctx, c.Chat().ID))
	})
	b.Handle("/help", func(c telebot.Context) error {
		h.logger.WithField("chat_id", c.Chat().ID).Info("Processing /help command")
		return c.Send(helpText)
	})
	b.Handle("/upcoming", func(c telebot.Context) error {
		return c.Send(h.UpcomingReply(ctx, c.Chat().ID, c.Message().Payload))
	})
}

const helpText = "Commands:\n" +
	"/start - show whether this chat receives payment notifications\n" +
	"/upcoming [days] - list payments due in the next days (default 7)\n" +
	"/help - show this message"

func (h *CommandHandler) StartReply(ctx context.Context, chatID int64) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "chat_id": chatID})
	logCtx.Info("Processing /start command")

	rec, err := h.recipients.GetByChatID(ctx, chatID)
	switch {
	case errors.Is(err, notification.ErrRecipientNotFound):
		logCtx.Info("Chat is not linked to a user")
		return fmt.Sprintf("Hi! This chat is not linked yet. Register chat id %d in the app to receive payment reminders.", chatID)
	case err != nil:
		logCtx.WithError(err).Error("Error looking up recipient for /start command")
		return "Something went wrong while checking your account. Please try again later."
	case !rec.Enabled:
		return "Notifications for this chat are switched off. Enable them in the app to receive payment reminders."
	}
	return "Hi! Reminders and auto-posted payments will be sent to this chat. Use /upcoming to see what is due."
}

func (h *CommandHandler) UpcomingReply(ctx context.Context, chatID int64, payload string) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/upcoming", "chat_id": chatID})
	logCtx.Info("Processing /upcoming command")

	days := defaultUpcomingDays
	if p := strings.TrimSpace(payload); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > app.MaxUpcomingDays {
			return fmt.Sprintf("Usage: /upcoming [days], days between 1 and %d.", app.MaxUpcomingDays)
		}
		days = n
	}

	rec, err := h.recipients.GetByChatID(ctx, chatID)
	if errors.Is(err, notification.ErrRecipientNotFound) {
		return "This chat is not linked to an account yet."
	}
	if err != nil {
		logCtx.WithError(err).Error("Error looking up recipient for /upcoming command")
		return "Something went wrong. Please try again later."
	}

	due, err := h.payments.Upcoming(ctx, rec.UserID, h.today(), days)
	if err != nil {
		logCtx.WithError(err).Error("Error listing upcoming payments")
		return "Something went wrong. Please try again later."
	}
	if len(due) == 0 {
		return fmt.Sprintf("Nothing due in the next %d days.", days)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Due in the next %d days:\n", days)
	for _, d := range due {
		fmt.Fprintf(&sb, "• %s: %s %s on %s (%s)", d.Name, d.Amount.StringFixed(2), d.Currency, d.DueDate, whenText(d.DaysUntil))
		if d.AutoPost {
			sb.WriteString(", auto-posted")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func whenText(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	}
	return fmt.Sprintf("in %d days", days)
}
