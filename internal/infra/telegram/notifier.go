package telegram

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"recurring_payments/internal/domain/notification"
)

// Notifier delivers payment notifications to the chat linked to a user.
type Notifier struct {
	sender     Sender
	recipients notification.RecipientRepository
	logger     *logrus.Entry
}

var _ notification.Notifier = (*Notifier)(nil)

func NewNotifier(sender Sender, recipients notification.RecipientRepository, logger *logrus.Entry) *Notifier {
	return &Notifier{
		sender:     sender,
		recipients: recipients,
		logger:     logger.WithField("component", "telegram_notifier"),
	}
}

// Notify returns notification.ErrRecipientNotFound when the user has no
// enabled chat, which the dispatcher treats as final.
func (n *Notifier) Notify(ctx context.Context, userID int64, message string) error {
	rec, err := n.recipients.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !rec.Enabled {
		return fmt.Errorf("notifications disabled for user %d: %w", userID, notification.ErrRecipientNotFound)
	}
	if err := n.sender.SendMessage(rec.TelegramChatID, message, nil); err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", rec.TelegramChatID, err)
	}
	n.logger.WithFields(logrus.Fields{"user_id": userID, "chat_id": rec.TelegramChatID}).Debug("Notification sent")
	return nil
}

// LogNotifier writes notifications to the log. Used when no bot token is configured.
type LogNotifier struct {
	logger *logrus.Entry
}

var _ notification.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *logrus.Entry) *LogNotifier {
	return &LogNotifier{logger: logger.WithField("component", "log_notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, userID int64, message string) error {
	n.logger.WithField("user_id", userID).Info(message)
	return nil
}
