package notification

import (
	"context"
	"errors"
	"time"
)

var ErrRecipientNotFound = errors.New("notification recipient not found")

// Notifier delivers a rendered message to a user. Implementations decouple the
// engine from the delivery channel.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// Recipient maps a user to their Telegram chat.
// Corresponds to the 'notification_recipients' table.
type Recipient struct {
	UserID         int64
	TelegramChatID int64
	Enabled        bool
	UpdatedAt      time.Time
}

// RecipientRepository stores notification targets.
type RecipientRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*Recipient, error)
	GetByChatID(ctx context.Context, chatID int64) (*Recipient, error)
	Upsert(ctx context.Context, r *Recipient) error
}
