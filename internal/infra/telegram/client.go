package telegram

import (
	"gopkg.in/telebot.v3"
)

// Sender sends plain messages to a Telegram chat.
type Sender interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}

// TelebotAdapter implements Sender on top of gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{DisableWebPagePreview: true}
	}
	_, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	return err
}
