package bot

import (
	"bytes"
	"context"

	tbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Transport is the outbound side of the messaging platform. The
// controller talks to it instead of *tbot.Bot so tests can swap in a
// fake.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error)
	SendDocument(ctx context.Context, chatID int64, data []byte, filename, caption string, markup models.ReplyMarkup) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendTyping(ctx context.Context, chatID int64)
}

// telegramTransport implements Transport over the Telegram Bot API.
type telegramTransport struct {
	tg *tbot.Bot
}

// NewTransport wraps a Telegram bot as a Transport.
func NewTransport(tg *tbot.Bot) Transport {
	return &telegramTransport{tg: tg}
}

func (t *telegramTransport) SendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error) {
	msg, err := t.tg.SendMessage(ctx, &tbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *telegramTransport) SendDocument(ctx context.Context, chatID int64, data []byte, filename, caption string, markup models.ReplyMarkup) error {
	_, err := t.tg.SendDocument(ctx, &tbot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(data),
		},
		Caption:     caption,
		ReplyMarkup: markup,
	})
	return err
}

func (t *telegramTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := t.tg.DeleteMessage(ctx, &tbot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	return err
}

func (t *telegramTransport) SendTyping(ctx context.Context, chatID int64) {
	t.tg.SendChatAction(ctx, &tbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionUploadDocument,
	})
}
