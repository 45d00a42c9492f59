package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Gateway is the part of the Telegram Bot API the bot relies on.
type Gateway interface {
	FetchUpdates(ctx context.Context, offset int) ([]tgbotapi.Update, error)
	SendText(chatID int64, text string) error
	SendPhoto(chatID int64, photo Photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string) error
	ClearControls(chatID int64, messageID int) error
}

type Photo struct {
	Name  string
	Bytes []byte
}

type BotGateway struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
}

// NewBotGateway connects to the Bot API at endpoint. Every request, long
// polling included, is bounded by requestTimeout on top of pollTimeout.
func NewBotGateway(token, endpoint string, requestTimeout, pollTimeout time.Duration) (*BotGateway, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	client := &http.Client{Timeout: requestTimeout + pollTimeout}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	return &BotGateway{
		api:         api,
		pollTimeout: int(pollTimeout / time.Second),
	}, nil
}

func (g *BotGateway) Username() string {
	return g.api.Self.UserName
}

func (g *BotGateway) FetchUpdates(ctx context.Context, offset int) ([]tgbotapi.Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = g.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates, err := g.api.GetUpdates(u)
	if err != nil {
		return nil, fmt.Errorf("get updates (offset: %d): %w", offset, err)
	}
	return updates, nil
}

func (g *BotGateway) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("send message (chat_id: %d): %w", chatID, err)
	}
	return nil
}

func (g *BotGateway) SendPhoto(chatID int64, photo Photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: photo.Name, Bytes: photo.Bytes})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("send photo (chat_id: %d, name: %s): %w", chatID, photo.Name, err)
	}
	return nil
}

func (g *BotGateway) AnswerCallback(callbackID, text string) error {
	if _, err := g.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback (id: %s): %w", callbackID, err)
	}
	return nil
}

// ClearControls removes the inline keyboard from a sent message.
func (g *BotGateway) ClearControls(chatID int64, messageID int) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := g.api.Request(edit); err != nil {
		return fmt.Errorf("clear controls (chat_id: %d, message_id: %d): %w", chatID, messageID, err)
	}
	return nil
}
