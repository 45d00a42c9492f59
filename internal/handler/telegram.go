package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/vocabot/internal/models"
	"github.com/yourusername/vocabot/internal/pkg/metrics"
	"github.com/yourusername/vocabot/internal/service"
	"go.uber.org/zap"
)

type Service interface {
	GetLinkedUsers(ctx context.Context) ([]*models.UserProfile, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*models.UserProfile, error)
	PrepareFlashcards(ctx context.Context, userID int64, n int) ([]*models.Flashcard, error)
	ApplyFeedback(ctx context.Context, chatID int64, token service.FeedbackToken) (*service.FeedbackResult, error)
	LinkAccount(ctx context.Context, chatID int64, token string) (*models.UserProfile, error)
}

// Deduplicator tells whether an update id was already handled by an earlier
// run of the bot.
type Deduplicator interface {
	Seen(ctx context.Context, updateID int) (bool, error)
}

type Options struct {
	BatchSize    int
	BatchTime    string
	Location     *time.Location
	MediaRoot    string
	DefaultImage string
	PollInterval time.Duration
}

type TelegramHandler struct {
	gateway Gateway
	service Service
	dedup   Deduplicator
	trigger *DailyTrigger
	opts    Options

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) bool
	readFile func(name string) ([]byte, error)
}

const (
	welcomeText = "<b>Hello! Welcome to the Vocabulary Bot!</b>\n\n" +
		"To get started and receive flashcards, please link your account " +
		"from our website. Go to your profile page and generate a linking token.\n\n" +
		"Then, send that token to me here."

	linkedText = "<b>Account successfully linked!</b> 🎉\n\n" +
		"Dear %s!\n" +
		"You will start receiving your vocabulary flashcards through this bot soon!"

	tokenInvalidText = "That linking token is invalid. Please generate a new one from the website."
	tokenExpiredText = "That linking token has expired. Please generate a new one from the website."
	linkErrorText    = "An error occurred while linking your account. Please try again later."

	linkedHintText = "Hello @%s! I'm a vocabulary bot. " +
		"I'll send you flashcards automatically. I don't currently support other commands."

	unlinkedHintText = "I don't recognize this message. To link your account and receive flashcards, " +
		"please visit our website and generate a linking token. Then send it here.\n" +
		"You can also type /start for instructions."

	internalErrorText = "An internal error occurred. Please try again later."
	callbackErrorText = "An error occurred"
)

func NewTelegramHandler(gateway Gateway, svc Service, dedup Deduplicator, opts Options) (*TelegramHandler, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.BatchTime == "" {
		opts.BatchTime = "10:00"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	trigger, err := NewDailyTrigger(opts.BatchTime, opts.Location)
	if err != nil {
		return nil, err
	}

	return &TelegramHandler{
		gateway:  gateway,
		service:  svc,
		dedup:    dedup,
		trigger:  trigger,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepContext,
		readFile: os.ReadFile,
	}, nil
}

// handleUpdate routes one update. The returned error is only logged by the
// poller; user facing replies are sent here.
func (h *TelegramHandler) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		return h.handleTextMessage(ctx, update.Message)
	default:
		zap.L().Debug("skipping unsupported update", zap.Int("update_id", update.UpdateID))
		return nil
	}
}

func updateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message != nil && update.Message.Text != "":
		return "message"
	default:
		return "other"
	}
}

func (h *TelegramHandler) handleTextMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start":
		h.sendMessage(chatID, welcomeText)
		return nil
	case service.IsLinkToken(text):
		return h.handleLinkToken(ctx, chatID, text)
	}

	user, err := h.service.GetUserByChatID(ctx, chatID)
	if errors.Is(err, models.ErrNotFound) {
		h.sendMessage(chatID, unlinkedHintText)
		return nil
	}
	if err != nil {
		h.sendMessage(chatID, internalErrorText)
		return fmt.Errorf("handle text message (chat_id: %d): %w", chatID, err)
	}

	h.sendMessage(chatID, fmt.Sprintf(linkedHintText, escapeHTML(user.Username)))
	return nil
}

func (h *TelegramHandler) handleLinkToken(ctx context.Context, chatID int64, token string) error {
	user, err := h.service.LinkAccount(ctx, chatID, token)
	switch {
	case errors.Is(err, service.ErrLinkTokenExpired):
		zap.L().Info("expired link token", zap.Int64("chat_id", chatID))
		h.sendMessage(chatID, tokenExpiredText)
		return nil
	case errors.Is(err, service.ErrLinkTokenInvalid):
		zap.L().Info("unknown link token", zap.Int64("chat_id", chatID))
		h.sendMessage(chatID, tokenInvalidText)
		return nil
	case err != nil:
		h.sendMessage(chatID, linkErrorText)
		return err
	}

	h.sendMessage(chatID, fmt.Sprintf(linkedText, escapeHTML(user.Username)))
	return nil
}

func (h *TelegramHandler) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.Message.Chat == nil {
		zap.L().Warn("callback without message", zap.String("callback_id", callback.ID))
		return nil
	}

	chatID := callback.Message.Chat.ID

	token, err := service.ParseFeedbackToken(callback.Data)
	if err != nil {
		return err
	}

	result, err := h.service.ApplyFeedback(ctx, chatID, token)
	if errors.Is(err, models.ErrNotFound) {
		zap.L().Warn("feedback for unknown user or word",
			zap.Error(err), zap.Int64("chat_id", chatID), zap.String("data", callback.Data))
		h.answerCallback(callback.ID, callbackErrorText)
		return nil
	}
	if err != nil {
		h.answerCallback(callback.ID, callbackErrorText)
		return err
	}

	metrics.Feedback.WithLabelValues(token.Action.String()).Inc()

	// the answer is already committed, delivery problems are only logged
	h.answerCallback(callback.ID, result.Text)
	if err := h.gateway.ClearControls(chatID, callback.Message.MessageID); err != nil {
		zap.L().Error("clear feedback buttons", zap.Error(err), zap.Int64("chat_id", chatID))
	}

	return nil
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, `"`, "&quot;")
	return text
}

func (h *TelegramHandler) sendMessage(chatID int64, text string) {
	if err := h.gateway.SendText(chatID, text); err != nil {
		zap.L().Error("send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (h *TelegramHandler) answerCallback(callbackID, text string) {
	if err := h.gateway.AnswerCallback(callbackID, text); err != nil {
		zap.L().Error("answer callback", zap.Error(err), zap.String("callback_id", callbackID))
	}
}
