package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/vocabot/internal/models"
	"github.com/yourusername/vocabot/internal/pkg/metrics"
	"github.com/yourusername/vocabot/internal/service"
	"go.uber.org/zap"
)

const (
	rememberedButton = "✅ I remembered"
	forgotButton     = "❌ I forgot"
)

// SendVocabularyBatch delivers a set of flashcards to every linked user. A
// failure for one card or one user does not stop the rest.
func (h *TelegramHandler) SendVocabularyBatch(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	users, err := h.service.GetLinkedUsers(ctx)
	if err != nil {
		return fmt.Errorf("send vocabulary batch: %w", err)
	}

	if len(users) == 0 {
		zap.L().Info("no linked users, skipping batch")
		return nil
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !user.Linked() {
			continue
		}
		h.sendUserBatch(ctx, user)
	}

	zap.L().Info("vocabulary batch finished", zap.Int("users", len(users)), zap.Duration("took", time.Since(start)))
	return nil
}

func (h *TelegramHandler) sendUserBatch(ctx context.Context, user *models.UserProfile) {
	chatID := *user.ChatID

	cards, err := h.service.PrepareFlashcards(ctx, user.ID, h.opts.BatchSize)
	if err != nil {
		zap.L().Error("prepare flashcards", zap.Error(err), zap.Int64("user_id", user.ID))
		return
	}

	if len(cards) == 0 {
		zap.L().Info("nothing to review", zap.Int64("user_id", user.ID))
		return
	}

	for _, card := range cards {
		if err := h.sendFlashcard(chatID, card); err != nil {
			metrics.FlashcardsSent.WithLabelValues("error").Inc()
			zap.L().Error("send flashcard", zap.Error(err),
				zap.Int64("user_id", user.ID), zap.Int64("vocabulary_id", card.Vocabulary.ID))
			continue
		}
		metrics.FlashcardsSent.WithLabelValues("ok").Inc()
	}
}

func (h *TelegramHandler) sendFlashcard(chatID int64, card *models.Flashcard) error {
	var (
		imageID int64
		photo   Photo
		err     error
	)

	if card.Image != nil {
		photo, err = h.loadPhoto(filepath.Join(h.opts.MediaRoot, card.Image.Path))
		if err == nil {
			imageID = card.Image.ID
		} else {
			zap.L().Warn("image file unavailable, using default image", zap.Error(err),
				zap.Int64("image_id", card.Image.ID), zap.String("path", card.Image.Path))
		}
	}

	if imageID == 0 {
		photo, err = h.loadPhoto(h.opts.DefaultImage)
		if err != nil {
			return err
		}
	}

	keyboard := feedbackKeyboard(card.Vocabulary.ID, imageID)
	return h.gateway.SendPhoto(chatID, photo, buildCaption(card), &keyboard)
}

func (h *TelegramHandler) loadPhoto(path string) (Photo, error) {
	data, err := h.readFile(path)
	if err != nil {
		return Photo{}, fmt.Errorf("read image (path: %s): %w", path, err)
	}
	return Photo{Name: filepath.Base(path), Bytes: data}, nil
}

// buildCaption renders the card with the meaning and description hidden
// behind spoilers. The image caption takes precedence over the word's
// description.
func buildCaption(card *models.Flashcard) string {
	description := card.Vocabulary.Description
	if card.Image != nil && card.Image.Caption != "" {
		description = card.Image.Caption
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Word: <b>%s</b>\n\n", escapeHTML(card.Vocabulary.Word))
	fmt.Fprintf(&b, "Meaning: <tg-spoiler>%s</tg-spoiler>\n\n", escapeHTML(card.Vocabulary.Meaning))
	if description != "" {
		fmt.Fprintf(&b, "Description: <tg-spoiler>%s</tg-spoiler>", escapeHTML(description))
	}
	return b.String()
}

func feedbackKeyboard(vocabularyID, imageID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(rememberedButton,
				service.NewFeedbackToken(service.ActionRemembered, vocabularyID, imageID).String()),
			tgbotapi.NewInlineKeyboardButtonData(forgotButton,
				service.NewFeedbackToken(service.ActionForgot, vocabularyID, imageID).String()),
		),
	)
}
