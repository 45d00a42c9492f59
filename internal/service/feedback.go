package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/vocabot/internal/models"
	"github.com/yourusername/vocabot/internal/service/srs"
	"go.uber.org/zap"
)

var ErrMalformedToken = errors.New("malformed feedback token")

// Action is the user's answer to a flashcard.
type Action int

const (
	ActionUnknown Action = iota
	ActionRemembered
	ActionForgot
)

const (
	FeedbackRemembered = "Good job!"
	FeedbackForgot     = "It's ok, we'll review it later."
	FeedbackUnknown    = "Unknown"

	noImage = "none"
)

func ParseAction(s string) Action {
	switch s {
	case "remembered", "knew":
		return ActionRemembered
	case "forgot", "didnt_know":
		return ActionForgot
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	switch a {
	case ActionRemembered:
		return "remembered"
	case ActionForgot:
		return "forgot"
	default:
		return "unknown"
	}
}

// FeedbackToken is the callback payload attached to flashcard buttons:
// "action:vocabularyID:imageID", with "none" when no image was sent.
type FeedbackToken struct {
	Action       Action
	RawAction    string
	VocabularyID int64
	ImageID      int64
}

func NewFeedbackToken(action Action, vocabularyID, imageID int64) FeedbackToken {
	return FeedbackToken{
		Action:       action,
		RawAction:    action.String(),
		VocabularyID: vocabularyID,
		ImageID:      imageID,
	}
}

func (t FeedbackToken) String() string {
	image := noImage
	if t.ImageID > 0 {
		image = strconv.FormatInt(t.ImageID, 10)
	}

	action := t.RawAction
	if action == "" {
		action = t.Action.String()
	}

	return fmt.Sprintf("%s:%d:%s", action, t.VocabularyID, image)
}

func ParseFeedbackToken(data string) (FeedbackToken, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return FeedbackToken{}, fmt.Errorf("%w: %q", ErrMalformedToken, data)
	}

	vocabularyID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || vocabularyID <= 0 {
		return FeedbackToken{}, fmt.Errorf("%w: bad vocabulary id in %q", ErrMalformedToken, data)
	}

	token := FeedbackToken{
		Action:       ParseAction(parts[0]),
		RawAction:    parts[0],
		VocabularyID: vocabularyID,
	}

	// anything but a plain number means no image was attached
	if len(parts) > 2 {
		if imageID, err := strconv.ParseUint(parts[2], 10, 63); err == nil {
			token.ImageID = int64(imageID)
		}
	}

	return token, nil
}

type FeedbackResult struct {
	Text     string
	Progress *models.ReviewProgress
	Image    *models.VocabularyImage
}

// ApplyFeedback records the answer given in chatID for the token's word. The
// progress row, its image flag and the global flag rebalance are written in a
// single transaction.
func (s *Service) ApplyFeedback(ctx context.Context, chatID int64, token FeedbackToken) (*FeedbackResult, error) {
	result := &FeedbackResult{Text: FeedbackUnknown}

	err := s.repo.RunInTx(ctx, func(repo models.Repository) error {
		user, err := repo.GetUserByChatID(ctx, chatID)
		if err != nil {
			return err
		}

		vocab, err := repo.GetVocabulary(ctx, token.VocabularyID)
		if err != nil {
			return err
		}
		if vocab.UserID != user.ID {
			return fmt.Errorf("check vocabulary owner (vocabulary_id: %d, user_id: %d): %w", vocab.ID, user.ID, models.ErrVocabularyNotFound)
		}

		progress, err := repo.GetOrCreateProgress(ctx, user.ID, vocab.ID)
		if err != nil {
			return err
		}
		result.Progress = progress

		now := s.now()
		switch token.Action {
		case ActionRemembered:
			srs.Apply(progress, srs.Remembered, now)
			progress.KnewCount++
			result.Text = FeedbackRemembered
		case ActionForgot:
			srs.Apply(progress, srs.Forgot, now)
			progress.DidntKnowCount++
			result.Text = FeedbackForgot
		default:
			zap.L().Warn("unknown feedback action", zap.String("action", token.RawAction), zap.Int64("vocabulary_id", vocab.ID))
			return nil
		}

		if err := repo.UpdateProgress(ctx, progress); err != nil {
			return err
		}

		if token.ImageID == 0 {
			return nil
		}

		image, err := repo.GetImage(ctx, token.ImageID, vocab.ID)
		if errors.Is(err, models.ErrNotFound) {
			zap.L().Warn("image not found for vocabulary, skipping flag update",
				zap.Int64("image_id", token.ImageID), zap.Int64("vocabulary_id", vocab.ID))
			return nil
		}
		if err != nil {
			return err
		}

		if err := writeImageFlag(ctx, repo, image, token.Action == ActionRemembered); err != nil {
			return err
		}
		result.Image = image

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply feedback (chat_id: %d, token: %s): %w", chatID, token, err)
	}

	return result, nil
}
