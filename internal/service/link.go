package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/vocabot/internal/models"
	"go.uber.org/zap"
)

const (
	LinkTokenLength = 12
	LinkTokenTTL    = 15 * time.Minute
)

var (
	ErrLinkTokenInvalid = errors.New("link token is invalid")
	ErrLinkTokenExpired = errors.New("link token is expired")

	linkTokenPattern = regexp.MustCompile(`^[A-Z0-9]{12}$`)
)

// IsLinkToken reports whether text has the shape of an account linking code.
func IsLinkToken(text string) bool {
	return linkTokenPattern.MatchString(text)
}

func newLinkToken() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:LinkTokenLength])
}

// IssueLinkToken returns the user's active linking code, or a fresh one valid
// for LinkTokenTTL. An expired code is cleared before a new one is issued.
func (s *Service) IssueLinkToken(ctx context.Context, userID int64) (string, time.Time, error) {
	var (
		token     string
		expiresAt time.Time
	)

	err := s.repo.RunInTx(ctx, func(repo models.Repository) error {
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		if user.LinkToken != nil && user.LinkTokenExpiresAt != nil {
			if now.Before(*user.LinkTokenExpiresAt) {
				token, expiresAt = *user.LinkToken, *user.LinkTokenExpiresAt
				return nil
			}

			if err := repo.ClearLinkToken(ctx, user.ID); err != nil {
				return err
			}
			zap.L().Info("expired link token cleared", zap.Int64("user_id", user.ID))
		}

		token, expiresAt = newLinkToken(), now.Add(LinkTokenTTL)
		return repo.SetLinkToken(ctx, user.ID, token, expiresAt)
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue link token (user_id: %d): %w", userID, err)
	}

	return token, expiresAt, nil
}

// LinkAccount binds chatID to the user holding token. A consumed token is
// cleared together with its expiry. An expired token is left in place and
// reported with ErrLinkTokenExpired.
func (s *Service) LinkAccount(ctx context.Context, chatID int64, token string) (*models.UserProfile, error) {
	if !IsLinkToken(token) {
		return nil, ErrLinkTokenInvalid
	}

	var linked *models.UserProfile
	err := s.repo.RunInTx(ctx, func(repo models.Repository) error {
		user, err := repo.GetUserByLinkToken(ctx, token)
		if errors.Is(err, models.ErrNotFound) {
			return ErrLinkTokenInvalid
		}
		if err != nil {
			return err
		}

		if user.LinkTokenExpiresAt == nil || !s.now().Before(*user.LinkTokenExpiresAt) {
			return ErrLinkTokenExpired
		}

		if err := repo.LinkChat(ctx, user.ID, chatID); err != nil {
			return err
		}

		user.ChatID = &chatID
		user.LinkToken = nil
		user.LinkTokenExpiresAt = nil
		linked = user

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("link account (chat_id: %d): %w", chatID, err)
	}

	zap.L().Info("account linked", zap.Int64("user_id", linked.ID), zap.Int64("chat_id", chatID))

	return linked, nil
}

func (s *Service) UnlinkAccount(ctx context.Context, userID int64) error {
	if err := s.repo.UnlinkChat(ctx, userID); err != nil {
		return fmt.Errorf("unlink account (user_id: %d): %w", userID, err)
	}
	return nil
}
