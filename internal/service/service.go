package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/yourusername/vocabot/internal/models"
	"go.uber.org/zap"
)

type Service struct {
	repo models.Repository

	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func NewService(repo models.Repository) *Service {
	return &Service{
		repo:    repo,
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
}

func (s *Service) GetLinkedUsers(ctx context.Context) ([]*models.UserProfile, error) {
	users, err := s.repo.GetLinkedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("get linked users: %w", err)
	}
	return users, nil
}

func (s *Service) GetUserByChatID(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	return s.repo.GetUserByChatID(ctx, chatID)
}

// SelectDueVocabulary picks up to n words for the user's next batch.
//
// Overdue words fill at most half of the batch, words scheduled for later fill
// at most half of what is left, and never-reviewed words take the rest. A tier
// that comes up short only leaves room for the tiers after it. The result is
// shuffled so the tier order does not leak into delivery order.
func (s *Service) SelectDueVocabulary(ctx context.Context, userID int64, n int) ([]*models.Vocabulary, error) {
	if n <= 0 {
		return nil, nil
	}

	now := s.now()

	overdue, err := s.repo.GetOverdueVocabulary(ctx, userID, now, n/2)
	if err != nil {
		return nil, fmt.Errorf("select overdue (user_id: %d): %w", userID, err)
	}

	upcoming, err := s.repo.GetUpcomingVocabulary(ctx, userID, now, (n-len(overdue))/2)
	if err != nil {
		return nil, fmt.Errorf("select upcoming (user_id: %d): %w", userID, err)
	}

	fresh, err := s.repo.GetNewVocabulary(ctx, userID, n-len(overdue)-len(upcoming))
	if err != nil {
		return nil, fmt.Errorf("select new (user_id: %d): %w", userID, err)
	}

	seen := make(map[int64]bool, n)
	result := make([]*models.Vocabulary, 0, len(overdue)+len(upcoming)+len(fresh))
	for _, tier := range [][]*models.Vocabulary{overdue, upcoming, fresh} {
		for _, vocab := range tier {
			if seen[vocab.ID] {
				continue
			}
			seen[vocab.ID] = true
			result = append(result, vocab)
		}
	}

	if len(result) == 0 {
		zap.L().Info("no scheduled or new words", zap.Int64("user_id", userID))
		return result, nil
	}

	s.shuffle(len(result), func(i, j int) {
		result[i], result[j] = result[j], result[i]
	})

	return result, nil
}

// PrepareFlashcards selects the user's batch and chooses an image for every word.
// A word whose images cannot be loaded is still returned, without an image.
func (s *Service) PrepareFlashcards(ctx context.Context, userID int64, n int) ([]*models.Flashcard, error) {
	vocabs, err := s.SelectDueVocabulary(ctx, userID, n)
	if err != nil {
		return nil, err
	}

	cards := make([]*models.Flashcard, 0, len(vocabs))
	for _, vocab := range vocabs {
		images, err := s.repo.GetImages(ctx, vocab.ID)
		if err != nil {
			zap.L().Error("load images", zap.Error(err), zap.Int64("vocabulary_id", vocab.ID))
		}
		vocab.Images = images

		cards = append(cards, &models.Flashcard{
			Vocabulary: vocab,
			Image:      PickImage(images),
		})
	}

	return cards, nil
}
