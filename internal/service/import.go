package service

import (
	"context"
	"fmt"

	"github.com/yourusername/vocabot/internal/importer"
	"github.com/yourusername/vocabot/internal/models"
	"go.uber.org/zap"
)

// ImportVocabulary stores the rows as new words of the user. A row with an
// image path also gets an unflagged image. All rows are written in one
// transaction.
func (s *Service) ImportVocabulary(ctx context.Context, userID int64, rows []importer.Row) (int, error) {
	created := 0

	err := s.repo.RunInTx(ctx, func(repo models.Repository) error {
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return err
		}

		for _, row := range rows {
			vocab := &models.Vocabulary{
				UserID:      userID,
				Word:        row.Word,
				Meaning:     row.Meaning,
				Description: row.Description,
				CreatedAt:   s.now(),
			}
			if err := repo.CreateVocabulary(ctx, vocab); err != nil {
				return fmt.Errorf("row %d: %w", row.Line, err)
			}

			if row.Image != "" {
				image := &models.VocabularyImage{
					VocabularyID: vocab.ID,
					Path:         row.Image,
					Caption:      row.Caption,
				}
				if err := repo.CreateImage(ctx, image); err != nil {
					return fmt.Errorf("row %d: %w", row.Line, err)
				}
			}

			created++
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import vocabulary (user_id: %d): %w", userID, err)
	}

	zap.L().Info("vocabulary imported", zap.Int64("user_id", userID), zap.Int("count", created))

	return created, nil
}
