package service

import (
	"context"
	"fmt"

	"github.com/yourusername/vocabot/internal/models"
	"go.uber.org/zap"
)

// PickImage chooses the image to show with a word: the first one not yet
// acknowledged, otherwise the first one with content. It returns nil when no
// image has content.
func PickImage(images []*models.VocabularyImage) *models.VocabularyImage {
	var fallback *models.VocabularyImage
	for _, img := range images {
		if img == nil || !img.HasContent() {
			continue
		}
		if !img.Flag {
			return img
		}
		if fallback == nil {
			fallback = img
		}
	}
	return fallback
}

// writeImageFlag stores the flag and then rebalances the flags of the whole
// image table: once every image in the system is flagged, all of them are
// cleared. The scope is intentionally global, not per word or per user.
func writeImageFlag(ctx context.Context, repo models.Repository, image *models.VocabularyImage, flag bool) error {
	if err := repo.SetImageFlag(ctx, image.ID, flag); err != nil {
		return err
	}
	image.Flag = flag

	allFlagged, err := repo.AllImagesFlagged(ctx)
	if err != nil {
		return fmt.Errorf("rebalance image flags: %w", err)
	}

	if !allFlagged {
		return nil
	}

	zap.L().Info("all images flagged, resetting every image flag")
	if err := repo.ResetImageFlags(ctx); err != nil {
		return fmt.Errorf("rebalance image flags: %w", err)
	}
	image.Flag = false

	return nil
}
