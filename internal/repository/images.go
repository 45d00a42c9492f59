package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yourusername/vocabot/internal/models"
)

var imageColumns = []string{"id", "vocabulary_id", "image_path", "caption", "flag"}

func (r *Postgres) CreateImage(ctx context.Context, image *models.VocabularyImage) error {
	query := r.psql.Insert("vocabulary_images").
		Columns("vocabulary_id", "image_path", "caption", "flag").
		Values(image.VocabularyID, image.Path, image.Caption, image.Flag).
		Suffix("RETURNING id")

	if err := r.get(ctx, &image.ID, query); err != nil {
		return fmt.Errorf("create image (vocabulary_id: %d): %w", image.VocabularyID, err)
	}
	return nil
}

// GetImage returns the image only if it belongs to the given vocabulary.
func (r *Postgres) GetImage(ctx context.Context, imageID, vocabularyID int64) (*models.VocabularyImage, error) {
	query := r.psql.Select(imageColumns...).
		From("vocabulary_images").
		Where(squirrel.Eq{"id": imageID, "vocabulary_id": vocabularyID})

	var image models.VocabularyImage
	if err := r.get(ctx, &image, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get image (id: %d, vocabulary_id: %d): %w", imageID, vocabularyID, models.ErrImageNotFound)
		}
		return nil, fmt.Errorf("get image (id: %d, vocabulary_id: %d): %w", imageID, vocabularyID, err)
	}

	return &image, nil
}

func (r *Postgres) GetImages(ctx context.Context, vocabularyID int64) ([]*models.VocabularyImage, error) {
	query := r.psql.Select(imageColumns...).
		From("vocabulary_images").
		Where(squirrel.Eq{"vocabulary_id": vocabularyID}).
		OrderBy("id ASC")

	var images []*models.VocabularyImage
	if err := r.selectAll(ctx, &images, query); err != nil {
		return nil, fmt.Errorf("query images (vocabulary_id: %d): %w", vocabularyID, err)
	}

	return images, nil
}

func (r *Postgres) SetImageFlag(ctx context.Context, imageID int64, flag bool) error {
	query := r.psql.Update("vocabulary_images").
		Set("flag", flag).
		Where(squirrel.Eq{"id": imageID})

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("set image flag (id: %d, flag: %t): %w", imageID, flag, err)
	}
	return nil
}

// AllImagesFlagged reports whether at least one image exists and none of them
// has the flag cleared. The check spans every image in the database.
func (r *Postgres) AllImagesFlagged(ctx context.Context) (bool, error) {
	query := r.psql.Select().
		Column("EXISTS (SELECT 1 FROM vocabulary_images) AND NOT EXISTS (SELECT 1 FROM vocabulary_images WHERE flag = FALSE)")

	var flagged bool
	if err := r.get(ctx, &flagged, query); err != nil {
		return false, fmt.Errorf("check image flags: %w", err)
	}
	return flagged, nil
}

func (r *Postgres) ResetImageFlags(ctx context.Context) error {
	query := r.psql.Update("vocabulary_images").
		Set("flag", false).
		Where(squirrel.Eq{"flag": true})

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("reset image flags: %w", err)
	}
	return nil
}
