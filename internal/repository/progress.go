package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yourusername/vocabot/internal/models"
)

var progressColumns = []string{
	"id", "user_id", "vocabulary_id", "appeared_count", "knew_count", "didnt_know_count",
	"last_appeared", "next_review", "interval_days", "ease_factor",
}

// GetOrCreateProgress inserts the default row for the pair if it is missing
// and returns it locked for update. The unique (user_id, vocabulary_id) key
// makes concurrent callers converge on the same row.
func (r *Postgres) GetOrCreateProgress(ctx context.Context, userID, vocabularyID int64) (*models.ReviewProgress, error) {
	insert := r.psql.Insert("review_progress").
		Columns("user_id", "vocabulary_id").
		Values(userID, vocabularyID).
		Suffix("ON CONFLICT (user_id, vocabulary_id) DO NOTHING")

	if _, err := r.exec(ctx, insert); err != nil {
		return nil, fmt.Errorf("upsert progress (user_id: %d, vocabulary_id: %d): %w", userID, vocabularyID, err)
	}

	query := r.psql.Select(progressColumns...).
		From("review_progress").
		Where(squirrel.Eq{"user_id": userID, "vocabulary_id": vocabularyID}).
		Suffix("FOR UPDATE")

	var progress models.ReviewProgress
	if err := r.get(ctx, &progress, query); err != nil {
		return nil, fmt.Errorf("get progress (user_id: %d, vocabulary_id: %d): %w", userID, vocabularyID, err)
	}

	return &progress, nil
}

func (r *Postgres) UpdateProgress(ctx context.Context, progress *models.ReviewProgress) error {
	query := r.psql.Update("review_progress").
		Set("appeared_count", progress.AppearedCount).
		Set("knew_count", progress.KnewCount).
		Set("didnt_know_count", progress.DidntKnowCount).
		Set("last_appeared", progress.LastAppeared).
		Set("next_review", progress.NextReview).
		Set("interval_days", progress.IntervalDays).
		Set("ease_factor", progress.EaseFactor).
		Where(squirrel.Eq{"id": progress.ID})

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("update progress (user_id: %d, vocabulary_id: %d, interval_days: %d): %w",
			progress.UserID, progress.VocabularyID, progress.IntervalDays, err)
	}
	return nil
}
