package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yourusername/vocabot/internal/models"
)

var vocabularyColumns = []string{"v.id", "v.user_id", "v.word", "v.meaning", "v.description", "v.created_at"}

func (r *Postgres) CreateVocabulary(ctx context.Context, vocab *models.Vocabulary) error {
	query := r.psql.Insert("vocabularies").
		Columns("user_id", "word", "meaning", "description", "created_at").
		Values(vocab.UserID, vocab.Word, vocab.Meaning, vocab.Description, vocab.CreatedAt).
		Suffix("RETURNING id")

	if err := r.get(ctx, &vocab.ID, query); err != nil {
		return fmt.Errorf("create vocabulary (user_id: %d, word: %s): %w", vocab.UserID, vocab.Word, err)
	}
	return nil
}

func (r *Postgres) GetVocabulary(ctx context.Context, vocabularyID int64) (*models.Vocabulary, error) {
	query := r.psql.Select(vocabularyColumns...).
		From("vocabularies v").
		Where(squirrel.Eq{"v.id": vocabularyID})

	var vocab models.Vocabulary
	if err := r.get(ctx, &vocab, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get vocabulary (id: %d): %w", vocabularyID, models.ErrVocabularyNotFound)
		}
		return nil, fmt.Errorf("get vocabulary (id: %d): %w", vocabularyID, err)
	}

	return &vocab, nil
}

// GetNewVocabulary returns the user's oldest words that have never been reviewed.
func (r *Postgres) GetNewVocabulary(ctx context.Context, userID int64, limit int) ([]*models.Vocabulary, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := r.psql.Select(vocabularyColumns...).
		From("vocabularies v").
		LeftJoin("review_progress p ON p.vocabulary_id = v.id AND p.user_id = v.user_id").
		Where(squirrel.Eq{"v.user_id": userID}).
		Where("p.id IS NULL").
		OrderBy("v.created_at ASC", "v.id ASC").
		Limit(uint64(limit))

	var vocabs []*models.Vocabulary
	if err := r.selectAll(ctx, &vocabs, query); err != nil {
		return nil, fmt.Errorf("query new vocabulary (user_id: %d): %w", userID, err)
	}

	return vocabs, nil
}

func (r *Postgres) GetOverdueVocabulary(ctx context.Context, userID int64, now time.Time, limit int) ([]*models.Vocabulary, error) {
	vocabs, err := r.vocabularyByReview(ctx, userID, squirrel.LtOrEq{"p.next_review": now}, limit)
	if err != nil {
		return nil, fmt.Errorf("query overdue vocabulary (user_id: %d, now: %s): %w", userID, now.Format(time.RFC3339), err)
	}
	return vocabs, nil
}

func (r *Postgres) GetUpcomingVocabulary(ctx context.Context, userID int64, now time.Time, limit int) ([]*models.Vocabulary, error) {
	vocabs, err := r.vocabularyByReview(ctx, userID, squirrel.Gt{"p.next_review": now}, limit)
	if err != nil {
		return nil, fmt.Errorf("query upcoming vocabulary (user_id: %d, now: %s): %w", userID, now.Format(time.RFC3339), err)
	}
	return vocabs, nil
}

func (r *Postgres) vocabularyByReview(ctx context.Context, userID int64, pred squirrel.Sqlizer, limit int) ([]*models.Vocabulary, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := r.psql.Select(vocabularyColumns...).
		From("review_progress p").
		Join("vocabularies v ON v.id = p.vocabulary_id").
		Where(squirrel.Eq{"p.user_id": userID, "v.user_id": userID}).
		Where(pred).
		OrderBy("p.next_review ASC", "p.id ASC").
		Limit(uint64(limit))

	var vocabs []*models.Vocabulary
	if err := r.selectAll(ctx, &vocabs, query); err != nil {
		return nil, err
	}

	return vocabs, nil
}
