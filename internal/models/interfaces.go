package models

import (
	"context"
	"time"
)

type Repository interface {
	RunInTx(ctx context.Context, fn func(Repository) error) error

	CreateUser(ctx context.Context, user *UserProfile) error
	GetUser(ctx context.Context, userID int64) (*UserProfile, error)
	GetUserByUsername(ctx context.Context, username string) (*UserProfile, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*UserProfile, error)
	GetUserByLinkToken(ctx context.Context, token string) (*UserProfile, error)
	GetLinkedUsers(ctx context.Context) ([]*UserProfile, error)
	SetLinkToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	ClearLinkToken(ctx context.Context, userID int64) error
	LinkChat(ctx context.Context, userID, chatID int64) error
	UnlinkChat(ctx context.Context, userID int64) error

	CreateVocabulary(ctx context.Context, vocab *Vocabulary) error
	GetVocabulary(ctx context.Context, vocabularyID int64) (*Vocabulary, error)
	GetNewVocabulary(ctx context.Context, userID int64, limit int) ([]*Vocabulary, error)

	CreateImage(ctx context.Context, image *VocabularyImage) error
	GetImage(ctx context.Context, imageID, vocabularyID int64) (*VocabularyImage, error)
	GetImages(ctx context.Context, vocabularyID int64) ([]*VocabularyImage, error)
	SetImageFlag(ctx context.Context, imageID int64, flag bool) error
	AllImagesFlagged(ctx context.Context) (bool, error)
	ResetImageFlags(ctx context.Context) error

	GetOrCreateProgress(ctx context.Context, userID, vocabularyID int64) (*ReviewProgress, error)
	UpdateProgress(ctx context.Context, progress *ReviewProgress) error
	GetOverdueVocabulary(ctx context.Context, userID int64, now time.Time, limit int) ([]*Vocabulary, error)
	GetUpcomingVocabulary(ctx context.Context, userID int64, now time.Time, limit int) ([]*Vocabulary, error)
}
