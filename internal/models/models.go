package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrVocabularyNotFound = fmt.Errorf("vocabulary %w", ErrNotFound)
	ErrImageNotFound      = fmt.Errorf("image %w", ErrNotFound)
)

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

type UserProfile struct {
	ID                 int64      `db:"id"`
	Username           string     `db:"username"`
	ChatID             *int64     `db:"chat_id"`
	LinkToken          *string    `db:"link_token"`
	LinkTokenExpiresAt *time.Time `db:"link_token_expires_at"`
	CreatedAt          time.Time  `db:"created_at"`
}

// Linked reports whether the profile is bound to a Telegram chat.
func (u *UserProfile) Linked() bool {
	return u.ChatID != nil && *u.ChatID != 0
}

type Vocabulary struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Word        string    `db:"word"`
	Meaning     string    `db:"meaning"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`

	Images []*VocabularyImage `db:"-"`
}

type VocabularyImage struct {
	ID           int64  `db:"id"`
	VocabularyID int64  `db:"vocabulary_id"`
	Path         string `db:"image_path"`
	Caption      string `db:"caption"`
	Flag         bool   `db:"flag"`
}

// HasContent reports whether the image points at an uploaded file.
func (i *VocabularyImage) HasContent() bool {
	return i.Path != ""
}

type ReviewProgress struct {
	ID             int64      `db:"id"`
	UserID         int64      `db:"user_id"`
	VocabularyID   int64      `db:"vocabulary_id"`
	AppearedCount  int        `db:"appeared_count"`
	KnewCount      int        `db:"knew_count"`
	DidntKnowCount int        `db:"didnt_know_count"`
	LastAppeared   *time.Time `db:"last_appeared"`
	NextReview     time.Time  `db:"next_review"`
	IntervalDays   int        `db:"interval_days"`
	EaseFactor     float64    `db:"ease_factor"`
}

// Flashcard is a vocabulary item ready to be sent, with the image chosen for it.
// Image is nil when the default placeholder has to be used.
type Flashcard struct {
	Vocabulary *Vocabulary
	Image      *VocabularyImage
}
