package service

import (
	"context"
	"sort"
	"time"

	"github.com/yourusername/vocabot/internal/models"
)

type progressKey struct {
	userID, vocabularyID int64
}

// memRepo is an in-memory models.Repository. Returned values are copies, so
// callers must write changes back the same way they would with Postgres.
type memRepo struct {
	users    map[int64]*models.UserProfile
	vocabs   map[int64]*models.Vocabulary
	images   map[int64]*models.VocabularyImage
	progress map[progressKey]*models.ReviewProgress
	nextID   int64
	now      time.Time

	failUpdateProgress error
}

func newMemRepo(now time.Time) *memRepo {
	return &memRepo{
		users:    map[int64]*models.UserProfile{},
		vocabs:   map[int64]*models.Vocabulary{},
		images:   map[int64]*models.VocabularyImage{},
		progress: map[progressKey]*models.ReviewProgress{},
		now:      now,
	}
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) RunInTx(ctx context.Context, fn func(models.Repository) error) error {
	return fn(r)
}

func (r *memRepo) CreateUser(ctx context.Context, user *models.UserProfile) error {
	user.ID = r.id()
	u := *user
	r.users[u.ID] = &u
	return nil
}

func (r *memRepo) findUser(match func(*models.UserProfile) bool) (*models.UserProfile, error) {
	for _, u := range r.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *memRepo) GetUser(ctx context.Context, userID int64) (*models.UserProfile, error) {
	return r.findUser(func(u *models.UserProfile) bool { return u.ID == userID })
}

func (r *memRepo) GetUserByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	return r.findUser(func(u *models.UserProfile) bool { return u.Username == username })
}

func (r *memRepo) GetUserByChatID(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	return r.findUser(func(u *models.UserProfile) bool { return u.ChatID != nil && *u.ChatID == chatID })
}

func (r *memRepo) GetUserByLinkToken(ctx context.Context, token string) (*models.UserProfile, error) {
	return r.findUser(func(u *models.UserProfile) bool { return u.LinkToken != nil && *u.LinkToken == token })
}

func (r *memRepo) GetLinkedUsers(ctx context.Context) ([]*models.UserProfile, error) {
	var users []*models.UserProfile
	for _, u := range r.users {
		if u.Linked() {
			c := *u
			users = append(users, &c)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memRepo) SetLinkToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	u, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.LinkToken = &token
	u.LinkTokenExpiresAt = &expiresAt
	return nil
}

func (r *memRepo) ClearLinkToken(ctx context.Context, userID int64) error {
	u, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.LinkToken = nil
	u.LinkTokenExpiresAt = nil
	return nil
}

func (r *memRepo) LinkChat(ctx context.Context, userID, chatID int64) error {
	u, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	for _, other := range r.users {
		if other.ID != userID && other.ChatID != nil && *other.ChatID == chatID {
			other.ChatID = nil
		}
	}
	u.ChatID = &chatID
	u.LinkToken = nil
	u.LinkTokenExpiresAt = nil
	return nil
}

func (r *memRepo) UnlinkChat(ctx context.Context, userID int64) error {
	u, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.ChatID = nil
	u.LinkToken = nil
	u.LinkTokenExpiresAt = nil
	return nil
}

func (r *memRepo) CreateVocabulary(ctx context.Context, vocab *models.Vocabulary) error {
	vocab.ID = r.id()
	v := *vocab
	r.vocabs[v.ID] = &v
	return nil
}

func (r *memRepo) GetVocabulary(ctx context.Context, vocabularyID int64) (*models.Vocabulary, error) {
	v, ok := r.vocabs[vocabularyID]
	if !ok {
		return nil, models.ErrVocabularyNotFound
	}
	c := *v
	return &c, nil
}

func (r *memRepo) sortedVocabs(match func(*models.Vocabulary) bool) []*models.Vocabulary {
	var vocabs []*models.Vocabulary
	for _, v := range r.vocabs {
		if match(v) {
			c := *v
			vocabs = append(vocabs, &c)
		}
	}
	sort.Slice(vocabs, func(i, j int) bool {
		if !vocabs[i].CreatedAt.Equal(vocabs[j].CreatedAt) {
			return vocabs[i].CreatedAt.Before(vocabs[j].CreatedAt)
		}
		return vocabs[i].ID < vocabs[j].ID
	})
	return vocabs
}

func limit[T any](items []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

func (r *memRepo) GetNewVocabulary(ctx context.Context, userID int64, n int) ([]*models.Vocabulary, error) {
	vocabs := r.sortedVocabs(func(v *models.Vocabulary) bool {
		_, reviewed := r.progress[progressKey{userID, v.ID}]
		return v.UserID == userID && !reviewed
	})
	return limit(vocabs, n), nil
}

func (r *memRepo) CreateImage(ctx context.Context, image *models.VocabularyImage) error {
	image.ID = r.id()
	i := *image
	r.images[i.ID] = &i
	return nil
}

func (r *memRepo) GetImage(ctx context.Context, imageID, vocabularyID int64) (*models.VocabularyImage, error) {
	i, ok := r.images[imageID]
	if !ok || i.VocabularyID != vocabularyID {
		return nil, models.ErrImageNotFound
	}
	c := *i
	return &c, nil
}

func (r *memRepo) GetImages(ctx context.Context, vocabularyID int64) ([]*models.VocabularyImage, error) {
	var images []*models.VocabularyImage
	for _, i := range r.images {
		if i.VocabularyID == vocabularyID {
			c := *i
			images = append(images, &c)
		}
	}
	sort.Slice(images, func(a, b int) bool { return images[a].ID < images[b].ID })
	return images, nil
}

func (r *memRepo) SetImageFlag(ctx context.Context, imageID int64, flag bool) error {
	if i, ok := r.images[imageID]; ok {
		i.Flag = flag
	}
	return nil
}

func (r *memRepo) AllImagesFlagged(ctx context.Context) (bool, error) {
	if len(r.images) == 0 {
		return false, nil
	}
	for _, i := range r.images {
		if !i.Flag {
			return false, nil
		}
	}
	return true, nil
}

func (r *memRepo) ResetImageFlags(ctx context.Context) error {
	for _, i := range r.images {
		i.Flag = false
	}
	return nil
}

func (r *memRepo) GetOrCreateProgress(ctx context.Context, userID, vocabularyID int64) (*models.ReviewProgress, error) {
	key := progressKey{userID, vocabularyID}
	p, ok := r.progress[key]
	if !ok {
		p = &models.ReviewProgress{
			ID:           r.id(),
			UserID:       userID,
			VocabularyID: vocabularyID,
			NextReview:   r.now,
			EaseFactor:   models.DefaultEaseFactor,
		}
		r.progress[key] = p
	}
	c := *p
	return &c, nil
}

func (r *memRepo) UpdateProgress(ctx context.Context, progress *models.ReviewProgress) error {
	if r.failUpdateProgress != nil {
		return r.failUpdateProgress
	}
	c := *progress
	r.progress[progressKey{progress.UserID, progress.VocabularyID}] = &c
	return nil
}

func (r *memRepo) byReview(userID int64, match func(time.Time) bool, n int) []*models.Vocabulary {
	var rows []*models.ReviewProgress
	for _, p := range r.progress {
		v, ok := r.vocabs[p.VocabularyID]
		if p.UserID == userID && ok && v.UserID == userID && match(p.NextReview) {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].NextReview.Equal(rows[j].NextReview) {
			return rows[i].NextReview.Before(rows[j].NextReview)
		}
		return rows[i].ID < rows[j].ID
	})

	var vocabs []*models.Vocabulary
	for _, p := range limit(rows, n) {
		c := *r.vocabs[p.VocabularyID]
		vocabs = append(vocabs, &c)
	}
	return vocabs
}

func (r *memRepo) GetOverdueVocabulary(ctx context.Context, userID int64, now time.Time, n int) ([]*models.Vocabulary, error) {
	return r.byReview(userID, func(t time.Time) bool { return !t.After(now) }, n), nil
}

func (r *memRepo) GetUpcomingVocabulary(ctx context.Context, userID int64, now time.Time, n int) ([]*models.Vocabulary, error) {
	return r.byReview(userID, func(t time.Time) bool { return t.After(now) }, n), nil
}
