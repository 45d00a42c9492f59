package handler

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/vocabot/internal/models"
	"github.com/yourusername/vocabot/internal/service"
)

type sentText struct {
	chatID int64
	text   string
}

type sentPhoto struct {
	chatID   int64
	photo    Photo
	caption  string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

type fakeGateway struct {
	batches   [][]tgbotapi.Update
	fetchErrs []error
	offsets   []int
	onFetch   func()

	texts    []sentText
	photos   []sentPhoto
	answers  map[string]string
	cleared  []int
	photoErr error
	ackErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{answers: map[string]string{}}
}

func (g *fakeGateway) FetchUpdates(ctx context.Context, offset int) ([]tgbotapi.Update, error) {
	g.offsets = append(g.offsets, offset)
	if g.onFetch != nil {
		g.onFetch()
	}
	if len(g.fetchErrs) > 0 {
		err := g.fetchErrs[0]
		g.fetchErrs = g.fetchErrs[1:]
		return nil, err
	}
	if len(g.batches) == 0 {
		return nil, nil
	}
	batch := g.batches[0]
	g.batches = g.batches[1:]
	return batch, nil
}

func (g *fakeGateway) SendText(chatID int64, text string) error {
	g.texts = append(g.texts, sentText{chatID, text})
	return nil
}

func (g *fakeGateway) SendPhoto(chatID int64, photo Photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if g.photoErr != nil {
		err := g.photoErr
		g.photoErr = nil
		return err
	}
	g.photos = append(g.photos, sentPhoto{chatID, photo, caption, keyboard})
	return nil
}

func (g *fakeGateway) AnswerCallback(callbackID, text string) error {
	g.answers[callbackID] = text
	return g.ackErr
}

func (g *fakeGateway) ClearControls(chatID int64, messageID int) error {
	g.cleared = append(g.cleared, messageID)
	return nil
}

type fakeService struct {
	byChat   map[int64]*models.UserProfile
	chatErr  error
	linked   []*models.UserProfile
	cards    map[int64][]*models.Flashcard
	cardsErr map[int64]error

	feedback func(chatID int64, token service.FeedbackToken) (*service.FeedbackResult, error)
	link     func(chatID int64, token string) (*models.UserProfile, error)

	batches int
	applied []service.FeedbackToken
}

func newFakeService() *fakeService {
	return &fakeService{
		byChat:   map[int64]*models.UserProfile{},
		cards:    map[int64][]*models.Flashcard{},
		cardsErr: map[int64]error{},
	}
}

func (s *fakeService) GetLinkedUsers(ctx context.Context) ([]*models.UserProfile, error) {
	s.batches++
	return s.linked, nil
}

func (s *fakeService) GetUserByChatID(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	if s.chatErr != nil {
		return nil, s.chatErr
	}
	user, ok := s.byChat[chatID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeService) PrepareFlashcards(ctx context.Context, userID int64, n int) ([]*models.Flashcard, error) {
	if err := s.cardsErr[userID]; err != nil {
		return nil, err
	}
	return s.cards[userID], nil
}

func (s *fakeService) ApplyFeedback(ctx context.Context, chatID int64, token service.FeedbackToken) (*service.FeedbackResult, error) {
	if s.feedback != nil {
		return s.feedback(chatID, token)
	}
	s.applied = append(s.applied, token)
	return &service.FeedbackResult{Text: service.FeedbackRemembered}, nil
}

func (s *fakeService) LinkAccount(ctx context.Context, chatID int64, token string) (*models.UserProfile, error) {
	if s.link != nil {
		return s.link(chatID, token)
	}
	return nil, service.ErrLinkTokenInvalid
}

type fakeDedup struct {
	seen map[int]bool
	err  error
}

func (d *fakeDedup) Seen(ctx context.Context, updateID int) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[updateID] {
		return true, nil
	}
	d.seen[updateID] = true
	return false, nil
}

var (
	testLoc  = time.UTC
	testDay  = time.Date(2024, 5, 20, 0, 0, 0, 0, testLoc)
	errFiles = errors.New("file does not exist")
)

// newTestHandler returns a handler whose clock sits before the daily batch,
// whose sleeps are recorded instead of waited and whose files come from
// memory.
func newTestHandler(t *testing.T, gw *fakeGateway, svc *fakeService) (*TelegramHandler, *[]time.Duration) {
	t.Helper()

	h, err := NewTelegramHandler(gw, svc, nil, Options{
		BatchSize:    5,
		BatchTime:    "10:00",
		Location:     testLoc,
		MediaRoot:    "media",
		DefaultImage: "media/default.jpg",
		PollInterval: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewTelegramHandler: %v", err)
	}

	var sleeps []time.Duration
	h.now = func() time.Time { return testDay.Add(8 * time.Hour) }
	h.sleep = func(ctx context.Context, d time.Duration) bool {
		sleeps = append(sleeps, d)
		return ctx.Err() == nil
	}
	h.readFile = func(name string) ([]byte, error) {
		switch name {
		case "media/default.jpg", "media/img/a.jpg":
			return []byte(name), nil
		}
		return nil, &os.PathError{Op: "open", Path: name, Err: errFiles}
	}

	return h, &sleeps
}

func textUpdate(id int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id * 10,
			Chat:      &tgbotapi.Chat{ID: chatID},
			From:      &tgbotapi.User{ID: chatID},
			Text:      text,
		},
	}
}

func callbackUpdate(id int, chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-" + strconv.Itoa(id),
			From: &tgbotapi.User{ID: chatID},
			Message: &tgbotapi.Message{
				MessageID: id * 10,
				Chat:      &tgbotapi.Chat{ID: chatID},
			},
			Data: data,
		},
	}
}

func int64Ptr(id int64) *int64 {
	return &id
}
