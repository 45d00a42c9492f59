package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yourusername/vocabot/internal/models"
	"github.com/yourusername/vocabot/internal/service"
)

func TestHandleTextMessage(t *testing.T) {
	const token = "AB12CD34EF56"

	cases := []struct {
		name  string
		text  string
		setup func(*fakeService)
		want  string
		err   bool
	}{
		{
			name: "start",
			text: "/start",
			want: welcomeText,
		},
		{
			name: "link succeeds",
			text: token,
			setup: func(s *fakeService) {
				s.link = func(chatID int64, got string) (*models.UserProfile, error) {
					if got != token {
						return nil, fmt.Errorf("unexpected token %q", got)
					}
					return &models.UserProfile{ID: 1, Username: "alice<3"}, nil
				}
			},
			want: fmt.Sprintf(linkedText, "alice&lt;3"),
		},
		{
			name: "link token expired",
			text: token,
			setup: func(s *fakeService) {
				s.link = func(int64, string) (*models.UserProfile, error) {
					return nil, fmt.Errorf("link account: %w", service.ErrLinkTokenExpired)
				}
			},
			want: tokenExpiredText,
		},
		{
			name: "link token unknown",
			text: "  " + token + " ",
			want: tokenInvalidText,
		},
		{
			name: "link fails",
			text: token,
			setup: func(s *fakeService) {
				s.link = func(int64, string) (*models.UserProfile, error) {
					return nil, errors.New("connection refused")
				}
			},
			want: linkErrorText,
			err:  true,
		},
		{
			name: "lowercase token is just text",
			text: strings.ToLower(token),
			want: unlinkedHintText,
		},
		{
			name: "linked user chatting",
			text: "hello",
			setup: func(s *fakeService) {
				s.byChat[42] = &models.UserProfile{ID: 1, Username: "alice", ChatID: int64Ptr(42)}
			},
			want: fmt.Sprintf(linkedHintText, "alice"),
		},
		{
			name: "lookup fails",
			text: "hello",
			setup: func(s *fakeService) {
				s.chatErr = errors.New("connection refused")
			},
			want: internalErrorText,
			err:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			svc := newFakeService()
			if tc.setup != nil {
				tc.setup(svc)
			}
			h, _ := newTestHandler(t, gw, svc)

			err := h.handleUpdate(context.Background(), textUpdate(1, 42, tc.text))
			if (err != nil) != tc.err {
				t.Fatalf("err = %v, want error: %v", err, tc.err)
			}

			if len(gw.texts) != 1 {
				t.Fatalf("replies = %d, want 1", len(gw.texts))
			}
			if gw.texts[0].chatID != 42 || gw.texts[0].text != tc.want {
				t.Fatalf("reply = %+v, want %q", gw.texts[0], tc.want)
			}
		})
	}
}

func TestHandleCallback_Success(t *testing.T) {
	gw := newFakeGateway()
	svc := newFakeService()
	h, _ := newTestHandler(t, gw, svc)

	if err := h.handleUpdate(context.Background(), callbackUpdate(5, 42, "remembered:7:3")); err != nil {
		t.Fatalf("handleUpdate: %v", err)
	}

	if len(svc.applied) != 1 {
		t.Fatalf("feedback not applied")
	}
	token := svc.applied[0]
	if token.Action != service.ActionRemembered || token.VocabularyID != 7 || token.ImageID != 3 {
		t.Errorf("token = %+v", token)
	}

	if gw.answers["cb-5"] != service.FeedbackRemembered {
		t.Errorf("answer = %q", gw.answers["cb-5"])
	}
	if len(gw.cleared) != 1 || gw.cleared[0] != 50 {
		t.Errorf("buttons not cleared on message 50: %v", gw.cleared)
	}
}

func TestHandleCallback_AckFailureKeepsResult(t *testing.T) {
	gw := newFakeGateway()
	gw.ackErr = errors.New("query is too old")
	svc := newFakeService()
	h, _ := newTestHandler(t, gw, svc)

	if err := h.handleUpdate(context.Background(), callbackUpdate(5, 42, "forgot:7:none")); err != nil {
		t.Fatalf("ack failure must not fail the update: %v", err)
	}
	if len(svc.applied) != 1 || len(gw.cleared) != 1 {
		t.Fatalf("feedback must still be applied and buttons cleared")
	}
}

func TestHandleCallback_Malformed(t *testing.T) {
	gw := newFakeGateway()
	svc := newFakeService()
	h, _ := newTestHandler(t, gw, svc)

	err := h.handleUpdate(context.Background(), callbackUpdate(5, 42, "remembered"))
	if !errors.Is(err, service.ErrMalformedToken) {
		t.Fatalf("err = %v, want ErrMalformedToken", err)
	}
	if len(svc.applied) != 0 || len(gw.answers) != 0 {
		t.Fatalf("malformed token must be dropped")
	}
}

func TestHandleCallback_NotFound(t *testing.T) {
	gw := newFakeGateway()
	svc := newFakeService()
	svc.feedback = func(int64, service.FeedbackToken) (*service.FeedbackResult, error) {
		return nil, fmt.Errorf("apply feedback: %w", models.ErrVocabularyNotFound)
	}
	h, _ := newTestHandler(t, gw, svc)

	if err := h.handleUpdate(context.Background(), callbackUpdate(5, 42, "remembered:999:none")); err != nil {
		t.Fatalf("not found must be handled locally: %v", err)
	}
	if gw.answers["cb-5"] != callbackErrorText {
		t.Fatalf("answer = %q, want error text", gw.answers["cb-5"])
	}
	if len(gw.cleared) != 0 {
		t.Fatalf("buttons must stay when nothing was recorded")
	}
}

func TestEscapeHTML(t *testing.T) {
	got := escapeHTML(`<b>"R&D"</b>`)
	want := "&lt;b&gt;&quot;R&amp;D&quot;&lt;/b&gt;"
	if got != want {
		t.Fatalf("escapeHTML = %q, want %q", got, want)
	}
}
