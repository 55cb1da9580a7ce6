package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go_library/internal/apperr"
	"go_library/internal/auth"
	"go_library/internal/db/dbtest"
	"go_library/internal/events"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/stretchr/testify/assert"
)

type fakeAuth struct {
	token string
	p     session.Principal
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (session.Principal, *auth.Claims, error) {
	if token != f.token {
		return session.Principal{}, nil, apperr.Unauthorized("bad token")
	}
	return f.p, &auth.Claims{}, nil
}

func TestRooms(t *testing.T) {
	assert.Equal(t, []string{"staff", "user:7"}, memberRooms(session.Principal{ID: 7, Role: model.RoleStaff}))
	assert.Equal(t, []string{"user:9"}, memberRooms(session.Principal{ID: 9, Role: model.RoleUser}))

	assert.Equal(t, []string{"staff", "user:9"}, roomsFor(model.LibraryEvent{UserID: 9}))
	assert.Equal(t, []string{"staff"}, roomsFor(model.LibraryEvent{Topic: model.TopicBooks}))
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/socket.io/?EIO=3&transport=polling&token=abc", nil)
	assert.Equal(t, "abc", extractToken(r))

	r = httptest.NewRequest(http.MethodGet, "/socket.io/?EIO=3&transport=polling", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", extractToken(r))

	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, extractToken(r))
}

func TestHandler_RejectsHandshakeWithoutValidToken(t *testing.T) {
	hub := NewHub(fakeAuth{token: "good"}, events.NewService(dbtest.Open(t)), dbtest.Logger())
	h := hub.Handler()

	for _, target := range []string{
		"/socket.io/?EIO=3&transport=polling",
		"/socket.io/?EIO=3&transport=polling&token=bad",
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}
