package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

type stubUsers struct {
	users map[string]*model.UserWithTokens
	err   error
}

func (s *stubUsers) GetUserWithTokens(_ context.Context, slackID string) (*model.UserWithTokens, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[slackID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func newTestAuth(users map[string]*model.UserWithTokens) *AuthMiddleware {
	return NewAuthMiddleware("test-secret", &stubUsers{users: users}, zap.NewNop())
}

func sessionCookie(t *testing.T, a *AuthMiddleware, slackID string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	a.SetSessionCookie(w, slackID)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "no cookies set by SetSessionCookie")
	return cookies[0]
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	a := newTestAuth(map[string]*model.UserWithTokens{
		"U0123ABCD": {User: model.User{SlackID: "U0123ABCD"}, Tokens: 7},
	})

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		u, ok := UserFromContext(r.Context())
		require.True(t, ok, "user not in context")
		assert.Equal(t, "U0123ABCD", u.SlackID)
		assert.Equal(t, int64(7), u.Tokens)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	r.AddCookie(sessionCookie(t, a, "U0123ABCD"))

	a.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	a := newTestAuth(nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/user", nil)

	a.Middleware(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_TamperedCookieIsCleared(t *testing.T) {
	a := newTestAuth(map[string]*model.UserWithTokens{
		"U0123ABCD": {User: model.User{SlackID: "U0123ABCD"}},
	})
	other := NewAuthMiddleware("other-secret", &stubUsers{}, zap.NewNop())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	for name, value := range map[string]string{
		"foreign signature": sessionCookie(t, other, "U0123ABCD").Value,
		"no signature":      "U0123ABCD",
		"garbage":           "not-a-session",
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
			r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: value})

			a.Middleware(next).ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			cookies := w.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, sessionCookieName, cookies[0].Name)
			assert.Equal(t, -1, cookies[0].MaxAge)
		})
	}
}

func TestAuthMiddleware_UnknownUser(t *testing.T) {
	a := newTestAuth(map[string]*model.UserWithTokens{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	r.AddCookie(sessionCookie(t, a, "U0123ABCD"))

	a.Middleware(http.NotFoundHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	a := NewAuthMiddleware("test-secret", &stubUsers{err: errors.New("db down")}, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	r.AddCookie(sessionCookie(t, a, "U0123ABCD"))

	a.Middleware(http.NotFoundHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name string
		user *model.UserWithTokens
		want int
	}{
		{"no user", nil, http.StatusUnauthorized},
		{"regular user", &model.UserWithTokens{User: model.User{SlackID: "U1"}}, http.StatusForbidden},
		{"admin", &model.UserWithTokens{User: model.User{SlackID: "U2", IsAdmin: true}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/admin/items", nil)
			if tt.user != nil {
				r = r.WithContext(WithUser(r.Context(), tt.user))
			}
			w := httptest.NewRecorder()

			RequireAdmin(ok).ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAdminKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"valid", "k3y", "Bearer k3y", http.StatusOK},
		{"wrong key", "k3y", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "k3y", "", http.StatusUnauthorized},
		{"empty configured key", "", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/import-shop", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			AdminKey(tt.key)(ok).ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}
