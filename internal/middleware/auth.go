// Package middleware содержит HTTP middleware магазина Converge.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/repository"
	"github.com/mmeshcher/converge-shop/internal/validation"
)

type contextKey string

const userKey contextKey = "user"

const (
	sessionCookieName = "session"
	sessionCookieTTL  = 30 * 24 * time.Hour
)

// UserLoader загружает пользователя вместе с балансом по Slack ID.
type UserLoader interface {
	GetUserWithTokens(ctx context.Context, slackID string) (*model.UserWithTokens, error)
}

// AuthMiddleware выполняет проверку сессии по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
	users     UserLoader
	logger    *zap.Logger
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом секрете генерируется
// случайный ключ, и сессии не переживают перезапуск.
func NewAuthMiddleware(secret string, users UserLoader, logger *zap.Logger) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		users:     users,
		logger:    logger,
	}
}

// Middleware проверяет cookie сессии и кладёт пользователя с балансом в контекст запроса.
// Недействительный cookie удаляется.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		slackID, ok := a.parseCookie(cookie.Value)
		if !ok {
			a.ClearSession(w)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		user, err := a.users.GetUserWithTokens(r.Context(), slackID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				a.ClearSession(w)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			a.logger.Error("load session user error", zap.Error(err), zap.String("slackID", slackID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin пропускает только администраторов. Должен стоять после Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if !user.IsAdmin {
			writeJSONError(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminKey проверяет заголовок Authorization: Bearer <key>.
// Пустой ключ запрещает доступ полностью.
func AdminKey(key string) func(http.Handler) http.Handler {
	expected := []byte("Bearer " + key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if key == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "Pass in an Authorization header.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie устанавливает cookie сессии для указанного Slack ID.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, slackID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.sign(slackID),
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession удаляет cookie сессии.
func (a *AuthMiddleware) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) sign(slackID string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(slackID))
	return slackID + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(value string) (string, bool) {
	slackID, signature, ok := strings.Cut(value, ".")
	if !ok || !validation.IsSlackID(slackID) {
		return "", false
	}

	_, expected, _ := strings.Cut(a.sign(slackID), ".")
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}

	return slackID, true
}

// UserFromContext извлекает пользователя сессии из контекста запроса.
func UserFromContext(ctx context.Context) (*model.UserWithTokens, bool) {
	u, ok := ctx.Value(userKey).(*model.UserWithTokens)
	return u, ok && u != nil
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u *model.UserWithTokens) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
