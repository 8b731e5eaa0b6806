package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/middleware"
	"github.com/mmeshcher/converge-shop/internal/slack"
	"github.com/mmeshcher/converge-shop/internal/validation"
)

const callbackPath = "/api/slack-callback"

// Login перенаправляет пользователя на страницу авторизации Slack.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	target := slack.AuthorizeURL(h.opts.SlackWorkspace, h.opts.SlackClientID, callbackURL(r))
	http.Redirect(w, r, target, http.StatusFound)
}

// SlackCallback завершает вход: меняет код на Slack ID, создаёт пользователя
// при первом входе и устанавливает cookie сессии.
func (h *Handler) SlackCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	slackID, err := h.slack.Exchange(r.Context(), code, callbackURL(r))
	if err != nil {
		h.logger.Warn("slack code exchange failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	if !validation.IsSlackID(slackID) {
		h.logger.Warn("slack returned malformed user id", zap.String("slackID", slackID))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if _, err := h.service.Login(r.Context(), slackID); err != nil {
		h.logger.Error("login user error", zap.Error(err), zap.String("slackID", slackID))
		internalError(w)
		return
	}

	h.authMiddleware.SetSessionCookie(w, slackID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout удаляет cookie сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearSession(w)
	w.WriteHeader(http.StatusOK)
}

// GetUser возвращает текущего пользователя с балансом токенов.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host + callbackPath
}
