// Package handler содержит HTTP-обработчики API магазина Converge.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/middleware"
	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Login(ctx context.Context, slackID string) (*model.UserWithTokens, error)
	ListItems(ctx context.Context) ([]model.ShopItem, error)
	PlaceOrder(ctx context.Context, userID, itemID string) (*model.ShopOrder, error)
	ListUserOrders(ctx context.Context, userID string) ([]model.OrderDetails, error)
	ListUsers(ctx context.Context) ([]model.UserWithTokens, []model.OrderDetails, error)
	ListOrders(ctx context.Context, q service.OrderQuery) (*service.OrderListing, error)
	ExportOrders(ctx context.Context) ([]model.OrderDetails, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, memo *string) (*model.ShopOrder, error)
	ImportItems(ctx context.Context, items []model.ShopItem) service.ImportResult
}

// SlackAuthenticator меняет код авторизации Slack на Slack ID пользователя.
type SlackAuthenticator interface {
	Exchange(ctx context.Context, code, redirectURI string) (string, error)
}

// Options содержит параметры, не относящиеся к бизнес-логике.
type Options struct {
	SlackClientID  string
	SlackWorkspace string
	AdminKey       string
	AllowedOrigins []string
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service        Service
	slack          SlackAuthenticator
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, slack SlackAuthenticator, auth *middleware.AuthMiddleware, logger *zap.Logger, opts Options) *Handler {
	return &Handler{
		service:        s,
		slack:          slack,
		logger:         logger,
		authMiddleware: auth,
		opts:           opts,
	}
}

// Health сообщает, что сервис запущен.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func internalError(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// nonNil возвращает пустой срез вместо nil, чтобы в JSON попадал [] вместо null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
