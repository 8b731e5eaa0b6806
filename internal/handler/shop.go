package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/middleware"
	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

// GetItems возвращает каталог магазина, отсортированный по цене.
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.logger.Error("list items error", zap.Error(err))
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

type placeOrderRequest struct {
	ShopItemID string `json:"shopItemId"`
}

type insufficientTokensResponse struct {
	Error     string `json:"error"`
	Required  int64  `json:"required"`
	Available int64  `json:"available"`
}

type orderResponse struct {
	Success bool             `json:"success"`
	Order   *model.ShopOrder `json:"order"`
	Message string           `json:"message"`
}

// PlaceOrder оформляет заказ товара за токены текущего пользователя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ShopItemID == "" {
		writeError(w, http.StatusBadRequest, "Shop item ID is required")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), user.SlackID, req.ShopItemID)
	if err != nil {
		var ibe *repository.InsufficientBalanceError
		switch {
		case errors.As(err, &ibe):
			writeJSON(w, http.StatusBadRequest, insufficientTokensResponse{
				Error:     "Insufficient tokens",
				Required:  ibe.Required,
				Available: ibe.Available,
			})
		case errors.Is(err, repository.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "Shop item not found")
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("place order error", zap.Error(err),
				zap.String("userID", user.SlackID), zap.String("itemID", req.ShopItemID))
			internalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Success: true,
		Order:   order,
		Message: "Order created successfully and tokens deducted",
	})
}

// GetOrders возвращает заказы текущего пользователя, новые первыми.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.ListUserOrders(r.Context(), user.SlackID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.String("userID", user.SlackID))
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(orders))
}

type importResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    []model.ShopItem `json:"data"`
}

// ImportShop создаёт или обновляет товары каталога. Доступ по ключу администратора.
func (h *Handler) ImportShop(w http.ResponseWriter, r *http.Request) {
	var items []model.ShopItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "Expected an array of shop items")
		return
	}

	res := h.service.ImportItems(r.Context(), items)
	h.logger.Info("shop import finished",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)

	writeJSON(w, http.StatusOK, importResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully processed %d items", len(res.Items)),
		Data:    nonNil(res.Items),
	})
}
