package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/report"
	"github.com/mmeshcher/converge-shop/internal/repository"
	"github.com/mmeshcher/converge-shop/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminItems возвращает каталог для администратора.
func (h *Handler) AdminItems(w http.ResponseWriter, r *http.Request) {
	h.GetItems(w, r)
}

type adminUsersResponse struct {
	Users  []model.UserWithTokens `json:"users"`
	Orders []model.OrderDetails   `json:"orders"`
}

// AdminUsers возвращает пользователей с балансами и все заказы.
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, orders, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users error", zap.Error(err))
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, adminUsersResponse{
		Users:  nonNil(users),
		Orders: nonNil(orders),
	})
}

// AdminOrders возвращает все заказы с фильтром по статусу и сортировкой.
func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listing, err := h.service.ListOrders(r.Context(), service.OrderQuery{
		Status:    q.Get("status"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

type updateOrderRequest struct {
	OrderID string            `json:"orderId"`
	Status  model.OrderStatus `json:"status"`
	Memo    *string           `json:"memo"`
}

// UpdateOrder меняет статус заказа на fulfilled или rejected.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Order ID and status are required")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), req.OrderID, req.Status, req.Memo)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "Invalid status")
		case errors.Is(err, repository.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		default:
			h.logger.Error("update order error", zap.Error(err), zap.String("orderID", req.OrderID))
			internalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Success: true,
		Order:   order,
		Message: fmt.Sprintf("Order %s successfully", req.Status),
	})
}

// ExportOrders выгружает все заказы в XLSX.
func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ExportOrders(r.Context())
	if err != nil {
		h.logger.Error("export orders error", zap.Error(err))
		internalError(w)
		return
	}

	var buf bytes.Buffer
	if err := report.OrdersXLSX(&buf, orders); err != nil {
		h.logger.Error("render orders xlsx error", zap.Error(err))
		internalError(w)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
