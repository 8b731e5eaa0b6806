// Package service реализует бизнес-логику магазина наград Converge.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/converge-shop/internal/metrics"
	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

var (
	// ErrInvalidStatus возвращается при попытке выставить заказу недопустимый статус.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidItem возвращается для товара без названия или с отрицательной ценой.
	ErrInvalidItem = errors.New("invalid shop item")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	EnsureUser(ctx context.Context, slackID, avatarURL string) (bool, error)
	GetUserWithTokens(ctx context.Context, slackID string) (*model.UserWithTokens, error)
	ListUsersWithTokens(ctx context.Context) ([]model.UserWithTokens, error)
	ListShopItems(ctx context.Context) ([]model.ShopItem, error)
	UpsertShopItem(ctx context.Context, item model.ShopItem) (bool, error)
	CreateOrder(ctx context.Context, userID, itemID string) (*model.ShopOrder, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]model.OrderDetails, error)
	ListOrders(ctx context.Context) ([]model.OrderDetails, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, memo *string) (*model.ShopOrder, error)
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService создаёт сервис поверх указанного репозитория.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Login создаёт пользователя при первом входе и возвращает его с балансом.
func (s *Service) Login(ctx context.Context, slackID string) (*model.UserWithTokens, error) {
	created, err := s.repo.EnsureUser(ctx, slackID, repository.AvatarURL(slackID))
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	if created {
		s.logger.Info("user created on first login", zap.String("slackID", slackID))
	}
	return s.repo.GetUserWithTokens(ctx, slackID)
}

// ListItems возвращает каталог магазина.
func (s *Service) ListItems(ctx context.Context) ([]model.ShopItem, error) {
	return s.repo.ListShopItems(ctx)
}

// PlaceOrder оформляет заказ товара за токены пользователя.
func (s *Service) PlaceOrder(ctx context.Context, userID, itemID string) (*model.ShopOrder, error) {
	order, err := s.repo.CreateOrder(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			metrics.OrdersDeclined.Inc()
		}
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	s.logger.Info("order placed",
		zap.String("orderID", order.ID),
		zap.String("userID", userID),
		zap.String("itemID", itemID),
		zap.Int64("price", order.PriceAtOrder),
	)
	return order, nil
}

// ListUserOrders возвращает заказы пользователя, новые первыми.
func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]model.OrderDetails, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// ListUsers возвращает пользователей с балансами и все заказы.
func (s *Service) ListUsers(ctx context.Context) ([]model.UserWithTokens, []model.OrderDetails, error) {
	users, err := s.repo.ListUsersWithTokens(ctx)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, nil, err
	}
	return users, withItemFallback(orders), nil
}

// ListOrders возвращает все заказы с учётом фильтра и сортировки.
func (s *Service) ListOrders(ctx context.Context, q OrderQuery) (*OrderListing, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	listing := FilterAndSortOrders(orders, q)
	return &listing, nil
}

// ExportOrders возвращает все заказы для выгрузки.
func (s *Service) ExportOrders(ctx context.Context) ([]model.OrderDetails, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return withItemFallback(orders), nil
}

// UpdateOrderStatus переводит заказ в fulfilled или rejected.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, memo *string) (*model.ShopOrder, error) {
	if status != model.OrderStatusFulfilled && status != model.OrderStatusRejected {
		return nil, ErrInvalidStatus
	}

	order, err := s.repo.UpdateOrderStatus(ctx, orderID, status, memo)
	if err != nil {
		return nil, err
	}

	metrics.OrderStatusChanges.WithLabelValues(string(status)).Inc()
	s.logger.Info("order status changed", zap.String("orderID", orderID), zap.String("status", string(status)))
	return order, nil
}

// ImportResult содержит итог импорта каталога.
type ImportResult struct {
	Items    []model.ShopItem
	Inserted int
	Updated  int
	Failed   int
}

// ImportItems создаёт или обновляет товары. Ошибка по одному товару
// журналируется и не прерывает импорт.
func (s *Service) ImportItems(ctx context.Context, items []model.ShopItem) ImportResult {
	var res ImportResult
	for _, item := range items {
		if err := validateItem(item); err != nil {
			res.Failed++
			metrics.ItemsImported.WithLabelValues("failed").Inc()
			s.logger.Warn("skip shop item", zap.String("itemID", item.ID), zap.Error(err))
			continue
		}

		inserted, err := s.repo.UpsertShopItem(ctx, item)
		if err != nil {
			res.Failed++
			metrics.ItemsImported.WithLabelValues("failed").Inc()
			s.logger.Error("failed to process shop item", zap.String("itemID", item.ID), zap.Error(err))
			continue
		}

		if inserted {
			res.Inserted++
			metrics.ItemsImported.WithLabelValues("inserted").Inc()
		} else {
			res.Updated++
			metrics.ItemsImported.WithLabelValues("updated").Inc()
		}
		res.Items = append(res.Items, item)
	}
	return res
}

func validateItem(item model.ShopItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if item.Price < 0 {
		return fmt.Errorf("%w: negative price %d", ErrInvalidItem, item.Price)
	}
	switch item.Type {
	case "", model.ShopItemTypeHCB, model.ShopItemTypeThirdParty:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidItem, item.Type)
	}
	return nil
}
