package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/converge-shop/internal/model"
)

const orderDetailsSelect = `SELECT o.id, o.shop_item_id, o.price_at_order, o.status, o.memo, o.created_at, o.user_id,
       COALESCE(i.name, ''), COALESCE(i.image_url, ''), COALESCE(i.type, '')
FROM shop_orders o
LEFT JOIN shop_items i ON i.id = o.shop_item_id`

// ListShopItems возвращает каталог, отсортированный по цене.
func (r *PostgresRepository) ListShopItems(ctx context.Context) ([]model.ShopItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, image_url, price, COALESCE(type, ''), hcb_mids
		 FROM shop_items
		 ORDER BY price ASC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var items []model.ShopItem
	for rows.Next() {
		item, err := scanShopItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetShopItem возвращает товар по идентификатору.
func (r *PostgresRepository) GetShopItem(ctx context.Context, id string) (*model.ShopItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, image_url, price, COALESCE(type, ''), hcb_mids
		 FROM shop_items
		 WHERE id = $1`,
		id,
	)

	item, err := scanShopItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// UpsertShopItem создаёт или обновляет товар и возвращает признак создания.
// Пустой идентификатор заменяется новым UUID.
func (r *PostgresRepository) UpsertShopItem(ctx context.Context, item model.ShopItem) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	var itemType *string
	if item.Type != "" {
		t := string(item.Type)
		itemType = &t
	}

	var inserted bool
	err := r.pool.QueryRow(ctx,
		`INSERT INTO shop_items (id, name, description, image_url, price, type, hcb_mids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     image_url = EXCLUDED.image_url,
		     price = EXCLUDED.price,
		     type = EXCLUDED.type,
		     hcb_mids = EXCLUDED.hcb_mids
		 RETURNING (xmax = 0)`,
		item.ID, item.Name, item.Description, item.ImageURL, item.Price, itemType, item.HCBMids,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert item: %w", err)
	}
	return inserted, nil
}

// CreateOrder оформляет заказ товара. Строка пользователя блокируется на время
// транзакции, а баланс перепроверяется, чтобы параллельные заказы не ушли в минус.
func (r *PostgresRepository) CreateOrder(ctx context.Context, userID, itemID string) (*model.ShopOrder, error) {
	var order *model.ShopOrder
	err := r.withRetry(ctx, func() error {
		var err error
		order, err = r.createOrder(ctx, userID, itemID)
		return err
	})
	return order, err
}

func (r *PostgresRepository) createOrder(ctx context.Context, userID, itemID string) (*model.ShopOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var dummy int
	err = tx.QueryRow(ctx, `SELECT 1 FROM users WHERE slack_id = $1 FOR UPDATE`, userID).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user for update: %w", err)
	}

	var price int64
	err = tx.QueryRow(ctx, `SELECT price FROM shop_items WHERE id = $1`, itemID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("select item price: %w", err)
	}

	var payoutTotal, spentTotal int64
	err = tx.QueryRow(ctx,
		`SELECT
		     COALESCE((SELECT SUM(tokens) FROM payouts WHERE user_id = $1), 0),
		     COALESCE((SELECT SUM(price_at_order) FROM shop_orders WHERE user_id = $1 AND status = ANY($2::text[])), 0)`,
		userID, chargedStatuses(),
	).Scan(&payoutTotal, &spentTotal)
	if err != nil {
		return nil, fmt.Errorf("sum balance: %w", err)
	}

	available := max(payoutTotal-spentTotal, 0)
	if price > available {
		return nil, &InsufficientBalanceError{Required: price, Available: available}
	}

	order := &model.ShopOrder{
		ID:           uuid.NewString(),
		ShopItemID:   itemID,
		PriceAtOrder: price,
		Status:       model.OrderStatusPending,
		UserID:       userID,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO shop_orders (id, shop_item_id, price_at_order, status, user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		order.ID, order.ShopItemID, order.PriceAtOrder, string(order.Status), order.UserID,
	).Scan(&order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

// ListOrdersByUser возвращает заказы пользователя с данными товаров, новые первыми.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID string) ([]model.OrderDetails, error) {
	return r.queryOrderDetails(ctx, orderDetailsSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
}

// ListOrders возвращает все заказы с данными товаров, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.OrderDetails, error) {
	return r.queryOrderDetails(ctx, orderDetailsSelect+` ORDER BY o.created_at DESC`)
}

// UpdateOrderStatus меняет статус заказа. Пустой memo оставляет прежнее значение.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, memo *string) (*model.ShopOrder, error) {
	var o model.ShopOrder
	var st string
	err := r.pool.QueryRow(ctx,
		`UPDATE shop_orders
		 SET status = $2, memo = COALESCE($3, memo)
		 WHERE id = $1
		 RETURNING id, shop_item_id, price_at_order, status, memo, created_at, user_id`,
		id, string(status), memo,
	).Scan(&o.ID, &o.ShopItemID, &o.PriceAtOrder, &st, &o.Memo, &o.CreatedAt, &o.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order: %w", err)
	}
	o.Status = model.OrderStatus(st)
	return &o, nil
}

func (r *PostgresRepository) queryOrderDetails(ctx context.Context, query string, args ...any) ([]model.OrderDetails, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.OrderDetails
	for rows.Next() {
		var (
			o        model.OrderDetails
			status   string
			itemType string
		)
		err := rows.Scan(&o.ID, &o.ShopItemID, &o.PriceAtOrder, &status, &o.Memo, &o.CreatedAt, &o.UserID,
			&o.ItemName, &o.ItemImageURL, &itemType)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		o.ItemType = model.ShopItemType(itemType)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func scanShopItem(row scanner) (*model.ShopItem, error) {
	var (
		item     model.ShopItem
		itemType string
	)
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.ImageURL, &item.Price, &itemType, &item.HCBMids)
	if err != nil {
		return nil, err
	}
	item.Type = model.ShopItemType(itemType)
	return &item, nil
}

func chargedStatuses() []string {
	return []string{string(model.OrderStatusPending), string(model.OrderStatusFulfilled)}
}
