// Package model содержит доменные сущности магазина наград Converge.
package model

import "time"

// User представляет участника программы, идентифицируемого по Slack ID.
type User struct {
	SlackID         string  `json:"slackId"`
	AvatarURL       string  `json:"avatarUrl"`
	IsAdmin         bool    `json:"isAdmin"`
	Country         *string `json:"country,omitempty"`
	YswsDBFulfilled bool    `json:"yswsDbFulfilled"`
}

// UserWithTokens дополняет пользователя доступным балансом токенов.
type UserWithTokens struct {
	User
	Tokens int64 `json:"tokens"`
}

// ShopItemType описывает способ выдачи товара.
type ShopItemType string

const (
	ShopItemTypeHCB        ShopItemType = "hcb"
	ShopItemTypeThirdParty ShopItemType = "third_party"
)

// ShopItem описывает позицию каталога магазина.
type ShopItem struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	ImageURL    string       `json:"imageUrl"`
	Price       int64        `json:"price"`
	Type        ShopItemType `json:"type,omitempty"`
	HCBMids     []string     `json:"hcbMids,omitempty"`
}

// OrderStatus описывает статус заказа в магазине.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Valid сообщает, относится ли статус к известным значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusFulfilled, OrderStatusRejected:
		return true
	}
	return false
}

// CountsAgainstBalance сообщает, уменьшает ли заказ с таким статусом баланс.
func (s OrderStatus) CountsAgainstBalance() bool {
	return s == OrderStatusPending || s == OrderStatusFulfilled
}

// ShopOrder описывает заказ пользователя (списание токенов).
type ShopOrder struct {
	ID           string      `json:"id"`
	ShopItemID   string      `json:"shopItemId"`
	PriceAtOrder int64       `json:"priceAtOrder"`
	Status       OrderStatus `json:"status"`
	Memo         *string     `json:"memo,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UserID       string      `json:"userId"`
}

// OrderDetails содержит заказ вместе с данными о товаре.
type OrderDetails struct {
	ShopOrder
	ItemName     string       `json:"itemName"`
	ItemImageURL string       `json:"itemImageUrl"`
	ItemType     ShopItemType `json:"itemType,omitempty"`
}

// Payout описывает начисление токенов (кредит в журнале).
type Payout struct {
	ID        string    `json:"id"`
	Tokens    int64     `json:"tokens"`
	UserID    string    `json:"userId"`
	Memo      *string   `json:"memo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPayout описывает начисление, которое ещё не записано в журнал.
type NewPayout struct {
	Tokens int64
	UserID string
	Memo   string
}

// LedgerBalance содержит агрегаты журнала по одному пользователю.
// Баланс считается со знаком, чтобы можно было обнаружить уменьшение.
type LedgerBalance struct {
	UserID string
	// Payouts содержит сумму всех начислений.
	Payouts int64
	// Protected содержит часть Payouts, которую не удаляет пересчёт.
	Protected int64
	// Spent содержит сумму заказов в статусах pending и fulfilled.
	Spent int64
}

// Available возвращает доступный баланс без ограничения снизу.
func (b LedgerBalance) Available() int64 {
	return b.Payouts - b.Spent
}
