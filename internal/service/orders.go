package service

import (
	"cmp"
	"slices"

	"github.com/mmeshcher/converge-shop/internal/model"
)

// UnknownItemName подставляется для заказов, чей товар удалён из каталога.
const UnknownItemName = "Unknown Item"

const (
	SortByCreatedAt = "createdAt"
	SortByPrice     = "price"
	SortByStatus    = "status"
	SortByCustomer  = "customer"
	SortByItem      = "item"

	SortAsc  = "asc"
	SortDesc = "desc"

	StatusAll = "all"
)

// OrderQuery описывает фильтр и сортировку списка заказов.
type OrderQuery struct {
	Status    string `json:"status"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// PriceRange содержит минимальную и максимальную цену среди заказов.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// FilterOptions содержит значения для построения фильтров в админке.
type FilterOptions struct {
	Customers  []string   `json:"customers"`
	Items      []string   `json:"items"`
	PriceRange PriceRange `json:"priceRange"`
}

// OrderListing содержит отфильтрованные заказы и параметры фильтрации.
type OrderListing struct {
	Orders        []model.OrderDetails `json:"orders"`
	Filters       OrderQuery           `json:"filters"`
	FilterOptions FilterOptions        `json:"filterOptions"`
}

func (q OrderQuery) normalized() OrderQuery {
	switch q.SortBy {
	case SortByCreatedAt, SortByPrice, SortByStatus, SortByCustomer, SortByItem:
	default:
		q.SortBy = SortByCreatedAt
	}
	if q.SortOrder != SortAsc {
		q.SortOrder = SortDesc
	}
	return q
}

// FilterAndSortOrders фильтрует заказы по статусу и сортирует их.
// Варианты фильтров строятся по всем заказам, а не только по отфильтрованным.
func FilterAndSortOrders(orders []model.OrderDetails, q OrderQuery) OrderListing {
	q = q.normalized()
	all := withItemFallback(orders)

	filtered := make([]model.OrderDetails, 0, len(all))
	for _, o := range all {
		if q.Status != "" && q.Status != StatusAll && string(o.Status) != q.Status {
			continue
		}
		filtered = append(filtered, o)
	}

	compare := orderComparator(q.SortBy)
	slices.SortStableFunc(filtered, func(a, b model.OrderDetails) int {
		if q.SortOrder == SortDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})

	return OrderListing{
		Orders:        filtered,
		Filters:       q,
		FilterOptions: filterOptions(all),
	}
}

func orderComparator(sortBy string) func(a, b model.OrderDetails) int {
	switch sortBy {
	case SortByPrice:
		return func(a, b model.OrderDetails) int { return cmp.Compare(a.PriceAtOrder, b.PriceAtOrder) }
	case SortByStatus:
		return func(a, b model.OrderDetails) int { return cmp.Compare(a.Status, b.Status) }
	case SortByCustomer:
		return func(a, b model.OrderDetails) int { return cmp.Compare(a.UserID, b.UserID) }
	case SortByItem:
		return func(a, b model.OrderDetails) int { return cmp.Compare(a.ItemName, b.ItemName) }
	default:
		return func(a, b model.OrderDetails) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

func filterOptions(orders []model.OrderDetails) FilterOptions {
	opts := FilterOptions{
		Customers: []string{},
		Items:     []string{},
	}

	customers := make(map[string]struct{})
	items := make(map[string]struct{})
	for i, o := range orders {
		if o.UserID != "" {
			customers[o.UserID] = struct{}{}
		}
		if o.ItemName != "" {
			items[o.ItemName] = struct{}{}
		}
		if i == 0 || o.PriceAtOrder < opts.PriceRange.Min {
			opts.PriceRange.Min = o.PriceAtOrder
		}
		if i == 0 || o.PriceAtOrder > opts.PriceRange.Max {
			opts.PriceRange.Max = o.PriceAtOrder
		}
	}

	for c := range customers {
		opts.Customers = append(opts.Customers, c)
	}
	for it := range items {
		opts.Items = append(opts.Items, it)
	}
	slices.Sort(opts.Customers)
	slices.Sort(opts.Items)

	return opts
}

func withItemFallback(orders []model.OrderDetails) []model.OrderDetails {
	res := make([]model.OrderDetails, len(orders))
	copy(res, orders)
	for i := range res {
		if res[i].ItemName == "" {
			res[i].ItemName = UnknownItemName
		}
	}
	return res
}
