// Package order keeps the record of placed orders. Each order is an immutable pricing
// snapshot taken at checkout; only its status moves afterwards.
package order

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

var (
	// ErrNotFound indicates the order does not exist or belongs to another customer.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when a status change would move the order backwards.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusPacked    Status = "PACKED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCanceled  Status = "CANCELED"
)

func (s Status) rank() int {
	switch s {
	case StatusPlaced:
		return 0
	case StatusPacked:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	case StatusCanceled:
		return -1
	default:
		return -2
	}
}

// CanTransition reports whether an order in status from may move to to.
// Cancelling is only possible before the order ships.
func CanTransition(from, to Status) bool {
	if to == StatusCanceled {
		return from == StatusPlaced || from == StatusPacked
	}
	if from.rank() < 0 || to.rank() < 0 {
		return false
	}
	return to.rank() > from.rank()
}

// ParseStatus validates a status string.
func ParseStatus(v string) (Status, bool) {
	s := Status(v)
	return s, s.rank() > -2
}

// Item is a priced order line.
type Item struct {
	ProductID     string          `json:"productId"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Savings       decimal.Decimal `json:"savings"`
}

// Order is a placed order with the totals charged.
type Order struct {
	ID             string              `json:"id"`
	CustomerID     string              `json:"customerId"`
	CartID         string              `json:"cartId"`
	Status         Status              `json:"status"`
	Currency       string              `json:"currency"`
	BillingMode    pricing.BillingMode `json:"billingMode"`
	VoucherCode    string              `json:"voucherCode,omitempty"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Discount       decimal.Decimal     `json:"discount"`
	Savings        decimal.Decimal     `json:"savings"`
	Tax            decimal.Decimal     `json:"tax"`
	DeliveryFee    decimal.Decimal     `json:"deliveryFee"`
	GrandTotal     decimal.Decimal     `json:"grandTotal"`
	CartValueAtMRP decimal.Decimal     `json:"cartValueAtMrp"`
	TotalItems     int                 `json:"totalItems"`
	Items          []Item              `json:"items,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// Label carries the display fields of a product at the time of ordering.
type Label struct {
	Title string
	Slug  string
}

// FromBreakdown builds a PLACED order from a quote. labels is keyed by product id.
func FromBreakdown(b pricing.Breakdown, labels map[string]Label) Order {
	items := lo.Map(b.Lines, func(l pricing.LineResult, _ int) Item {
		label := labels[l.ProductID]
		return Item{
			ProductID:     l.ProductID,
			Title:         label.Title,
			Slug:          label.Slug,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			OriginalPrice: l.OriginalPrice,
			Subtotal:      l.Subtotal,
			Savings:       l.Savings,
		}
	})
	return Order{
		Status:         StatusPlaced,
		BillingMode:    b.BillingMode,
		Subtotal:       b.Subtotal,
		Discount:       b.Discount,
		Savings:        b.Savings,
		Tax:            b.Tax,
		DeliveryFee:    b.DeliveryFee,
		GrandTotal:     b.GrandTotal,
		CartValueAtMRP: b.CartValueAtMRP,
		TotalItems:     b.TotalItems,
		Items:          items,
	}
}
