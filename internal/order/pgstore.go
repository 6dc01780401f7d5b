package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

// PGStore persists orders and order_items in Postgres. Money columns are numeric and
// cross the wire as text so no precision is lost.
type PGStore struct {
	Pool *pgxpool.Pool
}

const orderColumns = `id::text, customer_id, cart_id, status, currency, billing_mode, coalesce(voucher_code, ''),
	subtotal::text, discount::text, savings::text, tax::text, delivery_fee::text, grand_total::text,
	cart_value_at_mrp::text, total_items, created_at, updated_at`

// Create inserts the order and its items in one transaction.
func (s PGStore) Create(ctx context.Context, o Order) (Order, error) {
	o = prepare(o, time.Now().UTC())
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		var voucher *string
		if o.VoucherCode != "" {
			voucher = &o.VoucherCode
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_id, cart_id, status, currency, billing_mode, voucher_code,
				subtotal, discount, savings, tax, delivery_fee, grand_total, cart_value_at_mrp, total_items,
				created_at, updated_at)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7,
				$8::numeric, $9::numeric, $10::numeric, $11::numeric, $12::numeric, $13::numeric, $14::numeric, $15,
				$16, $17)`,
			o.ID, o.CustomerID, o.CartID, string(o.Status), o.Currency, string(o.BillingMode), voucher,
			o.Subtotal.String(), o.Discount.String(), o.Savings.String(), o.Tax.String(), o.DeliveryFee.String(),
			o.GrandTotal.String(), o.CartValueAtMRP.String(), o.TotalItems, o.CreatedAt, o.UpdatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i, it := range o.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, position, product_id, title, slug, quantity,
					unit_price, original_price, subtotal, savings)
				VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10::numeric)`,
				o.ID, i, it.ProductID, it.Title, it.Slug, it.Quantity,
				it.UnitPrice.String(), it.OriginalPrice.String(), it.Subtotal.String(), it.Savings.String()); err != nil {
				return fmt.Errorf("insert order item %s: %w", it.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// Get loads an order with its items.
func (s PGStore) Get(ctx context.Context, id, customerID string) (Order, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE id::text = $1 AND ($2 = '' OR customer_id = $2)`, id, customerID)
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	itemRows, err := s.Pool.Query(ctx, `
		SELECT product_id, title, slug, quantity, unit_price::text, original_price::text, subtotal::text, savings::text
		FROM order_items WHERE order_id = $1::uuid ORDER BY position`, o.ID)
	if err != nil {
		return Order{}, fmt.Errorf("list order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanItem)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// ListByCustomer returns a page of orders, newest first.
func (s PGStore) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, int64, error) {
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus moves an order forward. The current status is locked while the
// transition is checked.
func (s PGStore) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		var current string
		if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id::text = $1 FOR UPDATE`, id).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if !CanTransition(Status(current), to) {
			return ErrInvalidTransition
		}
		_, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id::text = $1`, id, string(to))
		return err
	})
	if err != nil {
		return Order{}, err
	}
	return s.Get(ctx, id, "")
}

func scanOrder(row pgx.CollectableRow) (Order, error) {
	var (
		o       Order
		status  string
		mode    string
		amounts [7]string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.CartID, &status, &o.Currency, &mode, &o.VoucherCode,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5], &amounts[6],
		&o.TotalItems, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.BillingMode = pricing.BillingMode(mode)
	targets := []*decimal.Decimal{&o.Subtotal, &o.Discount, &o.Savings, &o.Tax, &o.DeliveryFee, &o.GrandTotal, &o.CartValueAtMRP}
	for i, dst := range targets {
		d, err := decimal.NewFromString(amounts[i])
		if err != nil {
			return Order{}, fmt.Errorf("order %s amount %d: %w", o.ID, i, err)
		}
		*dst = d
	}
	return o, nil
}

func scanItem(row pgx.CollectableRow) (Item, error) {
	var (
		it      Item
		amounts [4]string
	)
	if err := row.Scan(&it.ProductID, &it.Title, &it.Slug, &it.Quantity,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3]); err != nil {
		return Item{}, err
	}
	targets := []*decimal.Decimal{&it.UnitPrice, &it.OriginalPrice, &it.Subtotal, &it.Savings}
	for i, dst := range targets {
		d, err := decimal.NewFromString(amounts[i])
		if err != nil {
			return Item{}, fmt.Errorf("order item %s amount %d: %w", it.ProductID, i, err)
		}
		*dst = d
	}
	return it, nil
}
