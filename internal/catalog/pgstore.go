package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

// PGRepository reads products and tier tables from Postgres.
type PGRepository struct {
	Pool *pgxpool.Pool
}

const productColumns = `id::text, title, slug, unit_price::text, mrp::text, active`

// ListProducts returns a page of active products ordered by title.
func (r PGRepository) ListProducts(ctx context.Context, limit, offset int) ([]Product, int64, error) {
	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE active`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE active ORDER BY title LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, err
	}
	if len(products) == 0 {
		return products, total, nil
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	tiers, err := r.tiersFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range products {
		products[i].Tiers = tiers[products[i].ID]
	}
	return products, total, nil
}

// GetProduct returns an active product with its tiers.
func (r PGRepository) GetProduct(ctx context.Context, id string) (Product, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id::text = $1 AND active`, id)
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	tiers, err := r.tiersFor(ctx, []string{p.ID})
	if err != nil {
		return Product{}, err
	}
	p.Tiers = tiers[p.ID]
	return p, nil
}

// Upsert writes a product and replaces its tier table in one transaction.
func (r PGRepository) Upsert(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		var mrp *string
		if p.MRP != nil {
			s := p.MRP.String()
			mrp = &s
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO products (id, title, slug, unit_price, mrp, active)
			VALUES ($1::uuid, $2, $3, $4::numeric, $5::numeric, $6)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				slug = EXCLUDED.slug,
				unit_price = EXCLUDED.unit_price,
				mrp = EXCLUDED.mrp,
				active = EXCLUDED.active,
				updated_at = now()`,
			p.ID, p.Title, p.Slug, p.UnitPrice.String(), mrp, p.Active); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_tiers WHERE product_id = $1::uuid`, p.ID); err != nil {
			return fmt.Errorf("clear tiers %s: %w", p.ID, err)
		}
		for _, bp := range p.Tiers {
			if _, err := tx.Exec(ctx, `INSERT INTO product_tiers (product_id, min_quantity, unit_price) VALUES ($1::uuid, $2, $3::numeric)`,
				p.ID, bp.MinQuantity, bp.UnitPrice.String()); err != nil {
				return fmt.Errorf("insert tier %s/%d: %w", p.ID, bp.MinQuantity, err)
			}
		}
		return nil
	})
}

func (r PGRepository) tiersFor(ctx context.Context, ids []string) (map[string]pricing.TierTable, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT product_id::text, min_quantity, unit_price::text
		FROM product_tiers
		WHERE product_id::text = ANY($1::text[])
		ORDER BY product_id, min_quantity`, ids)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()
	out := make(map[string]pricing.TierTable, len(ids))
	for rows.Next() {
		var (
			productID string
			minQty    int
			price     string
		)
		if err := rows.Scan(&productID, &minQty, &price); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("tier price %s/%d: %w", productID, minQty, err)
		}
		out[productID] = append(out[productID], pricing.TierBreakpoint{MinQuantity: minQty, UnitPrice: d})
	}
	return out, rows.Err()
}

func scanProduct(row pgx.CollectableRow) (Product, error) {
	var (
		p     Product
		price string
		mrp   *string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &price, &mrp, &p.Active); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("unit price %s: %w", p.ID, err)
	}
	p.UnitPrice = d
	if mrp != nil {
		m, err := decimal.NewFromString(*mrp)
		if err != nil {
			return Product{}, fmt.Errorf("mrp %s: %w", p.ID, err)
		}
		p.MRP = &m
	}
	return p, nil
}
