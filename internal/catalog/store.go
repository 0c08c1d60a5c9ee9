package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the read side of the catalog used by pricing and reconciliation.
type Store interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetProducts(ctx context.Context, ids []string) ([]Product, error)
	MatchProductRefs(ctx context.Context, refs []string) (map[string]string, error)
}

// PGStore reads catalog rows from Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

const listCategoriesSQL = `
SELECT id, name, slug, COALESCE(shipping_cents, 0), COALESCE(sort_order, 0),
       option_group_label, option_group_options_json, created_at
FROM categories
ORDER BY sort_order ASC, created_at ASC, name ASC`

// ListCategories returns categories ordered by sort order, creation time and name.
func (s PGStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.Pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var result []Category
	for rows.Next() {
		var (
			cat         Category
			name, slug  *string
			label, opts *string
		)
		if err := rows.Scan(&cat.ID, &name, &slug, &cat.ShippingCents, &cat.SortOrder, &label, &opts, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if cat.ID == "" || name == nil || *name == "" || slug == nil || *slug == "" {
			continue
		}
		cat.Name = *name
		cat.Slug = *slug
		if cat.ShippingCents < 0 {
			cat.ShippingCents = 0
		}
		cat.OptionGroupLabel, cat.OptionGroupOptions = parseOptionGroup(label, opts)
		result = append(result, cat)
	}
	return result, rows.Err()
}

const getProductsSQL = `
SELECT id, name, price_cents, category, categories_json,
       COALESCE(shipping_override_enabled, 0), shipping_override_amount_cents,
       COALESCE(stripe_product_id, ''), COALESCE(stripe_price_id, '')
FROM products
WHERE id = ANY($1)`

// GetProducts loads the requested products. Unknown ids are omitted.
func (s PGStore) GetProducts(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, getProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		var (
			p          Product
			category   *string
			categories *string
			enabled    int
		)
		if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &category, &categories, &enabled,
			&p.ShippingOverrideAmountCents, &p.StripeProductID, &p.StripePriceID); err != nil {
			return Product{}, err
		}
		if category != nil {
			p.Category = strings.TrimSpace(*category)
		}
		p.Categories = parseStringArray(categories)
		p.ShippingOverrideEnabled = enabled == 1
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

const matchProductRefsSQL = `
SELECT id, COALESCE(stripe_product_id, ''), COALESCE(stripe_price_id, '')
FROM products
WHERE id = ANY($1) OR stripe_product_id = ANY($1) OR stripe_price_id = ANY($1)`

// MatchProductRefs maps gateway product references (local id, gateway product
// id or gateway price id) to local product ids.
func (s PGStore) MatchProductRefs(ctx context.Context, refs []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(refs) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, matchProductRefsSQL, refs)
	if err != nil {
		return nil, fmt.Errorf("query product refs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, productRef, priceRef string
		if err := rows.Scan(&id, &productRef, &priceRef); err != nil {
			return nil, fmt.Errorf("scan product ref: %w", err)
		}
		for _, key := range []string{id, productRef, priceRef} {
			if key != "" {
				out[key] = id
			}
		}
	}
	return out, rows.Err()
}
