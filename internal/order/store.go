package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/storefront/internal/totals"
)

// ErrNotFound is returned when an order id is unknown.
var ErrNotFound = errors.New("order not found")

// Record is an order row reduced to the fields needed for its totals.
type Record struct {
	ID        string
	SessionID string
	Currency  string
	Facts     totals.OrderFacts
}

// Store reads order money facts.
type Store interface {
	GetFacts(ctx context.Context, id string) (Record, error)
}

// PGStore reads orders from Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// The money columns were written by different checkout generations, so any
// of them may be NULL.
const getFactsSQL = `
SELECT id, COALESCE(stripe_session_id, ''), COALESCE(currency, ''),
       total_cents::float8, subtotal_cents::float8, amount_subtotal_cents::float8,
       amount_cents::float8, shipping_cents::float8, shipping_amount::float8
FROM orders
WHERE id = $1`

// GetFacts loads the order's persisted money columns.
func (s PGStore) GetFacts(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.Pool.QueryRow(ctx, getFactsSQL, id).Scan(
		&rec.ID, &rec.SessionID, &rec.Currency,
		&rec.Facts.TotalCents, &rec.Facts.SubtotalCents, &rec.Facts.AmountSubtotalCents,
		&rec.Facts.AmountCents, &rec.Facts.ShippingCents, &rec.Facts.ShippingAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("query order facts: %w", err)
	}
	return rec, nil
}
