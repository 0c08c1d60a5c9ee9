package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads promotions and promo codes and tracks code usage.
type Store interface {
	ListPromotions(ctx context.Context) ([]PromotionRecord, error)
	GetCode(ctx context.Context, code string) (CodeRecord, error)
	// RedeemCode counts one use of the code, failing with
	// ErrUsageLimitReached when no use is left.
	RedeemCode(ctx context.Context, code string) error
	// ReleaseCode returns a use taken by RedeemCode.
	ReleaseCode(ctx context.Context, code string) error
}

// PGStore keeps promotions and promo codes in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

const listPromotionsSQL = `
SELECT id, name, percent_off, scope, COALESCE(category_slugs, '{}'),
       enabled, starts_at, ends_at
FROM promotions
ORDER BY created_at ASC`

// ListPromotions returns every stored promotion; activity is decided by the caller.
func (s PGStore) ListPromotions(ctx context.Context) ([]PromotionRecord, error) {
	rows, err := s.Pool.Query(ctx, listPromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PromotionRecord, error) {
		var (
			rec   PromotionRecord
			scope string
		)
		err := row.Scan(&rec.ID, &rec.Name, &rec.PercentOff, &scope, &rec.CategorySlugs,
			&rec.Rule.Enabled, &rec.Rule.StartsAt, &rec.Rule.EndsAt)
		rec.Scope = ParseScope(scope)
		return rec, err
	})
}

const getCodeSQL = `
SELECT code, percent_off, scope, COALESCE(category_slugs, '{}'), free_shipping,
       enabled, starts_at, ends_at, usage_limit, used_count
FROM promo_codes
WHERE upper(code) = $1`

// GetCode loads one promo code by its normalized value.
func (s PGStore) GetCode(ctx context.Context, code string) (CodeRecord, error) {
	var (
		rec     CodeRecord
		scope   string
		percent *int32
	)
	err := s.Pool.QueryRow(ctx, getCodeSQL, NormalizeCode(code)).Scan(
		&rec.Code, &percent, &scope, &rec.CategorySlugs, &rec.FreeShipping,
		&rec.Rule.Enabled, &rec.Rule.StartsAt, &rec.Rule.EndsAt, &rec.Rule.UsageLimit, &rec.Rule.UsedCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CodeRecord{}, ErrCodeNotFound
		}
		return CodeRecord{}, fmt.Errorf("query promo code: %w", err)
	}
	rec.Scope = ParseScope(scope)
	if percent != nil {
		p := int(*percent)
		rec.PercentOffOverride = &p
	}
	return rec, nil
}

const redeemCodeSQL = `
UPDATE promo_codes
SET used_count = used_count + 1
WHERE upper(code) = $1
  AND (usage_limit IS NULL OR usage_limit < 0 OR used_count < usage_limit)
RETURNING used_count`

// RedeemCode increments used_count only while the limit allows it, so
// concurrent checkouts cannot overshoot the limit.
func (s PGStore) RedeemCode(ctx context.Context, code string) error {
	var used int32
	err := s.Pool.QueryRow(ctx, redeemCodeSQL, NormalizeCode(code)).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUsageLimitReached
		}
		return fmt.Errorf("redeem promo code: %w", err)
	}
	return nil
}

const releaseCodeSQL = `
UPDATE promo_codes
SET used_count = GREATEST(used_count - 1, 0)
WHERE upper(code) = $1`

// ReleaseCode gives back one use of the code.
func (s PGStore) ReleaseCode(ctx context.Context, code string) error {
	if _, err := s.Pool.Exec(ctx, releaseCodeSQL, NormalizeCode(code)); err != nil {
		return fmt.Errorf("release promo code: %w", err)
	}
	return nil
}
