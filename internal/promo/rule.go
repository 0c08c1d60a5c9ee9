// Package promo loads automatic promotions and promo codes and checks that
// they are usable right now.
package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/storefront/internal/pricing"
)

var (
	// ErrCodeNotFound is returned when no promo code matches the input.
	ErrCodeNotFound = errors.New("promo code not found")
	// ErrCodeDisabled is returned for codes switched off by an admin.
	ErrCodeDisabled = errors.New("promo code disabled")
	// ErrCodeInactive is returned before the code's start time.
	ErrCodeInactive = errors.New("promo code not active yet")
	// ErrCodeExpired is returned after the code's end time.
	ErrCodeExpired = errors.New("promo code expired")
	// ErrUsageLimitReached indicates the code has exhausted its usage quota.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
)

// Rule captures the runtime constraints shared by promotions and codes.
type Rule struct {
	Enabled    bool
	StartsAt   *time.Time
	EndsAt     *time.Time
	UsageLimit *int32
	UsedCount  int32
}

// Validate ensures the rule can be applied at the provided instant.
func (r Rule) Validate(now time.Time) error {
	if !r.Enabled {
		return ErrCodeDisabled
	}
	if r.StartsAt != nil && now.Before(*r.StartsAt) {
		return ErrCodeInactive
	}
	if r.EndsAt != nil && now.After(*r.EndsAt) {
		return ErrCodeExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// PromotionRecord is a stored automatic promotion.
type PromotionRecord struct {
	pricing.Promotion
	Rule Rule
}

// CodeRecord is a stored promo code.
type CodeRecord struct {
	pricing.PromoCode
	Rule Rule
}

// ParseScope maps a stored scope onto pricing scopes. An empty scope is
// global; unknown scopes are kept so pricing grants them nothing.
func ParseScope(raw string) pricing.Scope {
	switch scope := strings.ToLower(strings.TrimSpace(raw)); scope {
	case "", string(pricing.ScopeGlobal):
		return pricing.ScopeGlobal
	case string(pricing.ScopeCategories):
		return pricing.ScopeCategories
	default:
		return pricing.Scope(scope)
	}
}

// NormalizeCode canonicalizes a customer-entered code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// pickActive returns the enabled, in-window promotion with the highest valid
// percent. Ties keep the earlier record.
func pickActive(records []PromotionRecord, now time.Time) *pricing.Promotion {
	var best *pricing.Promotion
	for i := range records {
		rec := records[i]
		if rec.PercentOff <= 0 || rec.PercentOff > 100 {
			continue
		}
		if err := rec.Rule.Validate(now); err != nil {
			continue
		}
		if best == nil || rec.PercentOff > best.PercentOff {
			p := rec.Promotion
			best = &p
		}
	}
	return best
}
