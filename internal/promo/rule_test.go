package promo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/pricing"
)

func TestRuleValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)
	limit := int32(2)

	require.ErrorIs(t, Rule{}.Validate(now), ErrCodeDisabled)
	require.ErrorIs(t, Rule{Enabled: true, StartsAt: &after}.Validate(now), ErrCodeInactive)
	require.ErrorIs(t, Rule{Enabled: true, EndsAt: &before}.Validate(now), ErrCodeExpired)
	require.ErrorIs(t, Rule{Enabled: true, UsageLimit: &limit, UsedCount: 2}.Validate(now), ErrUsageLimitReached)
	require.NoError(t, Rule{Enabled: true, StartsAt: &before, EndsAt: &after, UsageLimit: &limit, UsedCount: 1}.Validate(now))
}

func TestPickActivePrefersHighestPercent(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	records := []PromotionRecord{
		{Promotion: pricing.Promotion{ID: "a", PercentOff: 10}, Rule: Rule{Enabled: true}},
		{Promotion: pricing.Promotion{ID: "b", PercentOff: 30}, Rule: Rule{Enabled: true, EndsAt: &past}},
		{Promotion: pricing.Promotion{ID: "c", PercentOff: 20}, Rule: Rule{Enabled: true}},
		{Promotion: pricing.Promotion{ID: "d", PercentOff: 120}, Rule: Rule{Enabled: true}},
		{Promotion: pricing.Promotion{ID: "e", PercentOff: 25}},
	}
	got := pickActive(records, now)
	require.NotNil(t, got)
	require.Equal(t, "c", got.ID)

	require.Nil(t, pickActive(nil, now))
}

func TestParseScopeAndNormalizeCode(t *testing.T) {
	require.Equal(t, pricing.ScopeCategories, ParseScope(" Categories "))
	require.Equal(t, pricing.ScopeGlobal, ParseScope(" GLOBAL"))
	require.Equal(t, pricing.ScopeGlobal, ParseScope(""))
	require.Equal(t, pricing.Scope("sitewide"), ParseScope("sitewide"))
	require.Equal(t, "SAVE20", NormalizeCode(" save20 "))
}
