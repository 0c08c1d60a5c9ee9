package promo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/promo"
)

type stubStore struct {
	promotions []promo.PromotionRecord
	codes      map[string]promo.CodeRecord
	err        error
}

func (s *stubStore) ListPromotions(context.Context) ([]promo.PromotionRecord, error) {
	return s.promotions, s.err
}

func (s *stubStore) GetCode(_ context.Context, code string) (promo.CodeRecord, error) {
	if s.err != nil {
		return promo.CodeRecord{}, s.err
	}
	rec, ok := s.codes[promo.NormalizeCode(code)]
	if !ok {
		return promo.CodeRecord{}, promo.ErrCodeNotFound
	}
	return rec, nil
}

func (s *stubStore) RedeemCode(_ context.Context, code string) error {
	if s.err != nil {
		return s.err
	}
	rec, ok := s.codes[code]
	if !ok {
		return promo.ErrUsageLimitReached
	}
	if limit := rec.Rule.UsageLimit; limit != nil && *limit >= 0 && rec.Rule.UsedCount >= *limit {
		return promo.ErrUsageLimitReached
	}
	rec.Rule.UsedCount++
	s.codes[code] = rec
	return nil
}

func (s *stubStore) ReleaseCode(_ context.Context, code string) error {
	if s.err != nil {
		return s.err
	}
	if rec, ok := s.codes[code]; ok && rec.Rule.UsedCount > 0 {
		rec.Rule.UsedCount--
		s.codes[code] = rec
	}
	return nil
}

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newService(store promo.Store) *promo.Service {
	return &promo.Service{Store: store, Now: func() time.Time { return fixedNow }, Logger: zerolog.Nop()}
}

func intPtr(v int) *int { return &v }

func TestLookupCode(t *testing.T) {
	expired := fixedNow.Add(-time.Hour)
	store := &stubStore{codes: map[string]promo.CodeRecord{
		"SAVE20": {
			PromoCode: pricing.PromoCode{Code: "save20", PercentOffOverride: intPtr(20), Scope: pricing.ScopeGlobal},
			Rule:      promo.Rule{Enabled: true},
		},
		"SHIPFREE": {
			PromoCode: pricing.PromoCode{Code: "SHIPFREE", FreeShipping: true, Scope: pricing.ScopeGlobal},
			Rule:      promo.Rule{Enabled: true},
		},
		"OLD": {
			PromoCode: pricing.PromoCode{Code: "OLD", PercentOffOverride: intPtr(50)},
			Rule:      promo.Rule{Enabled: true, EndsAt: &expired},
		},
		"BROKEN": {
			PromoCode: pricing.PromoCode{Code: "BROKEN", PercentOffOverride: intPtr(0)},
			Rule:      promo.Rule{Enabled: true},
		},
	}}
	svc := newService(store)
	ctx := context.Background()

	code, err := svc.LookupCode(ctx, " save20 ")
	require.NoError(t, err)
	require.Equal(t, "SAVE20", code.Code)
	require.Equal(t, 20, *code.PercentOffOverride)

	code, err = svc.LookupCode(ctx, "shipfree")
	require.NoError(t, err)
	require.True(t, code.FreeShipping)
	require.Nil(t, code.PercentOffOverride)

	code, err = svc.LookupCode(ctx, "broken")
	require.NoError(t, err)
	require.Nil(t, code.PercentOffOverride)

	code, err = svc.LookupCode(ctx, "  ")
	require.NoError(t, err)
	require.Nil(t, code)

	_, err = svc.LookupCode(ctx, "old")
	require.ErrorIs(t, err, promo.ErrCodeExpired)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)

	_, err = svc.LookupCode(ctx, "nope")
	require.ErrorIs(t, err, promo.ErrCodeNotFound)
}

func TestLookupCodeStoreFailure(t *testing.T) {
	svc := newService(&stubStore{err: errors.New("db down")})
	_, err := svc.LookupCode(context.Background(), "SAVE20")
	require.Error(t, err)
	var appErr *common.AppError
	require.False(t, errors.As(err, &appErr))
}

func TestRedeemCodeCountsDownUsageLimit(t *testing.T) {
	limit := int32(1)
	store := &stubStore{codes: map[string]promo.CodeRecord{
		"ONCE": {
			PromoCode: pricing.PromoCode{Code: "ONCE", PercentOffOverride: intPtr(10), Scope: pricing.ScopeGlobal},
			Rule:      promo.Rule{Enabled: true, UsageLimit: &limit},
		},
	}}
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.LookupCode(ctx, "once")
	require.NoError(t, err)
	require.NoError(t, svc.RedeemCode(ctx, " once "))
	require.Equal(t, int32(1), store.codes["ONCE"].Rule.UsedCount)

	_, err = svc.LookupCode(ctx, "once")
	require.ErrorIs(t, err, promo.ErrUsageLimitReached)

	err = svc.RedeemCode(ctx, "ONCE")
	require.ErrorIs(t, err, promo.ErrUsageLimitReached)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)

	svc.ReleaseCode(ctx, "once")
	require.Zero(t, store.codes["ONCE"].Rule.UsedCount)
	_, err = svc.LookupCode(ctx, "once")
	require.NoError(t, err)
}

func TestRedeemCodeIgnoresBlankCode(t *testing.T) {
	svc := newService(&stubStore{err: errors.New("db down")})
	require.NoError(t, svc.RedeemCode(context.Background(), "  "))
}

func TestActivePromotionDegradesOnStoreError(t *testing.T) {
	svc := newService(&stubStore{err: errors.New("db down")})
	got, err := svc.ActivePromotion(context.Background())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestActiveHandler(t *testing.T) {
	store := &stubStore{promotions: []promo.PromotionRecord{
		{Promotion: pricing.Promotion{ID: "spring", Name: "Spring", PercentOff: 15, Scope: pricing.ScopeGlobal}, Rule: promo.Rule{Enabled: true}},
	}}
	h := &promo.Handler{Svc: newService(store)}

	rec := httptest.NewRecorder()
	h.Active(rec, httptest.NewRequest(http.MethodGet, "/api/v1/promotions/active", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"percentOff":15`)
}
