package promo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Service resolves the promotion and promo code in effect for a cart.
type Service struct {
	Store  Store
	Now    func() time.Time
	Logger zerolog.Logger
}

// ActivePromotion returns the best promotion active now, or nil when none
// applies. Store failures are logged and treated as no promotion.
func (s *Service) ActivePromotion(ctx context.Context) (*pricing.Promotion, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("promo service not configured")
	}
	records, err := s.Store.ListPromotions(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("load promotions")
		return nil, nil
	}
	return pickActive(records, s.now()), nil
}

// LookupCode returns the usable promo code for the entered value. An empty
// code yields nil without error.
func (s *Service) LookupCode(ctx context.Context, code string) (*pricing.PromoCode, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("promo service not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	rec, err := s.Store.GetCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, codeError(err)
		}
		return nil, fmt.Errorf("lookup promo code: %w", err)
	}
	if err := rec.Rule.Validate(s.now()); err != nil {
		return nil, codeError(err)
	}
	pc := rec.PromoCode
	pc.Code = NormalizeCode(pc.Code)
	if pc.PercentOffOverride != nil && (*pc.PercentOffOverride <= 0 || *pc.PercentOffOverride > 100) {
		pc.PercentOffOverride = nil
	}
	return &pc, nil
}

// RedeemCode counts one use of a code. Codes without a usage limit are still
// counted.
func (s *Service) RedeemCode(ctx context.Context, code string) error {
	if s == nil || s.Store == nil {
		return errors.New("promo service not configured")
	}
	code = NormalizeCode(code)
	if code == "" {
		return nil
	}
	if err := s.Store.RedeemCode(ctx, code); err != nil {
		if errors.Is(err, ErrUsageLimitReached) {
			return codeError(err)
		}
		return err
	}
	s.Logger.Debug().Str("promo_code", code).Msg("promo code redeemed")
	return nil
}

// ReleaseCode gives back a use taken by RedeemCode. Failures are logged.
func (s *Service) ReleaseCode(ctx context.Context, code string) {
	if s == nil || s.Store == nil {
		return
	}
	code = NormalizeCode(code)
	if code == "" {
		return
	}
	if err := s.Store.ReleaseCode(ctx, code); err != nil {
		s.Logger.Warn().Err(err).Str("promo_code", code).Msg("release promo code")
	}
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func codeError(err error) *common.AppError {
	return &common.AppError{
		Code:       "INVALID_PROMO_CODE",
		Message:    err.Error(),
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
	}
}
