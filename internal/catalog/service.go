package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/common"
)

// Service serves category snapshots and product lookups, caching the
// category list in Redis.
type Service struct {
	store  Store
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// ListCategories returns the ordered category snapshot. Cache failures are
// logged and the store is used instead.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cached []Category
	ok, err := s.cache.GetJSON(ctx, categoriesCacheKey, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read category cache")
	}
	if ok && err == nil {
		return cached, nil
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, &common.AppError{Code: "UNAVAILABLE", Message: "category store unavailable", HTTPStatus: http.StatusServiceUnavailable, Err: err}
	}
	if categories == nil {
		categories = []Category{}
	}
	if err := s.cache.SetJSON(ctx, categoriesCacheKey, categories); err != nil {
		s.logger.Warn().Err(err).Msg("write category cache")
	}
	return categories, nil
}

// ShippingTable builds the shipping table from the current category snapshot.
func (s *Service) ShippingTable(ctx context.Context) (ShippingTable, []Category, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return ShippingTable{}, nil, err
	}
	return BuildShippingTable(categories), categories, nil
}

// Products returns products keyed by id.
func (s *Service) Products(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	out := make(map[string]Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// MatchProductRefs resolves gateway product references to local product ids.
func (s *Service) MatchProductRefs(ctx context.Context, refs []string) (map[string]string, error) {
	matched, err := s.store.MatchProductRefs(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("match product refs: %w", err)
	}
	return matched, nil
}
