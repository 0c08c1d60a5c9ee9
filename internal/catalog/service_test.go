package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/common"
)

type fakeStore struct {
	categories []catalog.Category
	products   []catalog.Product
	err        error
	calls      int
}

func (f *fakeStore) ListCategories(context.Context) ([]catalog.Category, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

func (f *fakeStore) GetProducts(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) MatchProductRefs(_ context.Context, refs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range f.products {
		for _, ref := range refs {
			if ref == p.ID || ref == p.StripeProductID || ref == p.StripePriceID {
				out[ref] = p.ID
			}
		}
	}
	return out, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleCategories() []catalog.Category {
	return []catalog.Category{
		{ID: "c1", Name: "Rings", Slug: "rings", ShippingCents: 500, SortOrder: 1},
		{ID: "c2", Name: "Decor", Slug: "decor", ShippingCents: 800, SortOrder: 2},
	}
}

func TestListCategoriesUsesCache(t *testing.T) {
	_, client := newRedis(t)
	store := &fakeStore{categories: sampleCategories()}
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:  store,
		Cache:  catalog.NewCache(client, time.Minute),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	second, err := svc.ListCategories(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, store.calls)
	require.Len(t, second, 2)
	require.Equal(t, first[1].Slug, second[1].Slug)
	require.Equal(t, int64(800), second[1].ShippingCents)
}

func TestInvalidateDropsCachedCategories(t *testing.T) {
	_, client := newRedis(t)
	store := &fakeStore{categories: sampleCategories()}
	cache := catalog.NewCache(client, time.Minute)
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Cache: cache, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.ListCategories(ctx)
	require.NoError(t, err)

	store.categories[1].ShippingCents = 1200
	require.NoError(t, cache.Invalidate(ctx))

	got, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, store.calls)
	require.Equal(t, int64(1200), got[1].ShippingCents)
}

func TestInvalidateWithoutClient(t *testing.T) {
	require.NoError(t, catalog.NewCache(nil, time.Minute).Invalidate(context.Background()))
}

func TestListCategoriesFallsBackWhenCacheIsDown(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()
	store := &fakeStore{categories: sampleCategories()}
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Cache: catalog.NewCache(client, time.Minute), Logger: zerolog.Nop()})
	require.NoError(t, err)

	got, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestListCategoriesStoreFailure(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: &fakeStore{err: errors.New("db down")}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = svc.ListCategories(context.Background())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
}

func TestShippingTableFromSnapshot(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: &fakeStore{categories: sampleCategories()}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	table, cats, err := svc.ShippingTable(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	fee, ok := table.Fee("Decor")
	require.True(t, ok)
	require.Equal(t, int64(800), fee)
}

func TestMatchProductRefs(t *testing.T) {
	store := &fakeStore{products: []catalog.Product{{ID: "p1", StripeProductID: "prod_1", StripePriceID: "price_1"}}}
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)

	matched, err := svc.MatchProductRefs(context.Background(), []string{"prod_1", "price_x"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"prod_1": "p1"}, matched)
}

func TestCategoriesHandler(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: &fakeStore{categories: sampleCategories()}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	rec := httptest.NewRecorder()
	handler.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Categories []catalog.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Categories, 2)
	require.Equal(t, "rings", body.Categories[0].Slug)
}

func TestCategoriesHandlerStoreDown(t *testing.T) {
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: &fakeStore{err: errors.New("boom")}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	rec := httptest.NewRecorder()
	handler.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "UNAVAILABLE")
}

func TestCategoriesHandlerRevalidatesWithETag(t *testing.T) {
	store := &fakeStore{categories: sampleCategories()}
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc, MaxAge: 30 * time.Second})

	first := httptest.NewRecorder()
	handler.Categories(first, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Equal(t, "public, max-age=30, must-revalidate", first.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("If-None-Match", `"stale", `+etag)
	again := httptest.NewRecorder()
	handler.Categories(again, req)
	require.Equal(t, http.StatusNotModified, again.Code)
	require.Empty(t, again.Body.String())

	// A fee change produces a new tag.
	store.categories = []catalog.Category{{ID: "c1", Name: "Rings", Slug: "rings", ShippingCents: 650, SortOrder: 1}}
	changed := httptest.NewRecorder()
	handler.Categories(changed, req)
	require.Equal(t, http.StatusOK, changed.Code)
	require.NotEqual(t, etag, changed.Header().Get("ETag"))
}
