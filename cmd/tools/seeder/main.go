package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/db"
)

type category struct {
	ID       string
	Name     string
	Slug     string
	Shipping int64
	Options  []string
	Label    string
}

type product struct {
	ID         string
	Name       string
	PriceCents int64
	Category   string
	Categories []string
	Override   *float64
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if err := db.Up(dbURL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if err := seedCategories(ctx, tx); err != nil {
			return err
		}
		if err := seedProducts(ctx, tx); err != nil {
			return err
		}
		return seedPromotions(ctx, tx)
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if err := invalidateCategoryCache(ctx, os.Getenv("REDIS_URL")); err != nil {
		log.Printf("Category cache not invalidated: %v", err)
	}
	log.Println("Seeding completed successfully!")
}

// invalidateCategoryCache drops the API's cached category snapshot so the
// seeded shipping fees are served immediately.
func invalidateCategoryCache(ctx context.Context, redisURL string) error {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return err
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()
	return catalog.NewCache(client, 0).Invalidate(ctx)
}

func seedCategories(ctx context.Context, tx pgx.Tx) error {
	categories := []category{
		{ID: "cat-posters", Name: "Posters", Slug: "posters", Shipping: 500, Label: "Size", Options: []string{"A3", "A2", "A1"}},
		{ID: "cat-framed", Name: "Framed Prints", Slug: "framed-prints", Shipping: 2000, Label: "Frame", Options: []string{"Oak", "Black", "White"}},
		{ID: "cat-stickers", Name: "Stickers", Slug: "stickers", Shipping: 0},
		{ID: "cat-apparel", Name: "Apparel", Slug: "apparel", Shipping: 800, Label: "Size", Options: []string{"S", "M", "L", "XL"}},
	}

	log.Println("Seeding Categories...")
	for i, c := range categories {
		var label, options *string
		if c.Label != "" {
			raw, err := json.Marshal(c.Options)
			if err != nil {
				return err
			}
			l, o := c.Label, string(raw)
			label, options = &l, &o
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO categories (id, name, slug, shipping_cents, sort_order, option_group_label, option_group_options_json)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				slug = EXCLUDED.slug,
				shipping_cents = EXCLUDED.shipping_cents,
				sort_order = EXCLUDED.sort_order,
				option_group_label = EXCLUDED.option_group_label,
				option_group_options_json = EXCLUDED.option_group_options_json`,
			c.ID, c.Name, c.Slug, c.Shipping, i, label, options)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedProducts(ctx context.Context, tx pgx.Tx) error {
	freeShip := 0.0
	products := []product{
		{ID: "prod-wave-poster", Name: "Great Wave Poster", PriceCents: 2500, Category: "Posters"},
		{ID: "prod-city-poster", Name: "City Lights Poster", PriceCents: 2200, Category: "posters"},
		{ID: "prod-oak-frame", Name: "Great Wave in Oak", PriceCents: 8900, Category: "Framed Prints", Categories: []string{"posters"}},
		{ID: "prod-sticker-pack", Name: "Sticker Pack", PriceCents: 600, Category: "Stickers", Override: &freeShip},
		{ID: "prod-logo-tee", Name: "Logo Tee", PriceCents: 3000, Category: "Apparel"},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		var cats *string
		if len(p.Categories) > 0 {
			raw, err := json.Marshal(p.Categories)
			if err != nil {
				return err
			}
			s := string(raw)
			cats = &s
		}
		override := 0
		if p.Override != nil {
			override = 1
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO products (id, name, price_cents, category, categories_json, shipping_override_enabled, shipping_override_amount_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				price_cents = EXCLUDED.price_cents,
				category = EXCLUDED.category,
				categories_json = EXCLUDED.categories_json,
				shipping_override_enabled = EXCLUDED.shipping_override_enabled,
				shipping_override_amount_cents = EXCLUDED.shipping_override_amount_cents`,
			p.ID, p.Name, p.PriceCents, p.Category, cats, override, p.Override)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedPromotions(ctx context.Context, tx pgx.Tx) error {
	log.Println("Seeding Promotions...")
	_, err := tx.Exec(ctx, `
		INSERT INTO promotions (id, name, percent_off, scope, category_slugs, enabled, starts_at, ends_at)
		VALUES ('promo-poster-week', 'Poster Week', 15, 'categories', ARRAY['posters'], TRUE, now() - interval '1 day', now() + interval '7 days')
		ON CONFLICT (id) DO UPDATE SET
			percent_off = EXCLUDED.percent_off,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at`)
	if err != nil {
		return err
	}

	log.Println("Seeding Promo Codes...")
	codes := []struct {
		Code         string
		Percent      *int
		FreeShipping bool
		UsageLimit   *int
	}{
		{Code: "WELCOME10", Percent: intPtr(10)},
		{Code: "SHIPFREE", FreeShipping: true, UsageLimit: intPtr(500)},
		{Code: "BIGSALE", Percent: intPtr(25), FreeShipping: true, UsageLimit: intPtr(100)},
	}
	for _, c := range codes {
		_, err := tx.Exec(ctx, `
			INSERT INTO promo_codes (code, percent_off, scope, free_shipping, enabled, usage_limit)
			VALUES ($1, $2, 'global', $3, TRUE, $4)
			ON CONFLICT (code) DO UPDATE SET
				percent_off = EXCLUDED.percent_off,
				free_shipping = EXCLUDED.free_shipping,
				usage_limit = EXCLUDED.usage_limit`,
			c.Code, c.Percent, c.FreeShipping, c.UsageLimit)
		if err != nil {
			return err
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }
