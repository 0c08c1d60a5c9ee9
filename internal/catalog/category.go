package catalog

import (
	"encoding/json"
	"strings"
	"time"
)

// Category is a storefront category with its flat shipping fee.
type Category struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	ShippingCents      int64     `json:"shippingCents"`
	SortOrder          int       `json:"sortOrder"`
	OptionGroupLabel   *string   `json:"optionGroupLabel,omitempty"`
	OptionGroupOptions []string  `json:"optionGroupOptions,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Product is the pricing view of a catalog product.
type Product struct {
	ID                          string   `json:"id"`
	Name                        string   `json:"name"`
	PriceCents                  int64    `json:"priceCents"`
	Category                    string   `json:"category,omitempty"`
	Categories                  []string `json:"categories,omitempty"`
	ShippingOverrideEnabled     bool     `json:"shippingOverrideEnabled"`
	ShippingOverrideAmountCents *float64 `json:"shippingOverrideAmountCents,omitempty"`
	StripeProductID             string   `json:"stripeProductId,omitempty"`
	StripePriceID               string   `json:"stripePriceId,omitempty"`
}

// NormalizeKey turns a category name, slug or free-text label into the key
// used for matching: lowercase, runs of characters outside [a-z0-9] collapsed
// into a single hyphen, no leading or trailing hyphen.
func NormalizeKey(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	pendingHyphen := false
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// parseOptionGroup mirrors how the storefront exposes option groups: the
// options are only kept when a non-blank label exists.
func parseOptionGroup(label *string, optionsJSON *string) (*string, []string) {
	if label == nil || strings.TrimSpace(*label) == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*label)
	options := parseStringArray(optionsJSON)
	if len(options) == 0 {
		return &trimmed, nil
	}
	return &trimmed, options
}

func parseStringArray(raw *string) []string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	var values []any
	if err := json.Unmarshal([]byte(*raw), &values); err != nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FindCategory returns the first category whose slug or name normalizes to
// the same key as label.
func FindCategory(categories []Category, label string) (Category, bool) {
	key := NormalizeKey(label)
	if key == "" {
		return Category{}, false
	}
	for _, c := range categories {
		if NormalizeKey(c.Slug) == key || NormalizeKey(c.Name) == key {
			return c, true
		}
	}
	return Category{}, false
}
