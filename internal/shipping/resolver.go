// Package shipping computes the flat shipping fee for a set of purchasable
// items from per-item overrides and per-category fees.
package shipping

import (
	"strings"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/money"
)

// Resolution sources.
const (
	SourceOverride = "override"
	SourceCategory = "category"
	SourceEmpty    = "empty"
)

// Item is the minimal shape the resolver needs from a cart or order line.
type Item struct {
	Category            string      `json:"category,omitempty"`
	Categories          []string    `json:"categories,omitempty"`
	OverrideEnabled     Flag        `json:"shippingOverrideEnabled"`
	OverrideAmountCents money.Loose `json:"shippingOverrideAmountCents"`
}

// Resolution is the order-level shipping fee plus the intermediate maxima
// kept for audit.
type Resolution struct {
	Cents            int64  `json:"cents"`
	Source           string `json:"source"`
	OverrideMaxCents *int64 `json:"overrideMaxCents,omitempty"`
	CategoryMaxCents int64  `json:"categoryMaxCents"`
}

// Resolve computes one shipping fee for the whole order.
//
// Precedence is order-wide, not per item: if any item carries a valid
// override, the fee is the largest override and category fees are ignored
// for every item, including items that have no override and would demand a
// higher category fee. Without overrides the fee is the largest category
// fee across items. Do not change this into per-item blending; storefront
// previews and receipts depend on it.
func Resolve(items []Item, table catalog.ShippingTable) Resolution {
	if len(items) == 0 {
		return Resolution{Source: SourceEmpty}
	}

	var (
		overrideMax *int64
		categoryMax int64
	)
	for _, item := range items {
		if cents, ok := overrideCents(item); ok {
			if overrideMax == nil || cents > *overrideMax {
				v := cents
				overrideMax = &v
			}
			continue
		}
		if fee := categoryCents(item, table); fee > categoryMax {
			categoryMax = fee
		}
	}

	if overrideMax != nil {
		return Resolution{Cents: *overrideMax, Source: SourceOverride, OverrideMaxCents: overrideMax, CategoryMaxCents: categoryMax}
	}
	return Resolution{Cents: categoryMax, Source: SourceCategory, CategoryMaxCents: categoryMax}
}

// CalculateCents builds the table from categories and returns the fee.
func CalculateCents(items []Item, categories []catalog.Category) int64 {
	if len(items) == 0 {
		return 0
	}
	return Resolve(items, catalog.BuildShippingTable(categories)).Cents
}

// overrideCents returns the item's override when the flag is on and the
// amount is a finite non-negative number. An enabled flag with a bad amount
// is treated as no override at all.
func overrideCents(item Item) (int64, bool) {
	if !item.OverrideEnabled {
		return 0, false
	}
	v, ok := item.OverrideAmountCents.Float()
	if !ok || !money.Present(v) {
		return 0, false
	}
	return money.Round(v), true
}

// categoryCents charges an item by its most expensive matched category.
func categoryCents(item Item, table catalog.ShippingTable) int64 {
	var itemMax int64
	for _, label := range Labels(item.Category, item.Categories) {
		fee, ok := table.Fee(label)
		if ok && fee > itemMax {
			itemMax = fee
		}
	}
	return itemMax
}

// Labels returns the primary label followed by the secondary labels, with
// blank entries dropped.
func Labels(primary string, secondary []string) []string {
	out := make([]string, 0, len(secondary)+1)
	if strings.TrimSpace(primary) != "" {
		out = append(out, primary)
	}
	for _, label := range secondary {
		if strings.TrimSpace(label) != "" {
			out = append(out, label)
		}
	}
	return out
}
