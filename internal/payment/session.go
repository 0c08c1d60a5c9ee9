package payment

import (
	"regexp"
	"strings"

	"github.com/noah-isme/storefront/internal/money"
)

// Line item metadata keys written when a checkout session is created and read
// back when it is fetched.
const (
	MetaKind             = "kind"
	MetaProductID        = "product_id"
	MetaOptionGroupLabel = "option_group_label"
	MetaOptionValue      = "option_value"

	KindShipping = "shipping"
)

// Session is the money-relevant part of a gateway checkout session. Every
// field is optional and untrusted; validation happens in the totals engine.
type Session struct {
	AmountTotal    *float64      `json:"amount_total,omitempty"`
	AmountSubtotal *float64      `json:"amount_subtotal,omitempty"`
	TotalDetails   *TotalDetails `json:"total_details,omitempty"`
}

// TotalDetails is the session's own breakdown of the total.
type TotalDetails struct {
	AmountShipping *float64 `json:"amount_shipping,omitempty"`
	AmountDiscount *float64 `json:"amount_discount,omitempty"`
	AmountTax      *float64 `json:"amount_tax,omitempty"`
}

// LineItem is one purchased entry of a checkout session.
type LineItem struct {
	Description    string            `json:"description"`
	Quantity       *float64          `json:"quantity,omitempty"`
	UnitAmount     *float64          `json:"unit_amount,omitempty"`
	AmountTotal    *float64          `json:"amount_total,omitempty"`
	AmountSubtotal *float64          `json:"amount_subtotal,omitempty"`
	ProductRef     string            `json:"product_ref,omitempty"`
	PriceRef       string            `json:"price_ref,omitempty"`
	ProductName    string            `json:"product_name,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IsShipping     bool              `json:"is_shipping"`
}

// Total returns the line total, falling back to unit amount times quantity.
// Quantity defaults to 1 and a missing unit amount counts as 0.
func (l LineItem) Total() float64 {
	if v, ok := money.Deref(l.AmountTotal); ok {
		return v
	}
	qty := 1.0
	if q, ok := money.Deref(l.Quantity); ok {
		qty = q
	}
	unit, _ := money.Deref(l.UnitAmount)
	return unit * qty
}

// Subtotal returns the pre-discount line amount, falling back to unit amount
// times quantity.
func (l LineItem) Subtotal() float64 {
	if v, ok := money.Deref(l.AmountSubtotal); ok {
		return v
	}
	qty := 1.0
	if q, ok := money.Deref(l.Quantity); ok {
		qty = q
	}
	unit, _ := money.Deref(l.UnitAmount)
	return unit * qty
}

// Name returns the product name, then the description, then "Item".
func (l LineItem) Name() string {
	if name := strings.TrimSpace(l.ProductName); name != "" {
		return name
	}
	if desc := strings.TrimSpace(l.Description); desc != "" {
		return desc
	}
	return "Item"
}

var shippingText = regexp.MustCompile(`(?i)^\s*shipping\b|\bshipping (fee|charge|cost)\b`)

// IsShippingLine reports whether a line represents a shipping charge rather
// than merchandise, judged by its product metadata, then its name or
// description. Callers that can match the line to a catalog product must
// clear the flag for matched lines.
func IsShippingLine(l LineItem) bool {
	for _, key := range []string{MetaKind, "type"} {
		if strings.EqualFold(strings.TrimSpace(l.Metadata[key]), KindShipping) {
			return true
		}
	}
	if v := strings.TrimSpace(l.Metadata["is_shipping"]); v == "1" || strings.EqualFold(v, "true") {
		return true
	}
	return shippingText.MatchString(l.ProductName) || shippingText.MatchString(l.Description)
}

// ShippingRefs returns the product refs of lines currently flagged as
// shipping, so callers can check them against the catalog.
func ShippingRefs(lines []LineItem) []string {
	var refs []string
	for _, l := range lines {
		if l.IsShipping && l.ProductRef != "" {
			refs = append(refs, l.ProductRef)
		}
	}
	return refs
}

// UnflagMatched clears the shipping flag on lines whose product ref matched a
// catalog product. A real product is never a shipping placeholder.
func UnflagMatched(lines []LineItem, matched map[string]string) []LineItem {
	out := make([]LineItem, len(lines))
	copy(out, lines)
	for i := range out {
		if _, ok := matched[out[i].ProductRef]; ok && out[i].ProductRef != "" {
			out[i].IsShipping = false
		}
	}
	return out
}
