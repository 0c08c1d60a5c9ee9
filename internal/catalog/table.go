package catalog

// ShippingTable maps normalized category keys to flat shipping fees in cents.
// It is built once per request from a category snapshot and never mutated.
type ShippingTable struct {
	fees map[string]int64
}

// BuildShippingTable indexes every category under both its slug key and its
// name key. When two categories share a key the larger fee wins, so a
// category can never be shadowed by a cheaper duplicate.
func BuildShippingTable(categories []Category) ShippingTable {
	fees := make(map[string]int64, len(categories)*2)
	for _, cat := range categories {
		fee := cat.ShippingCents
		if fee < 0 {
			fee = 0
		}
		for _, key := range []string{NormalizeKey(cat.Slug), NormalizeKey(cat.Name)} {
			if key == "" {
				continue
			}
			if existing, ok := fees[key]; !ok || fee > existing {
				fees[key] = fee
			}
		}
	}
	return ShippingTable{fees: fees}
}

// Fee looks up the fee for a free-text category label.
func (t ShippingTable) Fee(label string) (int64, bool) {
	key := NormalizeKey(label)
	if key == "" || t.fees == nil {
		return 0, false
	}
	fee, ok := t.fees[key]
	return fee, ok
}

// Len reports the number of distinct keys.
func (t ShippingTable) Len() int {
	return len(t.fees)
}
