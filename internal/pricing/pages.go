package pricing

// PageBreakdown itemizes a per-page price.
type PageBreakdown struct {
	PageCount    int   `json:"page_count"`
	BasePages    int   `json:"base_pages"`
	BasePrice    Money `json:"base_price"`
	ExtraPages   int   `json:"extra_pages"`
	PricePerPage Money `json:"price_per_page"`
	Extension    Money `json:"extension"`
	Unit         Money `json:"unit"`
}

// PageExtension prices pageCount pages against a per-page tier. The base price
// covers BasePages pages; each page beyond costs PricePerPage. Page counts at
// or below BasePages never reduce the price.
func PageExtension(tier QuantityTier, pageCount int) PageBreakdown {
	var base Money
	if tier.BasePrice != nil {
		base = *tier.BasePrice
	}

	extra := max(0, pageCount-tier.BasePages)
	extension := tier.PricePerPage.Times(extra)

	return PageBreakdown{
		PageCount:    pageCount,
		BasePages:    tier.BasePages,
		BasePrice:    base,
		ExtraPages:   extra,
		PricePerPage: tier.PricePerPage,
		Extension:    extension,
		Unit:         base + extension,
	}
}
