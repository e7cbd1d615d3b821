package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

// sidedPriceKeys maps the keys of TierConfig.Prices onto tier fields.
var sidedPriceKeys = map[string]func(*pricing.QuantityTier, *pricing.Money){
	"single_sided":      func(t *pricing.QuantityTier, m *pricing.Money) { t.SingleSidedPrice = m },
	"double_sided":      func(t *pricing.QuantityTier, m *pricing.Money) { t.DoubleSidedPrice = m },
	"four_color_single": func(t *pricing.QuantityTier, m *pricing.Money) { t.FourColorSinglePrice = m },
	"four_color_double": func(t *pricing.QuantityTier, m *pricing.Money) { t.FourColorDoublePrice = m },
	"six_color_single":  func(t *pricing.QuantityTier, m *pricing.Money) { t.SixColorSinglePrice = m },
	"six_color_double":  func(t *pricing.QuantityTier, m *pricing.Money) { t.SixColorDoublePrice = m },
}

// TierTables converts the sheet into tier tables. The sheet should pass
// Validator.Validate first; TierTables still reports malformed ids and bounds.
func (s *PriceSheet) TierTables() ([]pricing.TierTable, error) {
	tables := make([]pricing.TierTable, 0, len(s.Tables))
	for i, cfg := range s.Tables {
		table, err := cfg.table()
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (c TableConfig) scope() (pricing.TierScope, error) {
	var scope pricing.TierScope

	subjectID, err := uuid.Parse(strings.TrimSpace(c.Subject))
	if err != nil {
		return scope, fmt.Errorf("subject: %w", err)
	}
	source, err := pricing.ParsePriceSource(strings.ToUpper(strings.TrimSpace(c.Source)))
	if err != nil {
		return scope, err
	}
	scope = pricing.TierScope{SubjectID: subjectID, Source: source}

	if raw := strings.TrimSpace(c.Scope); raw != "" {
		if scope.ScopeID, err = uuid.Parse(raw); err != nil {
			return scope, fmt.Errorf("scope: %w", err)
		}
	}
	if raw := strings.TrimSpace(c.Specification); raw != "" {
		if scope.SpecificationID, err = uuid.Parse(raw); err != nil {
			return scope, fmt.Errorf("specification: %w", err)
		}
	}
	return scope, nil
}

func (c TableConfig) table() (pricing.TierTable, error) {
	scope, err := c.scope()
	if err != nil {
		return pricing.TierTable{}, err
	}

	tiers := make([]pricing.QuantityTier, 0, len(c.Tiers))
	for j, cfg := range c.Tiers {
		tier, err := cfg.tier()
		if err != nil {
			return pricing.TierTable{}, fmt.Errorf("tier %d: %w", j, err)
		}
		tiers = append(tiers, tier)
	}
	return pricing.TierTable{Scope: scope, Tiers: tiers}, nil
}

func (c TierConfig) tier() (pricing.QuantityTier, error) {
	tier := pricing.QuantityTier{
		MinQuantity:  c.Min,
		MaxQuantity:  c.Max,
		Weight:       c.Weight,
		Price:        money(c.Price),
		BasePages:    c.BasePages,
		BasePrice:    money(c.BasePrice),
		PricePerPage: pricing.Money(c.PricePerPage),
	}

	for key, amount := range c.Prices {
		set, ok := sidedPriceKeys[key]
		if !ok {
			return pricing.QuantityTier{}, fmt.Errorf("unknown price key %q", key)
		}
		price := pricing.Money(amount)
		set(&tier, &price)
	}

	for _, rc := range c.Ranges {
		band, err := rc.band()
		if err != nil {
			return pricing.QuantityTier{}, err
		}
		tier.Ranges = append(tier.Ranges, band)
	}
	return tier, nil
}

func (c RangeConfig) band() (pricing.RangeBand, error) {
	band := pricing.RangeBand{Label: c.Label, Price: pricing.Money(c.Price)}

	lower := strings.TrimSpace(c.Lower)
	if lower == "" {
		lower = "0"
	}
	parsed, err := decimal.NewFromString(lower)
	if err != nil {
		return band, fmt.Errorf("range %q lower bound: %w", c.Label, err)
	}
	band.Lower = parsed

	if upper := strings.TrimSpace(c.Upper); upper != "" {
		parsed, err := decimal.NewFromString(upper)
		if err != nil {
			return band, fmt.Errorf("range %q upper bound: %w", c.Label, err)
		}
		band.Upper = &parsed
	}
	return band, nil
}

func money(amount *int64) *pricing.Money {
	if amount == nil {
		return nil
	}
	m := pricing.Money(*amount)
	return &m
}
