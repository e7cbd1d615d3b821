package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

// Validator checks a sheet's structure. Checks that need the subject's
// pricing type run when the sheet is imported.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(sheet *PriceSheet) error {
	if strings.TrimSpace(sheet.Sheet.Name) == "" {
		return fmt.Errorf("sheet name is required")
	}
	if currency := strings.ToLower(strings.TrimSpace(sheet.Sheet.Currency)); currency != "" && currency != "krw" {
		return fmt.Errorf("only KRW price sheets are supported")
	}
	if len(sheet.Tables) == 0 {
		return fmt.Errorf("at least one table is required")
	}

	seen := make(map[pricing.TierScope]int, len(sheet.Tables))
	for i, table := range sheet.Tables {
		scope, err := v.validateTable(table)
		if err != nil {
			return fmt.Errorf("table %d validation failed: %w", i, err)
		}
		if first, dup := seen[scope]; dup {
			return fmt.Errorf("table %d repeats the scope of table %d", i, first)
		}
		seen[scope] = i
	}
	return nil
}

func (v *Validator) validateTable(table TableConfig) (pricing.TierScope, error) {
	scope, err := table.scope()
	if err != nil {
		return scope, err
	}
	if !scope.Source.HasTable() {
		return scope, fmt.Errorf("%s has no tier table", scope.Source)
	}
	if scope.Source.Scoped() && scope.ScopeID == uuid.Nil {
		return scope, fmt.Errorf("%s table requires a scope id", scope.Source)
	}
	if !scope.Source.Scoped() && strings.TrimSpace(table.Scope) != "" {
		return scope, fmt.Errorf("%s table must not set a scope id", scope.Source)
	}

	for j, tier := range table.Tiers {
		if err := v.validateTier(tier); err != nil {
			return scope, fmt.Errorf("tier %d validation failed: %w", j, err)
		}
	}
	return scope, nil
}

func (v *Validator) validateTier(tier TierConfig) error {
	if tier.Min < 1 {
		return fmt.Errorf("min must be at least 1")
	}
	if tier.Max != nil && *tier.Max < tier.Min {
		return fmt.Errorf("max must not be below min")
	}
	if tier.Price != nil && *tier.Price < 0 {
		return fmt.Errorf("price must be zero or positive")
	}
	for key, amount := range tier.Prices {
		if _, ok := sidedPriceKeys[key]; !ok {
			return fmt.Errorf("unknown price key %q", key)
		}
		if amount < 0 {
			return fmt.Errorf("%s price must be zero or positive", key)
		}
	}

	labels := make(map[string]bool, len(tier.Ranges))
	for _, rc := range tier.Ranges {
		if strings.TrimSpace(rc.Label) == "" {
			return fmt.Errorf("range label is required")
		}
		if labels[rc.Label] {
			return fmt.Errorf("duplicate range label: %s", rc.Label)
		}
		labels[rc.Label] = true
		if _, err := rc.band(); err != nil {
			return err
		}
	}
	return nil
}
