package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierScope addresses one tier table. ScopeID is the client id for CLIENT,
// the group id for GROUP, and uuid.Nil for STANDARD. A nil SpecificationID
// addresses the subject-wide table.
type TierScope struct {
	SubjectID       uuid.UUID   `json:"subject_id"`
	SpecificationID uuid.UUID   `json:"specification_id"`
	Source          PriceSource `json:"source"`
	ScopeID         uuid.UUID   `json:"scope_id"`
}

func (s TierScope) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", s.SubjectID, s.Source, s.ScopeID, s.SpecificationID)
}

// TierTable is the complete tier list of one scope.
type TierTable struct {
	Scope TierScope      `json:"scope"`
	Tiers []QuantityTier `json:"tiers"`
}

// RateTables returns the tiers of one scope. A scope with no rows returns an
// empty slice and no error.
type RateTables interface {
	LookupTiers(ctx context.Context, scope TierScope) ([]QuantityTier, error)
}

// QuantityTier is one quantity band of a tier table. Which price fields are
// meaningful depends on the subject's PricingType.
type QuantityTier struct {
	ID          int64     `json:"id,omitempty"`
	MinQuantity int       `json:"min_quantity"`
	MaxQuantity *int      `json:"max_quantity,omitempty"`
	Weight      int       `json:"weight"`
	CreatedAt   time.Time `json:"created_at,omitempty"`

	Price                *Money `json:"price,omitempty"`
	SingleSidedPrice     *Money `json:"single_sided_price,omitempty"`
	DoubleSidedPrice     *Money `json:"double_sided_price,omitempty"`
	FourColorSinglePrice *Money `json:"four_color_single_price,omitempty"`
	FourColorDoublePrice *Money `json:"four_color_double_price,omitempty"`
	SixColorSinglePrice  *Money `json:"six_color_single_price,omitempty"`
	SixColorDoublePrice  *Money `json:"six_color_double_price,omitempty"`

	BasePages    int    `json:"base_pages,omitempty"`
	BasePrice    *Money `json:"base_price,omitempty"`
	PricePerPage Money  `json:"price_per_page,omitempty"`

	Ranges []RangeBand `json:"ranges,omitempty"`
}

func (t QuantityTier) covers(quantity int) bool {
	if quantity < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || quantity <= *t.MaxQuantity
}

// narrower reports whether t spans fewer quantities than o. An unbounded tier
// is wider than any bounded one.
func (t QuantityTier) narrower(o QuantityTier) bool {
	switch {
	case t.MaxQuantity == nil:
		return false
	case o.MaxQuantity == nil:
		return true
	default:
		return *t.MaxQuantity-t.MinQuantity < *o.MaxQuantity-o.MinQuantity
	}
}

func (t QuantityTier) sameSpan(o QuantityTier) bool {
	return !t.narrower(o) && !o.narrower(t)
}

// preferredOver orders overlapping tiers: higher weight, then narrower span,
// then the most recently created.
func (t QuantityTier) preferredOver(o QuantityTier) bool {
	if t.Weight != o.Weight {
		return t.Weight > o.Weight
	}
	if !t.sameSpan(o) {
		return t.narrower(o)
	}
	if !t.CreatedAt.Equal(o.CreatedAt) {
		return t.CreatedAt.After(o.CreatedAt)
	}
	return t.ID > o.ID
}

// SelectTier picks the tier that applies to quantity. The result does not
// depend on the order of tiers.
func SelectTier(tiers []QuantityTier, quantity int) (QuantityTier, bool) {
	var (
		best  QuantityTier
		found bool
	)
	for _, tier := range tiers {
		if !tier.covers(quantity) {
			continue
		}
		if !found || tier.preferredOver(best) {
			best = tier
			found = true
		}
	}
	return best, found
}

// RangeBand prices a bucket of some numeric line attribute, such as a weight
// class. Bounds are inclusive; a nil Upper is unbounded.
type RangeBand struct {
	Label string           `json:"label"`
	Lower decimal.Decimal  `json:"lower"`
	Upper *decimal.Decimal `json:"upper,omitempty"`
	Price Money            `json:"price"`
}

func (b RangeBand) covers(value decimal.Decimal) bool {
	if value.LessThan(b.Lower) {
		return false
	}
	return b.Upper == nil || value.LessThanOrEqual(*b.Upper)
}

func (b RangeBand) narrower(o RangeBand) bool {
	switch {
	case b.Upper == nil:
		return false
	case o.Upper == nil:
		return true
	default:
		return b.Upper.Sub(b.Lower).LessThan(o.Upper.Sub(o.Lower))
	}
}

// selectRange buckets value into bands. Overlaps go to the narrower band,
// then to the band listed last.
func selectRange(bands []RangeBand, value decimal.Decimal) (RangeBand, bool) {
	var (
		best  RangeBand
		found bool
	)
	for _, band := range bands {
		if !band.covers(value) {
			continue
		}
		if !found || !best.narrower(band) {
			best = band
			found = true
		}
	}
	return best, found
}

// ValidateTiers checks a tier table before it replaces a scope.
func ValidateTiers(pricingType PricingType, tiers []QuantityTier) error {
	for i, tier := range tiers {
		if err := validateTier(pricingType, tier); err != nil {
			return fmt.Errorf("%w: tier %d: %s", ErrInvalidArgument, i, err.Error())
		}
	}
	return nil
}

func validateTier(pricingType PricingType, tier QuantityTier) error {
	if tier.MinQuantity < 1 {
		return fmt.Errorf("min quantity must be at least 1")
	}
	if tier.MaxQuantity != nil && *tier.MaxQuantity < tier.MinQuantity {
		return fmt.Errorf("max quantity %d is below min quantity %d", *tier.MaxQuantity, tier.MinQuantity)
	}
	// Quantities and page counts are stored as 32-bit integers.
	if tier.MinQuantity > math.MaxInt32 {
		return fmt.Errorf("min quantity %d exceeds %d", tier.MinQuantity, math.MaxInt32)
	}
	if tier.MaxQuantity != nil && *tier.MaxQuantity > math.MaxInt32 {
		return fmt.Errorf("max quantity %d exceeds %d", *tier.MaxQuantity, math.MaxInt32)
	}
	if tier.BasePages > math.MaxInt32 {
		return fmt.Errorf("base pages %d exceeds %d", tier.BasePages, math.MaxInt32)
	}

	switch pricingType {
	case PricingFlat:
		if tier.Price == nil {
			return fmt.Errorf("flat tier requires price")
		}
	case PricingSided:
		if len(tier.sidedPrices()) == 0 {
			return fmt.Errorf("sided tier requires at least one side or color price")
		}
	case PricingPerPage:
		if tier.BasePrice == nil {
			return fmt.Errorf("per-page tier requires base price")
		}
		if tier.BasePages < 0 || tier.PricePerPage < 0 {
			return fmt.Errorf("base pages and price per page must not be negative")
		}
	case PricingRange:
		if len(tier.Ranges) == 0 {
			return fmt.Errorf("range tier requires at least one range")
		}
		for j, band := range tier.Ranges {
			if band.Label == "" {
				return fmt.Errorf("range %d requires a label", j)
			}
			if band.Upper != nil && band.Upper.LessThan(band.Lower) {
				return fmt.Errorf("range %q upper bound is below lower bound", band.Label)
			}
		}
	default:
		return fmt.Errorf("unknown pricing type %q", pricingType)
	}
	return nil
}
