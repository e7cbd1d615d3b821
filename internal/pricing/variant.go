package pricing

import "fmt"

// MaxPageCount bounds the page count of a per-page line so the page extension
// stays far from int64 overflow.
const MaxPageCount = 10000

// Variant names the tier price field a line item is priced from.
type Variant string

const (
	VariantFlat            Variant = "flat"
	VariantSingleSided     Variant = "single_sided"
	VariantDoubleSided     Variant = "double_sided"
	VariantFourColorSingle Variant = "four_color_single"
	VariantFourColorDouble Variant = "four_color_double"
	VariantSixColorSingle  Variant = "six_color_single"
	VariantSixColorDouble  Variant = "six_color_double"
	VariantPages           Variant = "pages"
	VariantRange           Variant = "range"
)

type variantKey struct {
	color ColorMode
	side  Side
}

var sidedVariants = map[variantKey]Variant{
	{ColorStandard, SideSingle}: VariantSingleSided,
	{ColorStandard, SideDouble}: VariantDoubleSided,
	{ColorFour, SideSingle}:     VariantFourColorSingle,
	{ColorFour, SideDouble}:     VariantFourColorDouble,
	{ColorSix, SideSingle}:      VariantSixColorSingle,
	{ColorSix, SideDouble}:      VariantSixColorDouble,
}

var scalarFields = map[Variant]func(*QuantityTier) *Money{
	VariantFlat:            func(t *QuantityTier) *Money { return t.Price },
	VariantSingleSided:     func(t *QuantityTier) *Money { return t.SingleSidedPrice },
	VariantDoubleSided:     func(t *QuantityTier) *Money { return t.DoubleSidedPrice },
	VariantFourColorSingle: func(t *QuantityTier) *Money { return t.FourColorSinglePrice },
	VariantFourColorDouble: func(t *QuantityTier) *Money { return t.FourColorDoublePrice },
	VariantSixColorSingle:  func(t *QuantityTier) *Money { return t.SixColorSinglePrice },
	VariantSixColorDouble:  func(t *QuantityTier) *Money { return t.SixColorDoublePrice },
}

func (t QuantityTier) sidedPrices() map[Variant]Money {
	prices := make(map[Variant]Money)
	for _, variant := range sidedVariants {
		if price := scalarFields[variant](&t); price != nil {
			prices[variant] = *price
		}
	}
	return prices
}

// VariantFor validates the line attributes against the pricing type and
// returns the price field they select.
func VariantFor(pricingType PricingType, attrs LineAttributes) (Variant, error) {
	if pricingType != PricingSided && (attrs.ColorMode != ColorStandard || attrs.Side != SideUnset) {
		return "", fmt.Errorf("%w: %s pricing does not take color mode or side", ErrInvalidArgument, pricingType)
	}

	switch pricingType {
	case PricingFlat:
		return VariantFlat, nil
	case PricingSided:
		if attrs.Side == SideUnset {
			return "", fmt.Errorf("%w: sided pricing requires a side", ErrInvalidArgument)
		}
		variant, ok := sidedVariants[variantKey{attrs.ColorMode, attrs.Side}]
		if !ok {
			return "", fmt.Errorf("%w: no price variant for color mode %q side %q", ErrInvalidArgument, attrs.ColorMode, attrs.Side)
		}
		return variant, nil
	case PricingPerPage:
		if attrs.PageCount <= 0 {
			return "", fmt.Errorf("%w: per-page pricing requires a positive page count", ErrInvalidArgument)
		}
		if attrs.PageCount > MaxPageCount {
			return "", fmt.Errorf("%w: page count %d exceeds %d", ErrInvalidArgument, attrs.PageCount, MaxPageCount)
		}
		return VariantPages, nil
	case PricingRange:
		if attrs.Measure == nil {
			return "", fmt.Errorf("%w: range pricing requires a measure", ErrInvalidArgument)
		}
		return VariantRange, nil
	default:
		return "", fmt.Errorf("%w: unknown pricing type %q", ErrInvalidArgument, pricingType)
	}
}

type tierPrice struct {
	unit       Money
	rangeLabel string
	pages      *PageBreakdown
}

// priceFor reads the unit price of variant from tier. ok is false when the
// tier does not configure that price or the measure falls in no range.
func priceFor(tier QuantityTier, variant Variant, attrs LineAttributes) (tierPrice, bool) {
	switch variant {
	case VariantPages:
		if tier.BasePrice == nil {
			return tierPrice{}, false
		}
		pages := PageExtension(tier, attrs.PageCount)
		return tierPrice{unit: pages.Unit, pages: &pages}, true
	case VariantRange:
		band, ok := selectRange(tier.Ranges, *attrs.Measure)
		if !ok {
			return tierPrice{}, false
		}
		return tierPrice{unit: band.Price, rangeLabel: band.Label}, true
	default:
		field, ok := scalarFields[variant]
		if !ok {
			return tierPrice{}, false
		}
		price := field(&tier)
		if price == nil {
			return tierPrice{}, false
		}
		return tierPrice{unit: *price}, true
	}
}
