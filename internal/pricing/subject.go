package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubjectKind string

const (
	SubjectProduct           SubjectKind = "product"
	SubjectProductionSetting SubjectKind = "production_setting"
)

// PricingType decides which tier fields carry the price of a subject.
type PricingType string

const (
	PricingFlat    PricingType = "flat"
	PricingPerPage PricingType = "per_page"
	PricingSided   PricingType = "sided"
	PricingRange   PricingType = "range"
)

func ParsePricingType(value string) (PricingType, error) {
	switch pt := PricingType(value); pt {
	case PricingFlat, PricingPerPage, PricingSided, PricingRange:
		return pt, nil
	default:
		return "", fmt.Errorf("%w: unknown pricing type %q", ErrInvalidArgument, value)
	}
}

// Subject is a catalog product or a semi-finished production setting.
type Subject struct {
	ID          uuid.UUID   `json:"id"`
	Kind        SubjectKind `json:"kind"`
	Name        string      `json:"name"`
	PricingType PricingType `json:"pricing_type"`
	// BasePrice is the flat default used when the STANDARD table has no
	// matching tier. Nil means no default is configured.
	BasePrice *Money `json:"base_price,omitempty"`
}

// flatFallback reports whether the subject's BasePrice may stand in for a
// missing STANDARD tier. Page and range pricing depend on line attributes a
// single flat amount cannot express.
func (s Subject) flatFallback() (Money, bool) {
	if s.BasePrice == nil {
		return 0, false
	}
	switch s.PricingType {
	case PricingFlat, PricingSided:
		return *s.BasePrice, true
	default:
		return 0, false
	}
}

// Specification is a physical size or format that can scope a tier table.
type Specification struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	WidthMM  int       `json:"width_mm"`
	HeightMM int       `json:"height_mm"`
}

// ClientGroup is the group a client belongs to. GeneralDiscount is the
// percentage of the STANDARD price the group pays: 85 means 15% off, 100 or 0
// means no general discount.
type ClientGroup struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	GeneralDiscount int       `json:"general_discount"`
}

func (g *ClientGroup) hasGeneralDiscount() bool {
	return g != nil && g.GeneralDiscount > 0 && g.GeneralDiscount < 100
}

type OptionKind string

const (
	OptionSpecification OptionKind = "specification"
	OptionBinding       OptionKind = "binding"
	OptionPaper         OptionKind = "paper"
	OptionCover         OptionKind = "cover"
	OptionFoil          OptionKind = "foil"
	OptionFinishing     OptionKind = "finishing"
)

func (k OptionKind) valid() bool {
	switch k {
	case OptionSpecification, OptionBinding, OptionPaper, OptionCover, OptionFoil, OptionFinishing:
		return true
	default:
		return false
	}
}

// OptionSelection references one selectable attribute chosen for a line item.
type OptionSelection struct {
	Kind OptionKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

type ColorMode string

const (
	ColorStandard ColorMode = ""
	ColorFour     ColorMode = "four"
	ColorSix      ColorMode = "six"
)

type Side string

const (
	SideUnset  Side = ""
	SideSingle Side = "single"
	SideDouble Side = "double"
)

// LineAttributes are the print attributes of a line item that select which
// tier price applies.
type LineAttributes struct {
	ColorMode ColorMode `json:"color_mode,omitempty"`
	Side      Side      `json:"side,omitempty"`
	PageCount int       `json:"page_count,omitempty"`
	// Measure is bucketed into range-priced tiers, e.g. a weight class.
	Measure *decimal.Decimal `json:"measure,omitempty"`
}

// SubjectCatalog looks up reference data. Missing records return ErrNotFound.
type SubjectCatalog interface {
	PricingSubject(ctx context.Context, id uuid.UUID) (Subject, error)
	Specification(ctx context.Context, id uuid.UUID) (Specification, error)
}

// ClientDirectory resolves a client's group. A client without a group yields
// (nil, nil); an unknown client yields ErrNotFound.
type ClientDirectory interface {
	ClientGroup(ctx context.Context, clientID uuid.UUID) (*ClientGroup, error)
}

// OptionCatalog returns the price delta of an option. A nil delta means the
// option exists but carries no surcharge; an unknown option yields ErrNotFound.
type OptionCatalog interface {
	OptionDelta(ctx context.Context, option OptionSelection) (*Money, error)
}
