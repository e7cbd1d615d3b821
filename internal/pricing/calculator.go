package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest line quantity accepted. Tier bounds are stored as
// 32-bit integers, so nothing above it could be priced by a bounded tier anyway.
const MaxQuantity = math.MaxInt32

// Request is one line item to price.
type Request struct {
	SubjectID       uuid.UUID
	SpecificationID uuid.UUID
	ClientID        uuid.UUID
	Quantity        int
	Options         []OptionSelection
	Attributes      LineAttributes
}

// AppliedPolicy explains which source and tier produced the base price.
type AppliedPolicy struct {
	Source              PriceSource   `json:"source"`
	TierID              int64         `json:"tier_id,omitempty"`
	Variant             Variant       `json:"variant"`
	RangeLabel          string        `json:"range_label,omitempty"`
	SpecificationScoped bool          `json:"specification_scoped"`
	FlatDefault         bool          `json:"flat_default"`
	GroupID             *uuid.UUID    `json:"group_id,omitempty"`
	GeneralDiscount     int           `json:"general_discount,omitempty"`
	AttemptedSources    []PriceSource `json:"attempted_sources"`
}

// Result is the itemized price of one line item.
type Result struct {
	SubjectID      uuid.UUID      `json:"subject_id"`
	BasePrice      Money          `json:"base_price"`
	OptionPrice    Money          `json:"option_price"`
	UnitPrice      Money          `json:"unit_price"`
	Quantity       int            `json:"quantity"`
	DiscountRate   int            `json:"discount_rate"`
	DiscountAmount Money          `json:"discount_amount"`
	FinalUnitPrice Money          `json:"final_unit_price"`
	TotalPrice     Money          `json:"total_price"`
	Options        []OptionCharge `json:"options,omitempty"`
	Pages          *PageBreakdown `json:"pages,omitempty"`
	AppliedPolicy  AppliedPolicy  `json:"applied_policy"`
}

// Calculator prices line items. It holds no mutable state and is safe for
// concurrent use.
type Calculator struct {
	subjects SubjectCatalog
	options  OptionCatalog
	resolver *Resolver
}

func NewCalculator(subjects SubjectCatalog, clients ClientDirectory, tables RateTables, options OptionCatalog) *Calculator {
	return &Calculator{
		subjects: subjects,
		options:  options,
		resolver: NewResolver(tables, clients),
	}
}

func (c *Calculator) Calculate(ctx context.Context, req Request) (Result, error) {
	fail := func(attempted []PriceSource, err error) (Result, error) {
		return Result{}, &CalculationError{
			SubjectID: req.SubjectID,
			Quantity:  req.Quantity,
			Attempted: attempted,
			Err:       err,
		}
	}

	if req.Quantity <= 0 {
		return fail(nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, req.Quantity))
	}
	if req.Quantity > MaxQuantity {
		return fail(nil, fmt.Errorf("%w: quantity %d exceeds %d", ErrInvalidArgument, req.Quantity, MaxQuantity))
	}

	subject, err := c.subjects.PricingSubject(ctx, req.SubjectID)
	if err != nil {
		return fail(nil, fmt.Errorf("pricing subject: %w", err))
	}
	if req.SpecificationID != uuid.Nil {
		if _, err := c.subjects.Specification(ctx, req.SpecificationID); err != nil {
			return fail(nil, fmt.Errorf("specification %s: %w", req.SpecificationID, err))
		}
	}

	resolution, err := c.resolver.Resolve(ctx, subject, Query{
		SpecificationID: req.SpecificationID,
		ClientID:        req.ClientID,
		Quantity:        req.Quantity,
		Attributes:      req.Attributes,
	})
	if err != nil {
		return fail(resolution.Attempted, err)
	}

	optionPrice, charges, err := SumOptions(ctx, c.options, req.Options)
	if err != nil {
		return fail(resolution.Attempted, err)
	}

	result, err := assemble(req, resolution, optionPrice, charges)
	if err != nil {
		return fail(resolution.Attempted, err)
	}
	return result, nil
}

// assemble applies the group discount and rounding. Rounding happens once,
// on the final unit price.
func assemble(req Request, res Resolution, optionPrice Money, charges []OptionCharge) (Result, error) {
	unit := res.UnitPrice + optionPrice

	discountRate := 0
	final := unit
	if res.Source == SourceGroupDiscount && res.Group != nil {
		discountRate = 100 - res.Group.GeneralDiscount
		discount := unit.Decimal().Mul(decimal.NewFromInt(int64(discountRate))).Div(decimal.NewFromInt(100))
		final = roundMoney(unit.Decimal().Sub(discount))
	}

	total, ok := final.CheckedTimes(req.Quantity)
	if !ok {
		return Result{}, fmt.Errorf("%w: total of %s x %d overflows", ErrInvalidArgument, final, req.Quantity)
	}

	policy := AppliedPolicy{
		Source:              res.Source,
		TierID:              res.TierID,
		Variant:             res.Variant,
		RangeLabel:          res.RangeLabel,
		SpecificationScoped: res.SpecificationScoped,
		FlatDefault:         res.FlatDefault,
		AttemptedSources:    res.Attempted,
	}
	if res.Group != nil {
		groupID := res.Group.ID
		policy.GroupID = &groupID
		if res.Source == SourceGroupDiscount {
			policy.GeneralDiscount = res.Group.GeneralDiscount
		}
	}

	return Result{
		SubjectID:      req.SubjectID,
		BasePrice:      res.UnitPrice,
		OptionPrice:    optionPrice,
		UnitPrice:      unit,
		Quantity:       req.Quantity,
		DiscountRate:   discountRate,
		DiscountAmount: unit - final,
		FinalUnitPrice: final,
		TotalPrice:     total,
		Options:        charges,
		Pages:          res.Pages,
		AppliedPolicy:  policy,
	}, nil
}

// IsNotFound, IsInvalidArgument and IsUnresolved classify calculation errors
// for callers that map them onto transport status codes.
func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
func IsUnresolved(err error) bool      { return errors.Is(err, ErrUnresolvedPricing) }
