package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Query is what the resolver needs to know about a line item.
type Query struct {
	SpecificationID uuid.UUID
	ClientID        uuid.UUID
	Quantity        int
	Attributes      LineAttributes
}

// Resolution is the base unit price chosen for a line item and where it came
// from.
type Resolution struct {
	Source              PriceSource
	UnitPrice           Money
	TierID              int64
	Variant             Variant
	RangeLabel          string
	Pages               *PageBreakdown
	SpecificationScoped bool
	FlatDefault         bool
	Group               *ClientGroup
	Attempted           []PriceSource
}

// Resolver walks the price sources in precedence order: CLIENT, GROUP,
// GROUP_DISCOUNT, STANDARD.
type Resolver struct {
	tables  RateTables
	clients ClientDirectory
}

func NewResolver(tables RateTables, clients ClientDirectory) *Resolver {
	return &Resolver{tables: tables, clients: clients}
}

// scopedTiers holds one source's candidates: the specification table first,
// then the subject-wide table.
type scopedTiers struct {
	specific []QuantityTier
	general  []QuantityTier
}

func (r *Resolver) Resolve(ctx context.Context, subject Subject, q Query) (Resolution, error) {
	if q.Quantity <= 0 {
		return Resolution{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, q.Quantity)
	}
	variant, err := VariantFor(subject.PricingType, q.Attributes)
	if err != nil {
		return Resolution{}, err
	}

	var (
		clientTiers   scopedTiers
		groupTiers    scopedTiers
		standardTiers scopedTiers
		group         *ClientGroup

		clientErr   error
		groupErr    error
		standardErr error
	)

	// Every lookup is a read of immutable data, so all sources are fetched
	// at once and precedence is applied afterwards. A lookup error is kept
	// with its source and only returned if the walk falls through to it.
	var g errgroup.Group
	if q.ClientID != uuid.Nil {
		g.Go(func() error {
			clientTiers, clientErr = r.lookup(ctx, subject.ID, q.SpecificationID, SourceClient, q.ClientID)
			return nil
		})
		g.Go(func() error {
			found, err := r.clients.ClientGroup(ctx, q.ClientID)
			if err != nil {
				groupErr = fmt.Errorf("client %s group: %w", q.ClientID, err)
				return nil
			}
			if found == nil {
				return nil
			}
			group = found
			groupTiers, groupErr = r.lookup(ctx, subject.ID, q.SpecificationID, SourceGroup, found.ID)
			return nil
		})
	}
	g.Go(func() error {
		standardTiers, standardErr = r.lookup(ctx, subject.ID, q.SpecificationID, SourceStandard, uuid.Nil)
		return nil
	})
	_ = g.Wait()

	var attempted []PriceSource

	if q.ClientID != uuid.Nil {
		attempted = append(attempted, SourceClient)
		if clientErr != nil {
			return Resolution{Attempted: attempted}, clientErr
		}
		if res, ok := resolveIn(clientTiers, variant, q); ok {
			res.Source = SourceClient
			res.Attempted = attempted
			return res, nil
		}

		// The group decides between GROUP and GROUP_DISCOUNT, so nothing
		// below CLIENT can be priced without it.
		if groupErr != nil {
			if group != nil {
				attempted = append(attempted, SourceGroup)
			}
			return Resolution{Attempted: attempted}, groupErr
		}
	}

	if group != nil {
		attempted = append(attempted, SourceGroup)
		if res, ok := resolveIn(groupTiers, variant, q); ok {
			res.Source = SourceGroup
			res.Group = group
			res.Attempted = attempted
			return res, nil
		}
	}

	source := SourceStandard
	if group.hasGeneralDiscount() {
		source = SourceGroupDiscount
	}
	attempted = append(attempted, source)
	if standardErr != nil {
		return Resolution{Attempted: attempted}, standardErr
	}

	res, ok := resolveIn(standardTiers, variant, q)
	if !ok {
		price, hasDefault := subject.flatFallback()
		if !hasDefault {
			return Resolution{Attempted: attempted}, fmt.Errorf("%w: no %s tier matches quantity %d and no flat price is defined", ErrUnresolvedPricing, SourceStandard, q.Quantity)
		}
		res = Resolution{UnitPrice: price, Variant: variant, FlatDefault: true}
	}
	res.Source = source
	res.Group = group
	res.Attempted = attempted
	return res, nil
}

func (r *Resolver) lookup(ctx context.Context, subjectID, specificationID uuid.UUID, source PriceSource, scopeID uuid.UUID) (scopedTiers, error) {
	var tiers scopedTiers

	scope := TierScope{SubjectID: subjectID, Source: source, ScopeID: scopeID}
	general, err := r.tables.LookupTiers(ctx, scope)
	if err != nil {
		return tiers, fmt.Errorf("lookup %s tiers: %w", source, err)
	}
	tiers.general = general

	if specificationID != uuid.Nil {
		scope.SpecificationID = specificationID
		specific, err := r.tables.LookupTiers(ctx, scope)
		if err != nil {
			return tiers, fmt.Errorf("lookup %s specification tiers: %w", source, err)
		}
		tiers.specific = specific
	}

	return tiers, nil
}

func resolveIn(tiers scopedTiers, variant Variant, q Query) (Resolution, bool) {
	if res, ok := resolveTier(tiers.specific, variant, q); ok {
		res.SpecificationScoped = true
		return res, true
	}
	return resolveTier(tiers.general, variant, q)
}

func resolveTier(tiers []QuantityTier, variant Variant, q Query) (Resolution, bool) {
	tier, ok := SelectTier(tiers, q.Quantity)
	if !ok {
		return Resolution{}, false
	}
	price, ok := priceFor(tier, variant, q.Attributes)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{
		UnitPrice:  price.unit,
		TierID:     tier.ID,
		Variant:    variant,
		RangeLabel: price.rangeLabel,
		Pages:      price.pages,
	}, true
}
