package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

// SubjectStore reads pricing subjects and specifications.
type SubjectStore struct {
	pool *pgxpool.Pool
}

func NewSubjectStore(pool *pgxpool.Pool) *SubjectStore {
	return &SubjectStore{pool: pool}
}

func (s *SubjectStore) PricingSubject(ctx context.Context, id uuid.UUID) (pricing.Subject, error) {
	var (
		subject     pricing.Subject
		kind        string
		pricingType string
		basePrice   pgtype.Int8
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, kind, name, pricing_type, base_price
		FROM pricing_subjects
		WHERE id = $1`, id).Scan(&subject.ID, &kind, &subject.Name, &pricingType, &basePrice)
	if err != nil {
		return pricing.Subject{}, fmt.Errorf("subject %s: %w", id, notFound(err))
	}

	subject.Kind = pricing.SubjectKind(kind)
	subject.PricingType, err = pricing.ParsePricingType(pricingType)
	if err != nil {
		return pricing.Subject{}, fmt.Errorf("subject %s: %w", id, err)
	}
	subject.BasePrice = moneyValue(basePrice)
	return subject, nil
}

func (s *SubjectStore) Specification(ctx context.Context, id uuid.UUID) (pricing.Specification, error) {
	var spec pricing.Specification
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, width_mm, height_mm
		FROM specifications
		WHERE id = $1`, id).Scan(&spec.ID, &spec.Name, &spec.WidthMM, &spec.HeightMM)
	if err != nil {
		return pricing.Specification{}, fmt.Errorf("specification %s: %w", id, notFound(err))
	}
	return spec, nil
}

// ClientStore reads clients and client groups.
type ClientStore struct {
	pool *pgxpool.Pool
}

func NewClientStore(pool *pgxpool.Pool) *ClientStore {
	return &ClientStore{pool: pool}
}

// ClientGroup returns the group of clientID, or nil when the client belongs to
// no group.
func (s *ClientStore) ClientGroup(ctx context.Context, clientID uuid.UUID) (*pricing.ClientGroup, error) {
	var (
		groupID         pgtype.UUID
		groupName       pgtype.Text
		generalDiscount pgtype.Int4
	)
	err := s.pool.QueryRow(ctx, `
		SELECT g.id, g.name, g.general_discount
		FROM clients c
		LEFT JOIN client_groups g ON g.id = c.group_id
		WHERE c.id = $1`, clientID).Scan(&groupID, &groupName, &generalDiscount)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", clientID, notFound(err))
	}
	if !groupID.Valid {
		return nil, nil
	}

	return &pricing.ClientGroup{
		ID:              uuidValue(groupID),
		Name:            groupName.String,
		GeneralDiscount: int(generalDiscount.Int32),
	}, nil
}

func (s *ClientStore) GroupByID(ctx context.Context, groupID uuid.UUID) (*pricing.ClientGroup, error) {
	group := &pricing.ClientGroup{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, general_discount
		FROM client_groups
		WHERE id = $1`, groupID).Scan(&group.ID, &group.Name, &group.GeneralDiscount)
	if err != nil {
		return nil, fmt.Errorf("client group %s: %w", groupID, notFound(err))
	}
	return group, nil
}

func (s *ClientStore) ClientExists(ctx context.Context, clientID uuid.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("client %s: %w", clientID, err)
	}
	if !exists {
		return fmt.Errorf("client %s: %w", clientID, pricing.ErrNotFound)
	}
	return nil
}

// OptionStore reads the price deltas of selectable options.
type OptionStore struct {
	pool *pgxpool.Pool
}

func NewOptionStore(pool *pgxpool.Pool) *OptionStore {
	return &OptionStore{pool: pool}
}

func (s *OptionStore) OptionDelta(ctx context.Context, option pricing.OptionSelection) (*pricing.Money, error) {
	var delta pgtype.Int8
	err := s.pool.QueryRow(ctx, `
		SELECT price_delta
		FROM pricing_options
		WHERE id = $1 AND kind = $2`, option.ID, string(option.Kind)).Scan(&delta)
	if err != nil {
		return nil, fmt.Errorf("option %s: %w", option.ID, notFound(err))
	}
	return moneyValue(delta), nil
}
