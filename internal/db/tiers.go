package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

const tierColumns = `id, min_quantity, max_quantity, weight,
	price, single_sided_price, double_sided_price,
	four_color_single_price, four_color_double_price,
	six_color_single_price, six_color_double_price,
	base_pages, base_price, price_per_page, range_prices, created_at`

// TierStore is the Postgres rate table provider.
type TierStore struct {
	pool *pgxpool.Pool
}

func NewTierStore(pool *pgxpool.Pool) *TierStore {
	return &TierStore{pool: pool}
}

// LookupTiers returns the tiers of exactly one scope. A scope without rows
// yields an empty slice.
func (s *TierStore) LookupTiers(ctx context.Context, scope pricing.TierScope) ([]pricing.QuantityTier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tierColumns+`
		FROM quantity_tiers
		WHERE subject_id = $1
		  AND source = $2
		  AND scope_id IS NOT DISTINCT FROM $3
		  AND specification_id IS NOT DISTINCT FROM $4
		ORDER BY id`,
		scope.SubjectID,
		string(scope.Source),
		nullableUUID(scope.ScopeID),
		nullableUUID(scope.SpecificationID),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s tiers: %w", scope, err)
	}

	tiers, err := pgx.CollectRows(rows, scanTier)
	if err != nil {
		return nil, fmt.Errorf("scan %s tiers: %w", scope, err)
	}
	return tiers, nil
}

// ReplaceTiers swaps the tier table of one scope for tiers.
func (s *TierStore) ReplaceTiers(ctx context.Context, scope pricing.TierScope, tiers []pricing.QuantityTier) error {
	return s.ReplaceTables(ctx, []pricing.TierTable{{Scope: scope, Tiers: tiers}})
}

// ReplaceTables swaps the tier tables of every listed scope in a single
// transaction. Either all scopes change or none do.
func (s *TierStore) ReplaceTables(ctx context.Context, tables []pricing.TierTable) error {
	if len(tables) == 0 {
		return nil
	}

	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, table := range tables {
			if !table.Scope.Source.HasTable() {
				return fmt.Errorf("%w: %s has no tier table", pricing.ErrInvalidArgument, table.Scope.Source)
			}
			batch.Queue(`
				DELETE FROM quantity_tiers
				WHERE subject_id = $1
				  AND source = $2
				  AND scope_id IS NOT DISTINCT FROM $3
				  AND specification_id IS NOT DISTINCT FROM $4`,
				table.Scope.SubjectID,
				string(table.Scope.Source),
				nullableUUID(table.Scope.ScopeID),
				nullableUUID(table.Scope.SpecificationID),
			)
			for _, tier := range table.Tiers {
				args, err := tierArgs(table.Scope, tier)
				if err != nil {
					return err
				}
				batch.Queue(`
					INSERT INTO quantity_tiers (
						subject_id, specification_id, source, scope_id,
						min_quantity, max_quantity, weight,
						price, single_sided_price, double_sided_price,
						four_color_single_price, four_color_double_price,
						six_color_single_price, six_color_double_price,
						base_pages, base_price, price_per_page, range_prices
					) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
					args...,
				)
			}
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("replace tier tables: %w", err)
		}
		return nil
	})
}

func tierArgs(scope pricing.TierScope, tier pricing.QuantityTier) ([]any, error) {
	maxQuantity, err := nullableInt(tier.MaxQuantity)
	if err != nil {
		return nil, fmt.Errorf("max quantity: %w", err)
	}

	var ranges []byte
	if len(tier.Ranges) > 0 {
		encoded, err := json.Marshal(tier.Ranges)
		if err != nil {
			return nil, fmt.Errorf("encode ranges: %w", err)
		}
		ranges = encoded
	}

	return []any{
		scope.SubjectID,
		nullableUUID(scope.SpecificationID),
		string(scope.Source),
		nullableUUID(scope.ScopeID),
		tier.MinQuantity,
		maxQuantity,
		tier.Weight,
		nullableMoney(tier.Price),
		nullableMoney(tier.SingleSidedPrice),
		nullableMoney(tier.DoubleSidedPrice),
		nullableMoney(tier.FourColorSinglePrice),
		nullableMoney(tier.FourColorDoublePrice),
		nullableMoney(tier.SixColorSinglePrice),
		nullableMoney(tier.SixColorDoublePrice),
		tier.BasePages,
		nullableMoney(tier.BasePrice),
		int64(tier.PricePerPage),
		ranges,
	}, nil
}

func scanTier(row pgx.CollectableRow) (pricing.QuantityTier, error) {
	var (
		tier         pricing.QuantityTier
		maxQuantity  pgtype.Int4
		prices       [7]pgtype.Int8
		basePrice    pgtype.Int8
		pricePerPage int64
		ranges       []byte
	)
	err := row.Scan(
		&tier.ID,
		&tier.MinQuantity,
		&maxQuantity,
		&tier.Weight,
		&prices[0], &prices[1], &prices[2],
		&prices[3], &prices[4],
		&prices[5], &prices[6],
		&tier.BasePages,
		&basePrice,
		&pricePerPage,
		&ranges,
		&tier.CreatedAt,
	)
	if err != nil {
		return pricing.QuantityTier{}, err
	}

	tier.MaxQuantity = intValue(maxQuantity)
	tier.Price = moneyValue(prices[0])
	tier.SingleSidedPrice = moneyValue(prices[1])
	tier.DoubleSidedPrice = moneyValue(prices[2])
	tier.FourColorSinglePrice = moneyValue(prices[3])
	tier.FourColorDoublePrice = moneyValue(prices[4])
	tier.SixColorSinglePrice = moneyValue(prices[5])
	tier.SixColorDoublePrice = moneyValue(prices[6])
	tier.BasePrice = moneyValue(basePrice)
	tier.PricePerPage = pricing.Money(pricePerPage)

	if len(ranges) > 0 {
		if err := json.Unmarshal(ranges, &tier.Ranges); err != nil {
			return pricing.QuantityTier{}, fmt.Errorf("decode ranges of tier %d: %w", tier.ID, err)
		}
	}
	return tier, nil
}
