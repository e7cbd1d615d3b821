package db

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

// notFound maps pgx's empty-result error onto the pricing sentinel so callers
// never depend on the driver.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.ErrNotFound
	}
	return err
}

// nullableUUID treats uuid.Nil as SQL NULL.
func nullableUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

func uuidValue(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}

func nullableMoney(m *pricing.Money) pgtype.Int8 {
	if m == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: int64(*m), Valid: true}
}

func moneyValue(v pgtype.Int8) *pricing.Money {
	if !v.Valid {
		return nil
	}
	m := pricing.Money(v.Int64)
	return &m
}

// nullableInt refuses values outside int32 instead of truncating them.
func nullableInt(v *int) (pgtype.Int4, error) {
	if v == nil {
		return pgtype.Int4{}, nil
	}
	if *v < math.MinInt32 || *v > math.MaxInt32 {
		return pgtype.Int4{}, fmt.Errorf("%w: %d does not fit a 32-bit integer column", pricing.ErrInvalidArgument, *v)
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}, nil
}

func intValue(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}
