package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/wooyoungkug/photocafe-sub007/internal/logging"
	"github.com/wooyoungkug/photocafe-sub007/internal/observability"
	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

// RateTableCache serves tier tables from a Provider and falls back to the
// wrapped source on a miss. Empty tables are cached too, since most lookups
// for CLIENT and GROUP scopes find nothing.
//
// Entries are keyed by a per-scope generation that Invalidate replaces. A
// reader that missed before a replace committed writes the old table under the
// old generation, where nobody looks for it again.
//
// A cache failure never fails a lookup; it is logged and the source is read.
type RateTableCache struct {
	next     pricing.RateTables
	provider Provider
	ttl      time.Duration
	logger   *slog.Logger
}

func NewRateTableCache(next pricing.RateTables, provider Provider, ttl time.Duration, logger *slog.Logger) *RateTableCache {
	return &RateTableCache{
		next:     next,
		provider: provider,
		ttl:      ttl,
		logger:   logger,
	}
}

// initialGeneration is the generation of a scope that was never invalidated.
const initialGeneration = "0"

func RateTableKey(scope pricing.TierScope, generation string) string {
	return "tiers:" + scope.String() + "@" + generation
}

func generationKey(scope pricing.TierScope) string {
	return "tiers-gen:" + scope.String()
}

func (c *RateTableCache) generation(ctx context.Context, scope pricing.TierScope) (string, error) {
	gen, err := c.provider.Get(ctx, generationKey(scope))
	if errors.Is(err, ErrNotFound) {
		return initialGeneration, nil
	}
	return gen, err
}

func (c *RateTableCache) LookupTiers(ctx context.Context, scope pricing.TierScope) ([]pricing.QuantityTier, error) {
	logger := logging.FromContext(ctx, c.logger)
	meter := observability.MeterFromContext(ctx)
	sourceAttr := sentry.WithAttributes(attribute.String("pricing.source", string(scope.Source)))

	gen, err := c.generation(ctx, scope)
	if err != nil {
		logger.Warn("rate table generation read failed", "scope", scope.String(), "error", err)
		meter.Count("pricing.rate_table_cache.miss", 1, sourceAttr)
		return c.next.LookupTiers(ctx, scope)
	}
	key := RateTableKey(scope, gen)

	raw, err := c.provider.Get(ctx, key)
	switch {
	case err == nil:
		var tiers []pricing.QuantityTier
		decodeErr := json.Unmarshal([]byte(raw), &tiers)
		if decodeErr == nil {
			meter.Count("pricing.rate_table_cache.hit", 1, sourceAttr)
			return tiers, nil
		}
		logger.Warn("discarding undecodable cached rate table", "key", key, "error", decodeErr)
	case !errors.Is(err, ErrNotFound):
		logger.Warn("rate table cache read failed", "key", key, "error", err)
	}
	meter.Count("pricing.rate_table_cache.miss", 1, sourceAttr)

	tiers, err := c.next.LookupTiers(ctx, scope)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(tiers)
	if err != nil {
		logger.Warn("failed to encode rate table for cache", "key", key, "error", err)
		return tiers, nil
	}
	if err := c.provider.Set(ctx, key, string(encoded), c.ttl); err != nil {
		logger.Warn("rate table cache write failed", "key", key, "error", err)
	}

	return tiers, nil
}

// Invalidate moves scopes to a fresh generation and drops the table cached
// under the previous one. Call it after the replacing transaction commits;
// until then readers may still see the old table.
func (c *RateTableCache) Invalidate(ctx context.Context, scopes ...pricing.TierScope) error {
	var errs error
	for _, scope := range scopes {
		if err := c.invalidate(ctx, scope); err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalidate %s: %w", scope, err))
		}
	}
	return errs
}

func (c *RateTableCache) invalidate(ctx context.Context, scope pricing.TierScope) error {
	previous, err := c.generation(ctx, scope)
	if err != nil {
		return err
	}
	// The generation outlives any entry written under the one it replaces.
	if err := c.provider.Set(ctx, generationKey(scope), uuid.NewString(), 2*c.ttl); err != nil {
		return err
	}
	return c.provider.Delete(ctx, RateTableKey(scope, previous))
}
