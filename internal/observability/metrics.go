// Package observability carries a pre-attributed sentry meter through
// contexts so that the pricing and cache layers can count events tagged with
// the HTTP request that caused them.
package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
)

type meterKey struct{}

// WithMeter stores the request meter in ctx, bound to ctx. The HTTP layer
// stores one per request carrying http.request_id, http.method,
// network.client.ip and, when known, http.route and pricing.client_id. The
// calculation, rate-table replace and rate-table cache counters inherit those
// attributes. A nil meter is replaced by an unattributed one.
func WithMeter(ctx context.Context, meter sentry.Meter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter == nil {
		meter = sentry.NewMeter(ctx)
	}
	return context.WithValue(ctx, meterKey{}, meter.WithCtx(ctx))
}

// MeterFromContext returns the request meter rebound to ctx, or a fresh
// unattributed meter when the context has none, as in pricectl quotes.
func MeterFromContext(ctx context.Context) sentry.Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter, ok := ctx.Value(meterKey{}).(sentry.Meter); ok && meter != nil {
		return meter.WithCtx(ctx)
	}
	return sentry.NewMeter(ctx).WithCtx(ctx)
}
