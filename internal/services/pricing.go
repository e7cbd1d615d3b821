package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wooyoungkug/photocafe-sub007/internal/logging"
	"github.com/wooyoungkug/photocafe-sub007/internal/observability"
	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

const (
	defaultBatchConcurrency = 8
	MaxBatchLines           = 200
)

type priceCalculator interface {
	Calculate(ctx context.Context, req pricing.Request) (pricing.Result, error)
}

// PricingService prices line items for quotes and orders.
type PricingService struct {
	calculator       priceCalculator
	batchConcurrency int
	logger           *slog.Logger
}

func NewPricingService(calculator priceCalculator, batchConcurrency int, logger *slog.Logger) *PricingService {
	if batchConcurrency <= 0 {
		batchConcurrency = defaultBatchConcurrency
	}
	return &PricingService{
		calculator:       calculator,
		batchConcurrency: batchConcurrency,
		logger:           logger,
	}
}

func (s *PricingService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *PricingService) Calculate(ctx context.Context, req pricing.Request) (pricing.Result, error) {
	span := sentry.StartSpan(
		ctx,
		"service.pricing.calculate",
		sentry.WithOpName("service.pricing"),
		sentry.WithDescription("Calculate"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()
	span.SetData("pricing.subject_id", req.SubjectID.String())
	span.SetData("pricing.quantity", req.Quantity)

	meter := observability.MeterFromContext(ctx)
	meter.Count("pricing.calculation.received", 1)

	result, err := s.calculator.Calculate(ctx, req)
	if err != nil {
		reason := failureReason(err)
		span.Status = sentry.SpanStatusInvalidArgument
		if reason == "internal" {
			span.Status = sentry.SpanStatusInternalError
		}
		meter.Count("pricing.calculation.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))

		logger := s.loggerFromContext(ctx).With(
			"subject_id", req.SubjectID,
			"client_id", req.ClientID,
			"quantity", req.Quantity,
			"reason", reason,
		)
		switch reason {
		case "internal":
			logger.Error("price calculation failed", "error", err)
		case "unresolved":
			logger.Warn("no price configured for line item", "error", err)
		default:
			logger.Info("price calculation rejected", "error", err)
		}
		return pricing.Result{}, err
	}

	span.Status = sentry.SpanStatusOK
	span.SetData("pricing.source", string(result.AppliedPolicy.Source))
	meter.Count("pricing.calculation.succeeded", 1, sentry.WithAttributes(
		attribute.String("pricing.source", string(result.AppliedPolicy.Source)),
	))
	return result, nil
}

// BatchResult holds per-line results in request order.
type BatchResult struct {
	Lines      []pricing.Result `json:"lines"`
	GrandTotal pricing.Money    `json:"grand_total"`
}

// CalculateBatch prices lines concurrently. The first failing line cancels
// the rest and its error, prefixed with the line index, is returned.
func (s *PricingService) CalculateBatch(ctx context.Context, reqs []pricing.Request) (BatchResult, error) {
	if len(reqs) == 0 {
		return BatchResult{}, fmt.Errorf("%w: at least one line item is required", pricing.ErrInvalidArgument)
	}
	if len(reqs) > MaxBatchLines {
		return BatchResult{}, fmt.Errorf("%w: at most %d line items per batch, got %d", pricing.ErrInvalidArgument, MaxBatchLines, len(reqs))
	}

	lines := make([]pricing.Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			result, err := s.Calculate(gctx, req)
			if err != nil {
				return fmt.Errorf("line %d: %w", i, err)
			}
			lines[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	var total pricing.Money
	for _, line := range lines {
		total += line.TotalPrice
	}
	return BatchResult{Lines: lines, GrandTotal: total}, nil
}

func failureReason(err error) string {
	switch {
	case pricing.IsInvalidArgument(err):
		return "invalid_argument"
	case pricing.IsNotFound(err):
		return "not_found"
	case pricing.IsUnresolved(err):
		return "unresolved"
	default:
		return "internal"
	}
}
