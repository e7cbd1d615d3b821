package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/wooyoungkug/photocafe-sub007/internal/catalog"
	"github.com/wooyoungkug/photocafe-sub007/internal/logging"
	"github.com/wooyoungkug/photocafe-sub007/internal/observability"
	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

type subjectReader interface {
	PricingSubject(ctx context.Context, id uuid.UUID) (pricing.Subject, error)
	Specification(ctx context.Context, id uuid.UUID) (pricing.Specification, error)
}

type scopeReader interface {
	GroupByID(ctx context.Context, groupID uuid.UUID) (*pricing.ClientGroup, error)
	ClientExists(ctx context.Context, clientID uuid.UUID) error
}

type tierWriter interface {
	ReplaceTables(ctx context.Context, tables []pricing.TierTable) error
}

type rateTableInvalidator interface {
	Invalidate(ctx context.Context, scopes ...pricing.TierScope) error
}

type sheetParser interface {
	Parse(content []byte) (*catalog.PriceSheet, error)
}

type sheetValidator interface {
	Validate(sheet *catalog.PriceSheet) error
}

// RateTableService replaces tier tables. Every replace is all-or-nothing:
// readers see either the old table or the new one.
type RateTableService struct {
	subjects    subjectReader
	scopes      scopeReader
	tiers       tierWriter
	invalidator rateTableInvalidator
	parser      sheetParser
	validator   sheetValidator
	logger      *slog.Logger
}

func NewRateTableService(
	subjects subjectReader,
	scopes scopeReader,
	tiers tierWriter,
	invalidator rateTableInvalidator,
	parser sheetParser,
	validator sheetValidator,
	logger *slog.Logger,
) *RateTableService {
	return &RateTableService{
		subjects:    subjects,
		scopes:      scopes,
		tiers:       tiers,
		invalidator: invalidator,
		parser:      parser,
		validator:   validator,
		logger:      logger,
	}
}

func (s *RateTableService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *RateTableService) SetStandardTierTable(ctx context.Context, subjectID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error {
	return s.replace(ctx, "SetStandardTierTable", []pricing.TierTable{{
		Scope: pricing.TierScope{SubjectID: subjectID, SpecificationID: specificationID, Source: pricing.SourceStandard},
		Tiers: tiers,
	}})
}

func (s *RateTableService) SetGroupTierTable(ctx context.Context, subjectID, groupID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error {
	return s.replace(ctx, "SetGroupTierTable", []pricing.TierTable{{
		Scope: pricing.TierScope{SubjectID: subjectID, SpecificationID: specificationID, Source: pricing.SourceGroup, ScopeID: groupID},
		Tiers: tiers,
	}})
}

func (s *RateTableService) SetClientTierTable(ctx context.Context, subjectID, clientID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error {
	return s.replace(ctx, "SetClientTierTable", []pricing.TierTable{{
		Scope: pricing.TierScope{SubjectID: subjectID, SpecificationID: specificationID, Source: pricing.SourceClient, ScopeID: clientID},
		Tiers: tiers,
	}})
}

type ImportSummary struct {
	Sheet  string `json:"sheet"`
	Tables int    `json:"tables"`
	Tiers  int    `json:"tiers"`
}

// ReadSheet parses and validates a price sheet without touching storage.
func (s *RateTableService) ReadSheet(content []byte) (*catalog.PriceSheet, []pricing.TierTable, error) {
	sheet, err := s.parser.Parse(content)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", pricing.ErrInvalidArgument, err)
	}
	if err := s.validator.Validate(sheet); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", pricing.ErrInvalidArgument, err)
	}
	tables, err := sheet.TierTables()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", pricing.ErrInvalidArgument, err)
	}
	return sheet, tables, nil
}

// ImportSheet applies every table of a price sheet in one transaction.
func (s *RateTableService) ImportSheet(ctx context.Context, content []byte) (ImportSummary, error) {
	sheet, tables, err := s.ReadSheet(content)
	if err != nil {
		return ImportSummary{}, err
	}
	if err := s.replace(ctx, "ImportSheet", tables); err != nil {
		return ImportSummary{}, err
	}

	summary := ImportSummary{Sheet: sheet.Sheet.Name, Tables: len(tables)}
	for _, table := range tables {
		summary.Tiers += len(table.Tiers)
	}
	s.loggerFromContext(ctx).Info("price sheet imported", "sheet", summary.Sheet, "tables", summary.Tables, "tiers", summary.Tiers)
	return summary, nil
}

func (s *RateTableService) replace(ctx context.Context, operation string, tables []pricing.TierTable) error {
	span := sentry.StartSpan(
		ctx,
		"service.rate_tables.replace",
		sentry.WithOpName("service.rate_tables"),
		sentry.WithDescription(operation),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("operation", operation))
	recordFailed := func(reason string) {
		meter.Count("pricing.rate_table.replace_failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	scopes := make([]pricing.TierScope, 0, len(tables))
	for _, table := range tables {
		if err := s.checkTable(ctx, table); err != nil {
			recordFailed(failureReason(err))
			return fmt.Errorf("%s %s: %w", operation, table.Scope, err)
		}
		scopes = append(scopes, table.Scope)
	}

	if err := s.tiers.ReplaceTables(ctx, tables); err != nil {
		recordFailed("storage")
		logger.Error("failed to replace tier tables", "operation", operation, "tables", len(tables), "error", err)
		return fmt.Errorf("%s: %w", operation, err)
	}

	// The new tables are committed. A failed invalidation leaves the old
	// table cached until its TTL expires, so it is logged, not returned.
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, scopes...); err != nil {
			logger.Warn("failed to invalidate cached tier tables", "operation", operation, "error", err)
		}
	}

	meter.Count("pricing.rate_table.replaced", 1, sentry.WithAttributes(
		attribute.Int("tables", len(tables)),
	))
	logger.Info("tier tables replaced", "operation", operation, "tables", len(tables))
	return nil
}

// checkTable verifies the scope exists and the tiers fit the subject's
// pricing type.
func (s *RateTableService) checkTable(ctx context.Context, table pricing.TierTable) error {
	scope := table.Scope
	if !scope.Source.HasTable() {
		return fmt.Errorf("%w: %s has no tier table", pricing.ErrInvalidArgument, scope.Source)
	}

	subject, err := s.subjects.PricingSubject(ctx, scope.SubjectID)
	if err != nil {
		return err
	}
	if scope.SpecificationID != uuid.Nil {
		if _, err := s.subjects.Specification(ctx, scope.SpecificationID); err != nil {
			return err
		}
	}

	switch scope.Source {
	case pricing.SourceStandard:
		if scope.ScopeID != uuid.Nil {
			return fmt.Errorf("%w: STANDARD tables have no scope id", pricing.ErrInvalidArgument)
		}
	case pricing.SourceGroup:
		if scope.ScopeID == uuid.Nil {
			return fmt.Errorf("%w: group id is required", pricing.ErrInvalidArgument)
		}
		if _, err := s.scopes.GroupByID(ctx, scope.ScopeID); err != nil {
			return err
		}
	case pricing.SourceClient:
		if scope.ScopeID == uuid.Nil {
			return fmt.Errorf("%w: client id is required", pricing.ErrInvalidArgument)
		}
		if err := s.scopes.ClientExists(ctx, scope.ScopeID); err != nil {
			return err
		}
	}

	return pricing.ValidateTiers(subject.PricingType, table.Tiers)
}
