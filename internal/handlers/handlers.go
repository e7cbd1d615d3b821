package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wooyoungkug/photocafe-sub007/internal/catalog"
	"github.com/wooyoungkug/photocafe-sub007/internal/config"
	"github.com/wooyoungkug/photocafe-sub007/internal/logging"
	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
	"github.com/wooyoungkug/photocafe-sub007/internal/services"
)

const (
	maxJSONBodyBytes  = 1 << 20 // 1 MB
	maxSheetBodyBytes = 4 << 20 // 4 MB
)

type pinger interface {
	Ping(ctx context.Context) error
}

type priceQuoter interface {
	Calculate(ctx context.Context, req pricing.Request) (pricing.Result, error)
	CalculateBatch(ctx context.Context, reqs []pricing.Request) (services.BatchResult, error)
}

type rateTableAdmin interface {
	SetStandardTierTable(ctx context.Context, subjectID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error
	SetGroupTierTable(ctx context.Context, subjectID, groupID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error
	SetClientTierTable(ctx context.Context, subjectID, clientID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error
	ImportSheet(ctx context.Context, content []byte) (services.ImportSummary, error)
	ReadSheet(content []byte) (*catalog.PriceSheet, []pricing.TierTable, error)
}

// Handlers serves the pricing JSON API.
type Handlers struct {
	config     *config.Config
	db         pinger
	quoter     priceQuoter
	rateTables rateTableAdmin
	validate   *validator.Validate
	logger     *slog.Logger
}

type Dependencies struct {
	Config           *config.Config
	DB               pinger
	PricingService   priceQuoter
	RateTableService rateTableAdmin
	Logger           *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.PricingService == nil {
		return nil, fmt.Errorf("handlers dependencies: pricingService is required")
	}
	if deps.RateTableService == nil {
		return nil, fmt.Errorf("handlers dependencies: rateTableService is required")
	}

	return &Handlers{
		config:     deps.Config,
		db:         deps.DB,
		quoter:     deps.PricingService,
		rateTables: deps.RateTableService,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}

	writeJSON(w, logger, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

type errorResponse struct {
	Error            string                `json:"error"`
	AttemptedSources []pricing.PriceSource `json:"attempted_sources,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps pricing errors onto status codes. Anything unclassified is
// a 500 and its message is not echoed to the client.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := h.loggerFromContext(r.Context())

	resp := errorResponse{Error: err.Error()}
	var calcErr *pricing.CalculationError
	if errors.As(err, &calcErr) {
		resp.AttemptedSources = calcErr.Attempted
	}

	status := http.StatusInternalServerError
	switch {
	case pricing.IsInvalidArgument(err):
		status = http.StatusBadRequest
	case pricing.IsNotFound(err):
		status = http.StatusNotFound
	case pricing.IsUnresolved(err):
		status = http.StatusUnprocessableEntity
	default:
		logger.Error("request failed", "error", err)
		resp = errorResponse{Error: "internal error"}
	}

	writeJSON(w, logger, status, resp)
}

func (h *Handlers) writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, h.loggerFromContext(r.Context()), http.StatusBadRequest, errorResponse{Error: message})
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.writeBadRequest(w, r, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeBadRequest(w, r, err.Error())
		return false
	}
	return true
}

func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.loggerFromContext(r.Context()), http.StatusNotFound, errorResponse{Error: "route not found"})
}
