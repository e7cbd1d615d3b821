package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
	"github.com/wooyoungkug/photocafe-sub007/internal/services"
)

type optionPayload struct {
	Kind string `json:"kind" validate:"required,oneof=specification binding paper cover foil finishing"`
	ID   string `json:"id" validate:"required,uuid"`
}

type linePayload struct {
	SubjectID       string           `json:"subject_id" validate:"required,uuid"`
	SpecificationID string           `json:"specification_id" validate:"omitempty,uuid"`
	ClientID        string           `json:"client_id" validate:"omitempty,uuid"`
	Quantity        int              `json:"quantity" validate:"required,min=1,max=2147483647"`
	Options         []optionPayload  `json:"options" validate:"omitempty,dive"`
	ColorMode       string           `json:"color_mode" validate:"omitempty,oneof=four six"`
	Side            string           `json:"side" validate:"omitempty,oneof=single double"`
	PageCount       int              `json:"page_count" validate:"min=0,max=10000"`
	Measure         *decimal.Decimal `json:"measure"`
}

type batchPayload struct {
	Lines []linePayload `json:"lines" validate:"required,min=1,dive"`
}

// request converts a validated payload. Blank optional ids become uuid.Nil.
func (p linePayload) request() (pricing.Request, error) {
	subjectID, err := uuid.Parse(p.SubjectID)
	if err != nil {
		return pricing.Request{}, fmt.Errorf("%w: subject_id: %v", pricing.ErrInvalidArgument, err)
	}
	specificationID, err := optionalUUID(p.SpecificationID)
	if err != nil {
		return pricing.Request{}, fmt.Errorf("%w: specification_id: %v", pricing.ErrInvalidArgument, err)
	}
	clientID, err := optionalUUID(p.ClientID)
	if err != nil {
		return pricing.Request{}, fmt.Errorf("%w: client_id: %v", pricing.ErrInvalidArgument, err)
	}

	options := make([]pricing.OptionSelection, 0, len(p.Options))
	for _, option := range p.Options {
		id, err := uuid.Parse(option.ID)
		if err != nil {
			return pricing.Request{}, fmt.Errorf("%w: option %s: %v", pricing.ErrInvalidArgument, option.Kind, err)
		}
		options = append(options, pricing.OptionSelection{Kind: pricing.OptionKind(option.Kind), ID: id})
	}

	return pricing.Request{
		SubjectID:       subjectID,
		SpecificationID: specificationID,
		ClientID:        clientID,
		Quantity:        p.Quantity,
		Options:         options,
		Attributes: pricing.LineAttributes{
			ColorMode: pricing.ColorMode(p.ColorMode),
			Side:      pricing.Side(p.Side),
			PageCount: p.PageCount,
			Measure:   p.Measure,
		},
	}, nil
}

func optionalUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(value)
}

// CalculatePrice prices a single line item.
func (h *Handlers) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	var payload linePayload
	if !h.decodeJSON(w, r, &payload) {
		return
	}

	req, err := payload.request()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.quoter.Calculate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, h.loggerFromContext(r.Context()), http.StatusOK, result)
}

// CalculateBatch prices a whole quote. Any failing line fails the request.
func (h *Handlers) CalculateBatch(w http.ResponseWriter, r *http.Request) {
	var payload batchPayload
	if !h.decodeJSON(w, r, &payload) {
		return
	}
	if len(payload.Lines) > services.MaxBatchLines {
		h.writeBadRequest(w, r, fmt.Sprintf("at most %d lines per batch", services.MaxBatchLines))
		return
	}

	reqs := make([]pricing.Request, 0, len(payload.Lines))
	for i, line := range payload.Lines {
		req, err := line.request()
		if err != nil {
			h.writeError(w, r, fmt.Errorf("line %d: %w", i, err))
			return
		}
		reqs = append(reqs, req)
	}

	result, err := h.quoter.CalculateBatch(r.Context(), reqs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, h.loggerFromContext(r.Context()), http.StatusOK, result)
}
