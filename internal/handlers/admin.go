package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
)

type tierTablePayload struct {
	SpecificationID string                 `json:"specification_id" validate:"omitempty,uuid"`
	Tiers           []pricing.QuantityTier `json:"tiers" validate:"-"`
}

type sheetPreview struct {
	Sheet  string              `json:"sheet"`
	DryRun bool                `json:"dry_run"`
	Tables []pricing.TierTable `json:"tables"`
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %v", pricing.ErrInvalidArgument, name, err)
	}
	return id, nil
}

// readTierTable decodes the body and path of a tier table PUT. It writes the
// error response itself and reports whether the handler should continue.
func (h *Handlers) readTierTable(w http.ResponseWriter, r *http.Request, scopeVar string) (subjectID, scopeID, specificationID uuid.UUID, tiers []pricing.QuantityTier, ok bool) {
	subjectID, err := pathUUID(r, "subjectID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if scopeVar != "" {
		if scopeID, err = pathUUID(r, scopeVar); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	var payload tierTablePayload
	if !h.decodeJSON(w, r, &payload) {
		return
	}
	if specificationID, err = optionalUUID(payload.SpecificationID); err != nil {
		h.writeBadRequest(w, r, "specification_id: "+err.Error())
		return
	}
	if payload.Tiers == nil {
		payload.Tiers = []pricing.QuantityTier{}
	}
	return subjectID, scopeID, specificationID, payload.Tiers, true
}

// PutStandardTiers replaces the catalog tier table of a subject.
func (h *Handlers) PutStandardTiers(w http.ResponseWriter, r *http.Request) {
	subjectID, _, specificationID, tiers, ok := h.readTierTable(w, r, "")
	if !ok {
		return
	}
	if err := h.rateTables.SetStandardTierTable(r.Context(), subjectID, specificationID, tiers); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutGroupTiers replaces the tier table a client group pays for a subject.
func (h *Handlers) PutGroupTiers(w http.ResponseWriter, r *http.Request) {
	subjectID, groupID, specificationID, tiers, ok := h.readTierTable(w, r, "groupID")
	if !ok {
		return
	}
	if err := h.rateTables.SetGroupTierTable(r.Context(), subjectID, groupID, specificationID, tiers); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutClientTiers replaces the tier table negotiated with a single client.
func (h *Handlers) PutClientTiers(w http.ResponseWriter, r *http.Request) {
	subjectID, clientID, specificationID, tiers, ok := h.readTierTable(w, r, "clientID")
	if !ok {
		return
	}
	if err := h.rateTables.SetClientTierTable(r.Context(), subjectID, clientID, specificationID, tiers); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportPriceSheet applies a YAML price sheet. With ?dry_run=true the sheet
// is parsed and validated and the resulting tables are echoed back unsaved.
func (h *Handlers) ImportPriceSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSheetBodyBytes))
	if err != nil {
		h.writeBadRequest(w, r, "failed to read price sheet: "+err.Error())
		return
	}

	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		if dryRun, err = strconv.ParseBool(raw); err != nil {
			h.writeBadRequest(w, r, "dry_run must be a boolean")
			return
		}
	}

	if dryRun {
		sheet, tables, err := h.rateTables.ReadSheet(content)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, sheetPreview{Sheet: sheet.Sheet.Name, DryRun: true, Tables: tables})
		return
	}

	summary, err := h.rateTables.ImportSheet(ctx, content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, logger, http.StatusOK, summary)
}
