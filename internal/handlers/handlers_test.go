package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wooyoungkug/photocafe-sub007/internal/catalog"
	"github.com/wooyoungkug/photocafe-sub007/internal/config"
	"github.com/wooyoungkug/photocafe-sub007/internal/pricing"
	"github.com/wooyoungkug/photocafe-sub007/internal/services"
)

const testAdminToken = "0123456789abcdef0123"

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubQuoter struct {
	result   pricing.Result
	err      error
	requests []pricing.Request
}

func (q *stubQuoter) Calculate(_ context.Context, req pricing.Request) (pricing.Result, error) {
	q.requests = append(q.requests, req)
	return q.result, q.err
}

func (q *stubQuoter) CalculateBatch(_ context.Context, reqs []pricing.Request) (services.BatchResult, error) {
	q.requests = append(q.requests, reqs...)
	if q.err != nil {
		return services.BatchResult{}, q.err
	}
	lines := make([]pricing.Result, len(reqs))
	for i := range lines {
		lines[i] = q.result
	}
	return services.BatchResult{Lines: lines, GrandTotal: q.result.TotalPrice * pricing.Money(len(reqs))}, nil
}

type tierCall struct {
	source          pricing.PriceSource
	subjectID       uuid.UUID
	scopeID         uuid.UUID
	specificationID uuid.UUID
	tiers           []pricing.QuantityTier
}

type stubRateTables struct {
	calls     []tierCall
	err       error
	imported  []byte
	readCalls int
}

func (s *stubRateTables) SetStandardTierTable(_ context.Context, subjectID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error {
	s.calls = append(s.calls, tierCall{pricing.SourceStandard, subjectID, uuid.Nil, specificationID, tiers})
	return s.err
}

func (s *stubRateTables) SetGroupTierTable(_ context.Context, subjectID, groupID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error {
	s.calls = append(s.calls, tierCall{pricing.SourceGroup, subjectID, groupID, specificationID, tiers})
	return s.err
}

func (s *stubRateTables) SetClientTierTable(_ context.Context, subjectID, clientID, specificationID uuid.UUID, tiers []pricing.QuantityTier) error {
	s.calls = append(s.calls, tierCall{pricing.SourceClient, subjectID, clientID, specificationID, tiers})
	return s.err
}

func (s *stubRateTables) ImportSheet(_ context.Context, content []byte) (services.ImportSummary, error) {
	s.imported = content
	if s.err != nil {
		return services.ImportSummary{}, s.err
	}
	return services.ImportSummary{Sheet: "cards", Tables: 2, Tiers: 5}, nil
}

func (s *stubRateTables) ReadSheet([]byte) (*catalog.PriceSheet, []pricing.TierTable, error) {
	s.readCalls++
	if s.err != nil {
		return nil, nil, s.err
	}
	return &catalog.PriceSheet{Sheet: catalog.SheetConfig{Name: "cards"}}, []pricing.TierTable{{}}, nil
}

func newTestHandlers(t *testing.T, quoter *stubQuoter, tables *stubRateTables) *Handlers {
	t.Helper()

	h, err := New(Dependencies{
		Config:           &config.Config{AdminAPIToken: testAdminToken},
		DB:               stubPinger{},
		PricingService:   quoter,
		RateTableService: tables,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return h
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(Dependencies{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "healthy", wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "database down", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandlers(t, &stubQuoter{}, &stubRateTables{})
			h.db = stubPinger{err: tt.pingErr}

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if body["status"] != tt.wantBody {
				t.Fatalf("unexpected body: got=%q want=%q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestCalculatePrice(t *testing.T) {
	t.Parallel()

	quoter := &stubQuoter{result: pricing.Result{FinalUnitPrice: 8500, TotalPrice: 17000, Quantity: 2}}
	h := newTestHandlers(t, quoter, &stubRateTables{})

	subjectID := uuid.New()
	optionID := uuid.New()
	body := fmt.Sprintf(`{"subject_id":%q,"quantity":2,"side":"double","measure":"1.5","options":[{"kind":"paper","id":%q}]}`, subjectID, optionID)

	rec := httptest.NewRecorder()
	h.CalculatePrice(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prices/calculate", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got pricing.Result
	decodeBody(t, rec, &got)
	if got.TotalPrice != 17000 {
		t.Fatalf("unexpected total: got=%d want=17000", got.TotalPrice)
	}

	if len(quoter.requests) != 1 {
		t.Fatalf("unexpected calculate calls: got=%d want=1", len(quoter.requests))
	}
	req := quoter.requests[0]
	if req.SubjectID != subjectID || req.ClientID != uuid.Nil || req.Attributes.Side != pricing.SideDouble {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Attributes.Measure == nil || req.Attributes.Measure.String() != "1.5" {
		t.Fatalf("unexpected measure: %v", req.Attributes.Measure)
	}
	if len(req.Options) != 1 || req.Options[0].ID != optionID {
		t.Fatalf("unexpected options: %+v", req.Options)
	}
}

func TestCalculatePrice_RejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	subjectID := uuid.NewString()
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "unknown field", body: fmt.Sprintf(`{"subject_id":%q,"quantity":1,"discount":5}`, subjectID)},
		{name: "missing subject", body: `{"quantity":1}`},
		{name: "zero quantity", body: fmt.Sprintf(`{"subject_id":%q,"quantity":0}`, subjectID)},
		{name: "quantity beyond 32 bits", body: fmt.Sprintf(`{"subject_id":%q,"quantity":4294967396}`, subjectID)},
		{name: "too many pages", body: fmt.Sprintf(`{"subject_id":%q,"quantity":1,"page_count":10001}`, subjectID)},
		{name: "bad side", body: fmt.Sprintf(`{"subject_id":%q,"quantity":1,"side":"both"}`, subjectID)},
		{name: "bad option kind", body: fmt.Sprintf(`{"subject_id":%q,"quantity":1,"options":[{"kind":"glitter","id":%q}]}`, subjectID, subjectID)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			quoter := &stubQuoter{}
			h := newTestHandlers(t, quoter, &stubRateTables{})

			rec := httptest.NewRecorder()
			h.CalculatePrice(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prices/calculate", strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
			}
			if len(quoter.requests) != 0 {
				t.Fatalf("expected calculator not to be called")
			}
		})
	}
}

func TestCalculatePrice_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantAttempted int
	}{
		{name: "not found", err: fmt.Errorf("subject: %w", pricing.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "invalid argument", err: fmt.Errorf("%w: side required", pricing.ErrInvalidArgument), wantStatus: http.StatusBadRequest},
		{
			name: "unresolved",
			err: &pricing.CalculationError{
				Attempted: []pricing.PriceSource{pricing.SourceClient, pricing.SourceStandard},
				Err:       pricing.ErrUnresolvedPricing,
			},
			wantStatus:    http.StatusUnprocessableEntity,
			wantAttempted: 2,
		},
		{name: "internal", err: errors.New("connection reset"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandlers(t, &stubQuoter{err: tt.err}, &stubRateTables{})
			body := fmt.Sprintf(`{"subject_id":%q,"quantity":1}`, uuid.New())

			rec := httptest.NewRecorder()
			h.CalculatePrice(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prices/calculate", strings.NewReader(body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tt.wantStatus)
			}
			var got errorResponse
			decodeBody(t, rec, &got)
			if len(got.AttemptedSources) != tt.wantAttempted {
				t.Fatalf("unexpected attempted sources: got=%v", got.AttemptedSources)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(got.Error, "connection reset") {
				t.Fatalf("internal error leaked to client: %q", got.Error)
			}
		})
	}
}

func TestCalculateBatch(t *testing.T) {
	t.Parallel()

	quoter := &stubQuoter{result: pricing.Result{TotalPrice: 1000}}
	h := newTestHandlers(t, quoter, &stubRateTables{})
	body := fmt.Sprintf(`{"lines":[{"subject_id":%q,"quantity":1},{"subject_id":%q,"quantity":3}]}`, uuid.New(), uuid.New())

	rec := httptest.NewRecorder()
	h.CalculateBatch(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prices/batch", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got services.BatchResult
	decodeBody(t, rec, &got)
	if len(got.Lines) != 2 || got.GrandTotal != 2000 {
		t.Fatalf("unexpected batch result: %+v", got)
	}

	rec = httptest.NewRecorder()
	h.CalculateBatch(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prices/batch", strings.NewReader(`{"lines":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for empty batch: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestPutTierTables(t *testing.T) {
	t.Parallel()

	subjectID := uuid.New()
	scopeID := uuid.New()
	specificationID := uuid.New()

	tests := []struct {
		name       string
		handler    func(h *Handlers) http.HandlerFunc
		vars       map[string]string
		wantSource pricing.PriceSource
		wantScope  uuid.UUID
	}{
		{
			name:       "standard",
			handler:    func(h *Handlers) http.HandlerFunc { return h.PutStandardTiers },
			vars:       map[string]string{"subjectID": subjectID.String()},
			wantSource: pricing.SourceStandard,
			wantScope:  uuid.Nil,
		},
		{
			name:       "group",
			handler:    func(h *Handlers) http.HandlerFunc { return h.PutGroupTiers },
			vars:       map[string]string{"subjectID": subjectID.String(), "groupID": scopeID.String()},
			wantSource: pricing.SourceGroup,
			wantScope:  scopeID,
		},
		{
			name:       "client",
			handler:    func(h *Handlers) http.HandlerFunc { return h.PutClientTiers },
			vars:       map[string]string{"subjectID": subjectID.String(), "clientID": scopeID.String()},
			wantSource: pricing.SourceClient,
			wantScope:  scopeID,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tables := &stubRateTables{}
			h := newTestHandlers(t, &stubQuoter{}, tables)
			body := fmt.Sprintf(`{"specification_id":%q,"tiers":[{"min_quantity":1,"max_quantity":99,"weight":0,"price":1200},{"min_quantity":100,"weight":0,"price":1000}]}`, specificationID)

			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
			req = mux.SetURLVars(req, tt.vars)
			rec := httptest.NewRecorder()
			tt.handler(h)(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusNoContent, rec.Body.String())
			}
			if len(tables.calls) != 1 {
				t.Fatalf("unexpected replace calls: got=%d want=1", len(tables.calls))
			}
			call := tables.calls[0]
			if call.source != tt.wantSource || call.subjectID != subjectID || call.scopeID != tt.wantScope || call.specificationID != specificationID {
				t.Fatalf("unexpected call: %+v", call)
			}
			if len(call.tiers) != 2 || *call.tiers[1].Price != 1000 || call.tiers[1].MaxQuantity != nil {
				t.Fatalf("unexpected tiers: %+v", call.tiers)
			}
		})
	}
}

func TestPutGroupTiers_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		vars       map[string]string
		serviceErr error
		wantStatus int
		wantCalls  int
	}{
		{name: "bad subject id", vars: map[string]string{"subjectID": "nope", "groupID": uuid.NewString()}, wantStatus: http.StatusBadRequest},
		{name: "bad group id", vars: map[string]string{"subjectID": uuid.NewString(), "groupID": "nope"}, wantStatus: http.StatusBadRequest},
		{name: "unknown group", vars: map[string]string{"subjectID": uuid.NewString(), "groupID": uuid.NewString()}, serviceErr: fmt.Errorf("group: %w", pricing.ErrNotFound), wantStatus: http.StatusNotFound, wantCalls: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tables := &stubRateTables{err: tt.serviceErr}
			h := newTestHandlers(t, &stubQuoter{}, tables)

			req := mux.SetURLVars(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"tiers":[]}`)), tt.vars)
			rec := httptest.NewRecorder()
			h.PutGroupTiers(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tt.wantStatus)
			}
			if len(tables.calls) != tt.wantCalls {
				t.Fatalf("unexpected replace calls: got=%d want=%d", len(tables.calls), tt.wantCalls)
			}
		})
	}
}

func TestImportPriceSheet(t *testing.T) {
	t.Parallel()

	tables := &stubRateTables{}
	h := newTestHandlers(t, &stubQuoter{}, tables)

	rec := httptest.NewRecorder()
	h.ImportPriceSheet(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/price-sheets", strings.NewReader("sheet: {}")))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if string(tables.imported) != "sheet: {}" {
		t.Fatalf("unexpected imported content: %q", tables.imported)
	}

	rec = httptest.NewRecorder()
	h.ImportPriceSheet(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/price-sheets?dry_run=true", strings.NewReader("sheet: {}")))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected dry run status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	var preview sheetPreview
	decodeBody(t, rec, &preview)
	if !preview.DryRun || preview.Sheet != "cards" || tables.readCalls != 1 {
		t.Fatalf("unexpected preview: %+v readCalls=%d", preview, tables.readCalls)
	}

	rec = httptest.NewRecorder()
	h.ImportPriceSheet(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/price-sheets?dry_run=maybe", strings.NewReader("x")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for bad dry_run: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestRequireAdminToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		configured    string
		authorization string
		wantStatus    int
	}{
		{name: "valid token", configured: testAdminToken, authorization: "Bearer " + testAdminToken, wantStatus: http.StatusNoContent},
		{name: "wrong token", configured: testAdminToken, authorization: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing header", configured: testAdminToken, wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", configured: testAdminToken, authorization: "Basic " + testAdminToken, wantStatus: http.StatusUnauthorized},
		{name: "admin disabled", authorization: "Bearer " + testAdminToken, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandlers(t, &stubQuoter{}, &stubRateTables{})
			h.config = &config.Config{AdminAPIToken: tt.configured}

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/subjects/x/tiers/standard", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()
			h.RequireAdminToken(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, &stubQuoter{}, &stubRateTables{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.RequestLogger(h.SecurityHeaders(next)).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("unexpected request id: got=%q want=%q", got, "req-123")
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("unexpected nosniff header: got=%q", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusTeapot)
	}

	rec = httptest.NewRecorder()
	h.RequestLogger(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("expected generated uuid request id, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-Ip": "198.51.100.4"}, remote: "10.0.0.2:1234", want: "198.51.100.4"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Fatalf("unexpected client ip: got=%q want=%q", got, tt.want)
			}
		})
	}
}
