package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wooyoungkug/photocafe-sub007/internal/config"
	"github.com/wooyoungkug/photocafe-sub007/internal/handlers"
)

// Server owns the HTTP listener of the pricing API.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/prices/calculate", h.CalculatePrice).Methods("POST").Name("prices.calculate")
	api.HandleFunc("/prices/batch", h.CalculateBatch).Methods("POST").Name("prices.batch")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.RequireAdminToken)
	admin.HandleFunc("/subjects/{subjectID}/tiers/standard", h.PutStandardTiers).Methods("PUT").Name("admin.tiers.standard")
	admin.HandleFunc("/subjects/{subjectID}/tiers/groups/{groupID}", h.PutGroupTiers).Methods("PUT").Name("admin.tiers.group")
	admin.HandleFunc("/subjects/{subjectID}/tiers/clients/{clientID}", h.PutClientTiers).Methods("PUT").Name("admin.tiers.client")
	admin.HandleFunc("/price-sheets", h.ImportPriceSheet).Methods("POST").Name("admin.price_sheets.import")

	return r
}
