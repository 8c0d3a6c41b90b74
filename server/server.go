package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sgd-gov/despacho-service/audit"
	"github.com/sgd-gov/despacho-service/repository"
)

// WebServer handles HTTP requests
type WebServer struct {
	httpAddr  string
	server    *http.Server
	logger    *zap.Logger
	store     repository.Store
	audit     *audit.Log
	startTime time.Time
}

// NewWebServer creates a new web server
func NewWebServer(store repository.Store, auditLog *audit.Log, httpAddr string, logger *zap.Logger) *WebServer {
	ws := &WebServer{
		httpAddr:  httpAddr,
		logger:    logger,
		store:     store,
		audit:     auditLog,
		startTime: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/v1/health", ws.handleHealth)

	r.Route("/v1/dispatches", func(r chi.Router) {
		r.Post("/", ws.handleCreateDispatch)
		r.Get("/", ws.handleListDispatches)
		r.Get("/{dispatchID}", ws.handleGetDispatch)
		r.Post("/{dispatchID}/emit", ws.handleEmitDispatch)
		r.Post("/{dispatchID}/complete", ws.handleCompleteDispatch)
		r.Post("/{dispatchID}/cancel", ws.handleCancelDispatch)
		r.Get("/{dispatchID}/approvals", ws.handleListApprovals)
		r.Post("/{dispatchID}/approvals", ws.handleAddApprover)
		r.Get("/{dispatchID}/signatures", ws.handleListSignatures)
		r.Post("/{dispatchID}/signatures", ws.handleSignDispatch)
		r.Get("/{dispatchID}/audit", ws.handleDispatchAudit)
	})

	r.Route("/v1/approvals", func(r chi.Router) {
		r.Get("/pending", ws.handlePendingApprovals)
		r.Get("/pending/count", ws.handlePendingCount)
		r.Post("/bulk-decision", ws.handleBulkDecide)
		r.Delete("/{approvalID}", ws.handleRemoveApprover)
		r.Post("/{approvalID}/decision", ws.handleRecordDecision)
	})

	r.Route("/v1/reports", func(r chi.Router) {
		r.Get("/summary", ws.handleSummary)
		r.Get("/retention-due", ws.handleRetentionDue)
	})

	r.Get("/v1/audit/recent", ws.handleRecentAudit)

	ws.server = &http.Server{
		Addr:              httpAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return ws
}

// Handler exposes the router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.logger.Info("starting web server", zap.String("addr", ws.httpAddr))
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.logger.Error("web server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the web server
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info("shutting down web server")
	return ws.server.Shutdown(ctx)
}

// JSONError sends a JSON formatted error response with the given status code and message
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: message})
}

// writeRepoError maps a repository error code onto an HTTP status and
// renders the typed error body.
func writeRepoError(w http.ResponseWriter, repoErr *repository.RepositoryError) {
	status := http.StatusInternalServerError
	switch repoErr.Code {
	case repository.ErrCodeNotFound:
		status = http.StatusNotFound
	case repository.ErrCodeInvalidState, repository.ErrCodeConflict:
		status = http.StatusConflict
	case repository.ErrCodeValidation:
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error *repository.RepositoryError `json:"error"`
	}{Error: repoErr})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(payload)
}
