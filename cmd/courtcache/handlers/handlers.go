// Package handlers provides the REST API for case lookup.
package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kimhsiao/courtcache/internal/db"
	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/fetcher"
	"github.com/kimhsiao/courtcache/internal/logging"
	"github.com/kimhsiao/courtcache/internal/lookup"
	"github.com/kimhsiao/courtcache/internal/models"
)

// CaseService is the lookup functionality the API exposes.
type CaseService interface {
	Search(ctx context.Context, req lookup.Request) (*lookup.Result, error)
	GetCase(ctx context.Context, caseNumber string) (*models.CaseDetail, error)
	History(ctx context.Context, caseNumber string) ([]*models.CaseUpdate, error)
	List(ctx context.Context, opts lookup.ListOptions) ([]models.CaseView, error)
	Statistics(ctx context.Context) (*db.Statistics, error)
	Suggestions(query string) []string
	Health(ctx context.Context) error
}

// ProbeFunc checks the external court site.
type ProbeFunc func(ctx context.Context) *fetcher.ProbeReport

var _ CaseService = (*lookup.Service)(nil)

// CaseHandler handles case search and lookup operations.
type CaseHandler struct {
	svc   CaseService
	probe ProbeFunc
	now   func() time.Time
}

// NewCaseHandler creates a new CaseHandler.
func NewCaseHandler(svc CaseService, probe ProbeFunc) *CaseHandler {
	return &CaseHandler{svc: svc, probe: probe, now: time.Now}
}

// NewRouter registers every route on a new router.
func NewRouter(h *CaseHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/search", h.Search).Methods(http.MethodPost)
	router.HandleFunc("/case/{case_number:.+}/history", h.History).Methods(http.MethodGet)
	router.HandleFunc("/case/{case_number:.+}", h.GetCase).Methods(http.MethodGet)
	router.HandleFunc("/cases", h.List).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	router.HandleFunc("/suggestions", h.Suggestions).Methods(http.MethodGet)
	router.HandleFunc("/test-scraper", h.TestScraper).Methods(http.MethodGet)
	router.Use(logRequests)
	return router
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, apiError{Error: message})
}

// writeAppError answers with the status and message carried by err.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.Error("Request failed", err, map[string]interface{}{
			"path": r.URL.Path,
		})
	}
	writeError(w, apperrors.PublicMessage(err), status)
}

// clientIP prefers the first X-Forwarded-For hop over the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Search handles POST /search
func (h *CaseHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req lookup.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	req.IPAddress = clientIP(r)
	req.UserAgent = r.UserAgent()

	result, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetCase handles GET /case/{case_number}
func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetCase(r.Context(), mux.Vars(r)["case_number"])
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			writeError(w, "Case not found", http.StatusNotFound)
			return
		}
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// History handles GET /case/{case_number}/history
func (h *CaseHandler) History(w http.ResponseWriter, r *http.Request) {
	updates, err := h.svc.History(r.Context(), mux.Vars(r)["case_number"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"updates": updates})
}

// List handles GET /cases
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, "limit must be a positive number", http.StatusBadRequest)
			return
		}
		limit = n
	}

	cases, err := h.svc.List(r.Context(), lookup.ListOptions{
		Status: q.Get("status"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Limit:  limit,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

// Health handles GET /health
func (h *CaseHandler) Health(w http.ResponseWriter, r *http.Request) {
	timestamp := h.now().UTC().Format(time.RFC3339)
	if err := h.svc.Health(r.Context()); err != nil {
		logging.Error("Health check failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     err.Error(),
			"timestamp": timestamp,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": timestamp,
	})
}

// Stats handles GET /stats
func (h *CaseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Suggestions handles GET /suggestions?q=
func (h *CaseHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"suggestions": h.svc.Suggestions(r.URL.Query().Get("q")),
	})
}

// TestScraper handles GET /test-scraper
func (h *CaseHandler) TestScraper(w http.ResponseWriter, r *http.Request) {
	if h.probe == nil {
		writeError(w, "Scraper test not configured", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scraper_test": h.probe(r.Context()),
		"message":      "Scraper test completed",
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Request served", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}
