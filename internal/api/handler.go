package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/clearword/misread/internal/models"
)

// Runner runs one analysis; satisfied by pipeline.Pipeline and by test fakes
type Runner interface {
	Run(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// Pinger checks reachability of an external collaborator
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests
type Handler struct {
	pipeline   Runner
	reasoner   Pinger
	translator Pinger
	mux        *http.ServeMux
}

// NewHandler creates the API handler with CORS support and metrics.
// reasoner and translator pingers back /api/test and may be nil.
func NewHandler(pipeline Runner, reasoner, translator Pinger) http.Handler {
	h := &Handler{
		pipeline:   pipeline,
		reasoner:   reasoner,
		translator: translator,
		mux:        http.NewServeMux(),
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler())
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/test", h.handleTest)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleAnalyze runs the analysis pipeline synchronously for one request
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Text == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}

	result, err := h.pipeline.Run(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidInput):
			respondError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, models.ErrExternalAuth):
			// Misconfigured credentials are a server fault, not the caller's
			respondError(w, "Analysis service is not configured correctly", http.StatusInternalServerError)
		default:
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, result, http.StatusOK)
}

// handleTest reports per-service connectivity, mirroring what an operator
// needs after deploying fresh credentials
func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	services := map[string]bool{
		"reasoner":   h.ping(ctx, h.reasoner),
		"translator": h.ping(ctx, h.translator),
	}

	status := "success"
	for _, ok := range services {
		if !ok {
			status = "partial"
			break
		}
	}

	respondJSON(w, map[string]interface{}{
		"status":   status,
		"services": services,
	}, http.StatusOK)
}

func (h *Handler) ping(ctx context.Context, p Pinger) bool {
	if p == nil {
		return false
	}
	return p.Ping(ctx) == nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
