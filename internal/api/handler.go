package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"waste_service/internal/core"
	"waste_service/internal/domain/model"
	"waste_service/internal/domain/repository"
)

// FallbackHeader names the pipeline failure behind a fallback estimate.
const FallbackHeader = "X-Prediction-Fallback"

const apiVersion = "1.0"

type Handler struct {
	predictions   *core.PredictionService
	dashboard     *core.DashboardService
	requiredFiles []string
	frontendDir   string
	metrics       http.Handler
	logger        *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRequiredFiles sets the files the health check expects on disk.
func WithRequiredFiles(files []string) HandlerOption {
	return func(h *Handler) { h.requiredFiles = files }
}

// WithFrontendDir sets the directory of the built frontend.
func WithFrontendDir(dir string) HandlerOption {
	return func(h *Handler) { h.frontendDir = dir }
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(m http.Handler) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(predictions *core.PredictionService, dashboard *core.DashboardService, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		predictions: predictions,
		dashboard:   dashboard,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type PredictionInput struct {
	TotalHouseholds   int    `json:"total_households"`
	CoveredHouseholds int    `json:"covered_households"`
	ZoneName          string `json:"zone_name"`
}

type PredictionResponse struct {
	Prediction model.PredictionResult `json:"prediction"`
	Input      PredictionInput        `json:"input"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var raw model.RawInput
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		msg := "Invalid input data"
		if errors.Is(err, io.EOF) {
			msg = "No input data provided"
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}

	outcome, err := h.predictions.Predict(r.Context(), raw)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message()})
			return
		}
		h.logger.Error("prediction failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Prediction failed", Details: err.Error()})
		return
	}

	if outcome.Warning != nil {
		w.Header().Set(FallbackHeader, outcome.Warning.Reason)
	}
	writeJSON(w, http.StatusOK, PredictionResponse{
		Prediction: outcome.Result,
		Input: PredictionInput{
			TotalHouseholds:   outcome.Request.TotalHouseholds,
			CoveredHouseholds: outcome.Request.CoveredHouseholds,
			ZoneName:          outcome.Request.ZoneName,
		},
	})
}

type missingColumnsResponse struct {
	Error            string   `json:"error"`
	AvailableColumns []string `json:"available_columns"`
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.dashboard.Build(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, dash)
		return
	}

	var missing *repository.MissingColumnsError
	switch {
	case errors.Is(err, repository.ErrDatasetNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Data file not found at " + h.dashboard.Source().Location()})
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, missingColumnsResponse{Error: missing.Error(), AvailableColumns: missing.Available})
	case errors.Is(err, core.ErrNoValidData):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No valid data available after cleaning"})
	default:
		h.logger.Error("dashboard failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard", Details: err.Error()})
	}
}

type HealthResponse struct {
	Status     string   `json:"status"`
	DataLoaded bool     `json:"data_loaded"`
	ModelReady bool     `json:"model_ready"`
	APIVersion string   `json:"api_version"`
	Endpoints  []string `json:"endpoints"`
}

type healthErrorResponse struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	MissingFiles []string `json:"missing_files"`
}

var endpoints = []string{
	"/predict - POST - Make predictions",
	"/dashboard - GET - Get dashboard data",
	"/health - GET - Health check",
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var missing []string
	for _, f := range h.requiredFiles {
		if _, err := os.Stat(f); err != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusInternalServerError, healthErrorResponse{
			Status:       "error",
			Message:      "Required files missing",
			MissingFiles: missing,
		})
		return
	}

	dataLoaded := true
	if err := h.dashboard.Source().Check(r.Context()); err != nil {
		h.logger.Warn("dataset check failed", slog.String("error", err.Error()))
		dataLoaded = false
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		DataLoaded: dataLoaded,
		ModelReady: !h.predictions.Degraded(),
		APIVersion: apiVersion,
		Endpoints:  endpoints,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", slog.String("error", err.Error()))
	}
}
