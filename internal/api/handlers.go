// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authpulse/internal/analytics"
	"github.com/tomtom215/authpulse/internal/models"
	"github.com/tomtom215/authpulse/internal/validation"
)

// maxPredictBody caps the prediction request body.
const maxPredictBody = 64 << 10

// rootMessage is returned by GET /.
const rootMessage = "UIDAI Biometric Dashboard API"

// Handler serves the dashboard endpoints from an analytics.Service.
type Handler struct {
	svc *analytics.Service
}

// NewHandler creates a Handler.
func NewHandler(svc *analytics.Service) *Handler {
	return &Handler{svc: svc}
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.RootResponse{Message: rootMessage})
}

// Health reports whether the dataset and model are loaded. The process
// answering is itself the liveness signal, so status is always "healthy".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Health())
}

// KPIs handles GET /api/kpis.
func (h *Handler) KPIs(w http.ResponseWriter, r *http.Request) {
	serve(w, r, "kpis", h.svc.KPIs)
}

// RiskZones handles GET /api/risk-zones. Every query parameter is an
// optional equality filter.
func (h *Handler) RiskZones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := analytics.RiskZoneFilter{
		BiometricType: q.Get("biometric_type"),
		AgeGroup:      q.Get("age_group"),
		DeviceModel:   q.Get("device_model"),
		Gender:        q.Get("gender"),
	}
	serve(w, r, "risk_zones", func(ctx context.Context) (models.RiskZonesResponse, error) {
		return h.svc.RiskZones(ctx, filter)
	})
}

// FeatureImportance handles GET /api/feature-importance.
func (h *Handler) FeatureImportance(w http.ResponseWriter, r *http.Request) {
	serve(w, r, "feature_importance", h.svc.FeatureImportance)
}

// Trends handles GET /api/trends.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	serve(w, r, "trends", h.svc.Trends)
}

// Insights handles GET /api/insights.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	serve(w, r, "insights", h.svc.Insights)
}

// FailureReasons handles GET /api/failure-reasons.
func (h *Handler) FailureReasons(w http.ResponseWriter, r *http.Request) {
	serve(w, r, "failure_reasons", h.svc.FailureReasons)
}

// Predict handles POST /api/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	body := http.MaxBytesReader(w, r.Body, maxPredictBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "Request body too large"
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, nil)
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorWithDetails(w, r, http.StatusBadRequest, &APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil)
		return
	}

	serve(w, r, "predict", func(ctx context.Context) (models.PredictionResponse, error) {
		return h.svc.Predict(ctx, &req)
	})
}

// serve runs compute with the request context and writes its result, or a
// 500 envelope when it fails.
func serve[T any](w http.ResponseWriter, r *http.Request, op string, compute func(context.Context) (T, error)) {
	out, err := compute(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to compute "+op, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}
