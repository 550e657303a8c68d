// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package api serves the dashboard REST endpoints over a chi router.
//
// Successful responses are the flat JSON objects defined in
// internal/models. Failures use one envelope:
//
//	{"status": "error", "error": {"code": "...", "message": "...", "details": {...}}}
//
// Middleware order: request ID, real IP, panic recovery, access log,
// Prometheus, compression, CORS, then per-IP rate limiting on /api routes.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/authpulse/internal/middleware"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	config        *ChiMiddlewareConfig
}

// NewRouter creates a Router. A nil config uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, config *ChiMiddlewareConfig) *Router {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(config),
		config:        config,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog(router.config.SlowRequestThreshold))
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Compress(5, "application/json", "text/plain"))
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/", router.handler.Root)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())

		r.Get("/health", router.handler.Health)
		r.Get("/kpis", router.handler.KPIs)
		r.Get("/risk-zones", router.handler.RiskZones)
		r.Post("/predict", router.handler.Predict)
		r.Get("/feature-importance", router.handler.FeatureImportance)
		r.Get("/trends", router.handler.Trends)
		r.Get("/insights", router.handler.Insights)
		r.Get("/failure-reasons", router.handler.FailureReasons)
	})

	return r
}
