// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

// Package metrics declares the Prometheus collectors exported on /metrics.
//
// Collectors are registered with the default registry through promauto at
// package initialisation, so importing the package is enough to expose them.
// The Record* helpers are the only intended write path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Analytics Metrics
	AnalyticsQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_query_duration_seconds",
			Help:    "Duration of analytics aggregations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "engine"},
	)

	AnalyticsQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_query_errors_total",
			Help: "Total number of failed analytics aggregations",
		},
		[]string{"operation", "engine"},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_rows",
			Help: "Number of authentication events currently loaded",
		},
	)

	// Model Metrics
	ModelLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_loaded",
			Help: "1 when a trained classifier is loaded, otherwise 0",
		},
	)

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served by source",
		},
		[]string{"source"}, // "mock", "historical", "model"
	)
)

// Prediction sources.
const (
	PredictionMock       = "mock"
	PredictionHistorical = "historical"
	PredictionModel      = "model"
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAnalyticsQuery records the duration of one aggregation and counts
// it as an error when err is non-nil.
func RecordAnalyticsQuery(operation, engine string, duration time.Duration, err error) {
	AnalyticsQueryDuration.WithLabelValues(operation, engine).Observe(duration.Seconds())
	if err != nil {
		AnalyticsQueryErrors.WithLabelValues(operation, engine).Inc()
	}
}

// SetDatasetRows publishes the loaded row count.
func SetDatasetRows(n int) {
	DatasetRows.Set(float64(n))
}

// SetModelLoaded publishes whether a classifier is available.
func SetModelLoaded(loaded bool) {
	if loaded {
		ModelLoaded.Set(1)
	} else {
		ModelLoaded.Set(0)
	}
}

// RecordPrediction counts a served prediction.
func RecordPrediction(source string) {
	PredictionsTotal.WithLabelValues(source).Inc()
}
