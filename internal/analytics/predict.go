// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/logging"
	"github.com/tomtom215/authpulse/internal/metrics"
	"github.com/tomtom215/authpulse/internal/ml"
	"github.com/tomtom215/authpulse/internal/models"
)

// Prediction constants shared by the mock and the historical estimate.
const (
	mockFailureProbability = 15.5
	predictionConfidence   = 0.75

	lowRiskBelow    = 10.0
	mediumRiskBelow = 20.0
)

// Risk levels.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

func predictionFactors() map[string]float64 {
	return map[string]float64{
		"age_group":      0.2,
		"biometric_type": 0.15,
		"device_model":   0.1,
		"state":          0.05,
	}
}

// MockPrediction is returned while no model is loaded.
func MockPrediction() models.PredictionResponse {
	return models.PredictionResponse{
		FailureProbability: mockFailureProbability,
		RiskLevel:          RiskMedium,
		Confidence:         predictionConfidence,
		Factors:            predictionFactors(),
	}
}

// RiskLevel classifies a failure percentage.
func RiskLevel(rate float64) string {
	switch {
	case rate < lowRiskBelow:
		return RiskLow
	case rate < mediumRiskBelow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Predict estimates the failure probability of req. The request must
// already be validated.
//
// Without a model the mock prediction is returned. With a model,
// failure_probability is the historical failure rate of events matching
// all four attributes (falling back to the overall rate, or the mock value
// when no dataset is loaded), and model_probability is the classifier's
// estimate when every attribute is known to its encoders.
func (s *Service) Predict(ctx context.Context, req *models.PredictionRequest) (models.PredictionResponse, error) {
	v := s.snapshot()
	src, model := v.source, v.model
	if model == nil {
		metrics.RecordPrediction(metrics.PredictionMock)
		return MockPrediction(), nil
	}

	rate := mockFailureProbability
	if src != nil {
		r, err := s.historicalRate(ctx, src, req)
		if err != nil {
			return models.PredictionResponse{}, err
		}
		rate = r
	}

	resp := models.PredictionResponse{
		FailureProbability: round2(rate),
		RiskLevel:          RiskLevel(rate),
		Confidence:         predictionConfidence,
		Factors:            predictionFactors(),
	}

	p, err := s.modelProbability(model, req)
	switch {
	case err == nil:
		resp.ModelProbability = &p
		metrics.RecordPrediction(metrics.PredictionModel)
	case errors.Is(err, ml.ErrUnknownCategory):
		logging.Ctx(ctx).Debug().Err(err).Msg("model cannot encode request, using historical rate only")
		metrics.RecordPrediction(metrics.PredictionHistorical)
	default:
		logging.Ctx(ctx).Warn().Err(err).Msg("model prediction failed")
		metrics.RecordPrediction(metrics.PredictionHistorical)
	}
	return resp, nil
}

func (s *Service) historicalRate(ctx context.Context, src Source, req *models.PredictionRequest) (float64, error) {
	match := dataset.Filter{}.
		Where(dataset.DimAgeGroup, req.AgeGroup).
		Where(dataset.DimBiometricType, req.BiometricType).
		Where(dataset.DimDeviceModel, req.DeviceModel).
		Where(dataset.DimState, req.State)
	g, err := s.total(ctx, src, "predict_match", match)
	if err != nil {
		return 0, err
	}
	if g.Total > 0 {
		return g.FailureRate(), nil
	}

	overall, err := s.total(ctx, src, "predict_overall", dataset.Filter{})
	if err != nil {
		return 0, err
	}
	if overall.Total == 0 {
		return mockFailureProbability, nil
	}
	return overall.FailureRate(), nil
}

// modelProbability returns the classifier's failure percentage rounded to
// two decimals.
func (s *Service) modelProbability(model *Model, req *models.PredictionRequest) (float64, error) {
	ts := s.now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return 0, err
		}
		ts = parsed
	}
	x, err := model.Encoder.EncodeValues(req.AgeGroup, req.BiometricType, req.DeviceModel, req.State, req.Gender, ts)
	if err != nil {
		return 0, err
	}
	p, err := model.Classifier.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return round2(p * 100), nil
}
