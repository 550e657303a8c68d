// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package models

// Response shapes are flat JSON objects consumed directly by the dashboard,
// so field names must stay stable.

type RootResponse struct {
	Message string `json:"message"`
}

type HealthStatus struct {
	Status      string `json:"status"` // always "healthy" when the process answers
	DataLoaded  bool   `json:"data_loaded"`
	ModelLoaded bool   `json:"model_loaded"`
}

// KPIs are headline dashboard metrics. Rates are percentages.
type KPIs struct {
	OverallFailureRate  float64 `json:"overall_failure_rate"`
	HighestRiskDistrict string  `json:"highest_risk_district"` // most failures by count
	WorstDevice         string  `json:"worst_device"`          // most failures by count
	ElderlyFailureDelta float64 `json:"elderly_failure_delta"` // elderly minus non-elderly rate
	SeasonalSpike       float64 `json:"seasonal_spike"`        // peak month vs mean month, %
}

type RiskZone struct {
	State         string  `json:"state"`
	FailureRate   float64 `json:"failure_rate"`
	TotalAttempts int     `json:"total_attempts"`
	Failures      int     `json:"failures"`
}

type RiskZonesResponse struct {
	Zones []RiskZone `json:"zones"`
}

// PredictionRequest describes a hypothetical authentication attempt.
type PredictionRequest struct {
	AgeGroup      string `json:"age_group" validate:"required,oneof=young adult elderly"`
	BiometricType string `json:"biometric_type" validate:"required,oneof=fingerprint iris"`
	DeviceModel   string `json:"device_model" validate:"required,device_model"`
	State         string `json:"state" validate:"required,state"`
	District      string `json:"district,omitempty" validate:"omitempty,max=100"`
	Gender        string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Timestamp     string `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type PredictionResponse struct {
	FailureProbability float64            `json:"failure_probability"`
	RiskLevel          string             `json:"risk_level"`
	Confidence         float64            `json:"confidence"`
	Factors            map[string]float64 `json:"factors"`
	ModelProbability   *float64           `json:"model_probability,omitempty"`
}

type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

type FeatureImportanceResponse struct {
	Features      []FeatureImportance `json:"features"`
	ModelFeatures []FeatureImportance `json:"model_features,omitempty"` // from the trained classifier
}

type MonthlyTrend struct {
	Month       string  `json:"month"` // YYYY-MM
	FailureRate float64 `json:"failure_rate"`
}

type AgeGroupTrend struct {
	AgeGroup    string  `json:"age_group"`
	FailureRate float64 `json:"failure_rate"`
}

type DeviceTrend struct {
	Device      string  `json:"device"`
	FailureRate float64 `json:"failure_rate"`
}

type TrendsResponse struct {
	Monthly   []MonthlyTrend  `json:"monthly"`
	AgeGroups []AgeGroupTrend `json:"age_groups"`
	Devices   []DeviceTrend   `json:"devices"`
}

// Insight types and priorities.
const (
	InsightWarning  = "warning"
	InsightCritical = "critical"

	PriorityHigh   = "High"
	PriorityMedium = "Medium"
)

type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type InsightsResponse struct {
	Insights []Insight `json:"insights"`
}

type FailureReasonStat struct {
	Reason      string  `json:"reason"`
	Count       int     `json:"count"`
	Share       float64 `json:"share"`        // % of all failures
	AvgAttempts float64 `json:"avg_attempts"` // mean attempt_count
}

type FailureReasonsResponse struct {
	Reasons []FailureReasonStat `json:"reasons"`
}
