// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/ml"
	"github.com/tomtom215/authpulse/internal/models"
)

// notAvailable is reported for categorical KPIs with no data.
const notAvailable = "N/A"

// Insight thresholds, as failure percentages.
const (
	elderlyWinterThreshold = 20.0
	deviceMultiplier       = 1.5
	stateThreshold         = 25.0
	maxInsights            = 10
)

// RiskZoneFilter narrows the risk-zone view. Empty fields match everything.
type RiskZoneFilter struct {
	BiometricType string `json:"biometric_type,omitempty"`
	AgeGroup      string `json:"age_group,omitempty"`
	DeviceModel   string `json:"device_model,omitempty"`
	Gender        string `json:"gender,omitempty"`
}

func (f RiskZoneFilter) filter() dataset.Filter {
	var out dataset.Filter
	if f.BiometricType != "" {
		out = out.Where(dataset.DimBiometricType, f.BiometricType)
	}
	if f.AgeGroup != "" {
		out = out.Where(dataset.DimAgeGroup, f.AgeGroup)
	}
	if f.DeviceModel != "" {
		out = out.Where(dataset.DimDeviceModel, f.DeviceModel)
	}
	if f.Gender != "" {
		out = out.Where(dataset.DimGender, f.Gender)
	}
	return out
}

// DefaultKPIs is returned when no dataset is loaded.
func DefaultKPIs() models.KPIs {
	return models.KPIs{HighestRiskDistrict: notAvailable, WorstDevice: notAvailable}
}

// KPIs computes the headline metrics.
func (s *Service) KPIs(ctx context.Context) (models.KPIs, error) {
	v, err := s.requireSource()
	src := v.source
	if errors.Is(err, ErrNoData) {
		return DefaultKPIs(), nil
	}
	return cached(s, v, "kpis", nil, func() (models.KPIs, error) {
		return s.kpis(ctx, src)
	})
}

func (s *Service) kpis(ctx context.Context, src Source) (models.KPIs, error) {
	out := DefaultKPIs()
	failures := dataset.Filter{}.Failures()

	overall, err := s.total(ctx, src, "kpis_overall", dataset.Filter{})
	if err != nil {
		return out, err
	}
	out.OverallFailureRate = round2(overall.FailureRate())

	districts, err := s.aggregate(ctx, src, "kpis_district", failures, dataset.DimDistrict)
	if err != nil {
		return out, err
	}
	if g, ok := mostFailures(districts); ok {
		out.HighestRiskDistrict = g.Key()
	}

	devices, err := s.aggregate(ctx, src, "kpis_device", failures, dataset.DimDeviceModel)
	if err != nil {
		return out, err
	}
	if g, ok := mostFailures(devices); ok {
		out.WorstDevice = g.Key()
	}

	ages, err := s.aggregate(ctx, src, "kpis_age", dataset.Filter{}, dataset.DimAgeGroup)
	if err != nil {
		return out, err
	}
	var elderly, others dataset.Group
	for _, g := range ages {
		if g.Key() == models.AgeElderly {
			elderly = g
			continue
		}
		others.Total += g.Total
		others.Failures += g.Failures
	}
	out.ElderlyFailureDelta = round2(elderly.FailureRate() - others.FailureRate())

	months, err := s.aggregate(ctx, src, "kpis_seasonal", failures, dataset.DimMonth)
	if err != nil {
		return out, err
	}
	out.SeasonalSpike = round2(seasonalSpike(months))
	return out, nil
}

// mostFailures returns the group with the most failures. Groups arrive
// sorted by key, so ties resolve to the lexically first key.
func mostFailures(groups []dataset.Group) (dataset.Group, bool) {
	var best dataset.Group
	found := false
	for _, g := range groups {
		if g.Failures == 0 {
			continue
		}
		if !found || g.Failures > best.Failures {
			best, found = g, true
		}
	}
	return best, found
}

// seasonalSpike compares the peak month's failures to the mean over months
// that had any failures, as a percentage.
func seasonalSpike(months []dataset.Group) float64 {
	var sum, peak float64
	n := 0
	for _, g := range months {
		if g.Failures == 0 {
			continue
		}
		f := float64(g.Failures)
		sum += f
		n++
		if f > peak {
			peak = f
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return (peak - mean) / mean * 100
}

// RiskZones returns per-state failure statistics, sorted by state.
func (s *Service) RiskZones(ctx context.Context, f RiskZoneFilter) (models.RiskZonesResponse, error) {
	v, err := s.requireSource()
	src := v.source
	if errors.Is(err, ErrNoData) {
		return models.RiskZonesResponse{Zones: []models.RiskZone{}}, nil
	}
	return cached(s, v, "risk_zones", f, func() (models.RiskZonesResponse, error) {
		groups, err := s.aggregate(ctx, src, "risk_zones", f.filter(), dataset.DimState)
		if err != nil {
			return models.RiskZonesResponse{}, err
		}
		zones := make([]models.RiskZone, 0, len(groups))
		for _, g := range groups {
			zones = append(zones, models.RiskZone{
				State:         g.Key(),
				FailureRate:   round2(g.FailureRate()),
				TotalAttempts: g.Total,
				Failures:      g.Failures,
			})
		}
		return models.RiskZonesResponse{Zones: zones}, nil
	})
}

var importanceDimensions = []struct {
	name string
	dim  dataset.Dimension
}{
	{"Age Group", dataset.DimAgeGroup},
	{"Biometric Type", dataset.DimBiometricType},
	{"Device Model", dataset.DimDeviceModel},
}

// FeatureImportance reports, for each categorical factor, the highest
// failure rate among its categories. When a model is loaded its gain-based
// importances are included as percentages.
func (s *Service) FeatureImportance(ctx context.Context) (models.FeatureImportanceResponse, error) {
	v := s.snapshot()
	src, model := v.source, v.model
	if src == nil {
		return models.FeatureImportanceResponse{Features: []models.FeatureImportance{}}, nil
	}
	return cached(s, v, "feature_importance", nil, func() (models.FeatureImportanceResponse, error) {
		features := make([]models.FeatureImportance, 0, len(importanceDimensions))
		for _, d := range importanceDimensions {
			groups, err := s.aggregate(ctx, src, "feature_importance", dataset.Filter{}, d.dim)
			if err != nil {
				return models.FeatureImportanceResponse{}, err
			}
			anyFailure := false
			maxRate := 0.0
			for _, g := range groups {
				if g.Failures > 0 {
					anyFailure = true
				}
				if r := g.FailureRate(); r > maxRate {
					maxRate = r
				}
			}
			if anyFailure {
				features = append(features, models.FeatureImportance{Name: d.name, Importance: maxRate})
			}
		}
		sortImportances(features)

		resp := models.FeatureImportanceResponse{Features: features}
		if model != nil {
			resp.ModelFeatures = modelImportances(model.Classifier)
		}
		return resp, nil
	})
}

func modelImportances(c *ml.Classifier) []models.FeatureImportance {
	values := c.FeatureImportances()
	out := make([]models.FeatureImportance, 0, len(values))
	for i, v := range values {
		if i >= len(ml.FeatureLabels) {
			break
		}
		out = append(out, models.FeatureImportance{Name: ml.FeatureLabels[i], Importance: round2(v * 100)})
	}
	sortImportances(out)
	return out
}

func sortImportances(f []models.FeatureImportance) {
	sort.SliceStable(f, func(i, j int) bool { return f[i].Importance > f[j].Importance })
}

// Trends returns failure rates by calendar period, age group and device.
func (s *Service) Trends(ctx context.Context) (models.TrendsResponse, error) {
	v, err := s.requireSource()
	src := v.source
	if errors.Is(err, ErrNoData) {
		return models.TrendsResponse{
			Monthly:   []models.MonthlyTrend{},
			AgeGroups: []models.AgeGroupTrend{},
			Devices:   []models.DeviceTrend{},
		}, nil
	}
	return cached(s, v, "trends", nil, func() (models.TrendsResponse, error) {
		var out models.TrendsResponse

		periods, err := s.aggregate(ctx, src, "trends_monthly", dataset.Filter{}, dataset.DimPeriod)
		if err != nil {
			return out, err
		}
		out.Monthly = make([]models.MonthlyTrend, 0, len(periods))
		for _, g := range periods {
			out.Monthly = append(out.Monthly, models.MonthlyTrend{Month: g.Key(), FailureRate: round2(g.FailureRate())})
		}

		ages, err := s.aggregate(ctx, src, "trends_age", dataset.Filter{}, dataset.DimAgeGroup)
		if err != nil {
			return out, err
		}
		out.AgeGroups = make([]models.AgeGroupTrend, 0, len(ages))
		for _, g := range ages {
			out.AgeGroups = append(out.AgeGroups, models.AgeGroupTrend{AgeGroup: g.Key(), FailureRate: round2(g.FailureRate())})
		}

		devices, err := s.aggregate(ctx, src, "trends_device", dataset.Filter{}, dataset.DimDeviceModel)
		if err != nil {
			return out, err
		}
		out.Devices = make([]models.DeviceTrend, 0, len(devices))
		for _, g := range devices {
			out.Devices = append(out.Devices, models.DeviceTrend{Device: g.Key(), FailureRate: round2(g.FailureRate())})
		}
		return out, nil
	})
}

// Insights derives at most ten actionable findings: the elderly
// fingerprint winter rule first, then underperforming devices, then
// high-risk states.
func (s *Service) Insights(ctx context.Context) (models.InsightsResponse, error) {
	v, err := s.requireSource()
	src := v.source
	if errors.Is(err, ErrNoData) {
		return models.InsightsResponse{Insights: []models.Insight{}}, nil
	}
	return cached(s, v, "insights", nil, func() (models.InsightsResponse, error) {
		insights, err := s.insights(ctx, src)
		if err != nil {
			return models.InsightsResponse{}, err
		}
		if len(insights) > maxInsights {
			insights = insights[:maxInsights]
		}
		return models.InsightsResponse{Insights: insights}, nil
	})
}

func (s *Service) insights(ctx context.Context, src Source) ([]models.Insight, error) {
	insights := []models.Insight{}

	winter := dataset.Filter{}.
		Where(dataset.DimAgeGroup, models.AgeElderly).
		Where(dataset.DimBiometricType, models.BiometricFingerprint).
		Months(models.WinterMonths...)
	ew, err := s.total(ctx, src, "insights_elderly_winter", winter)
	if err != nil {
		return nil, err
	}
	if ew.Total > 0 && ew.FailureRate() > elderlyWinterThreshold {
		insights = append(insights, models.Insight{
			Type:  models.InsightWarning,
			Title: "Elderly Fingerprint Failures High in Winter",
			Description: fmt.Sprintf("Elderly users experience %.1f%% failure rate during winter months. "+
				"Consider promoting iris authentication or device upgrades.", ew.FailureRate()),
			Priority: models.PriorityHigh,
		})
	}

	overall, err := s.total(ctx, src, "insights_overall", dataset.Filter{})
	if err != nil {
		return nil, err
	}
	avg := overall.FailureRate()

	devices, err := s.aggregate(ctx, src, "insights_device", dataset.Filter{}, dataset.DimDeviceModel)
	if err != nil {
		return nil, err
	}
	for _, g := range devices {
		rate := g.FailureRate()
		if rate <= avg*deviceMultiplier {
			continue
		}
		multiplier := 0.0
		if avg > 0 {
			multiplier = rate / avg
		}
		insights = append(insights, models.Insight{
			Type:  models.InsightCritical,
			Title: fmt.Sprintf("Device Model %s Underperforming", g.Key()),
			Description: fmt.Sprintf("Device model %s shows %.1fx higher failure rate (%.1f%% vs %.1f%%). "+
				"Recommend replacement or firmware update.", g.Key(), multiplier, rate, avg),
			Priority: models.PriorityHigh,
		})
	}

	states, err := s.aggregate(ctx, src, "insights_state", dataset.Filter{}, dataset.DimState)
	if err != nil {
		return nil, err
	}
	for _, g := range states {
		rate := g.FailureRate()
		if rate <= stateThreshold {
			continue
		}
		insights = append(insights, models.Insight{
			Type:  models.InsightWarning,
			Title: fmt.Sprintf("High Risk Zone: %s", g.Key()),
			Description: fmt.Sprintf("%s shows %.1f%% failure rate. "+
				"Investigate environmental factors, device quality, or user demographics.", g.Key(), rate),
			Priority: models.PriorityMedium,
		})
	}
	return insights, nil
}

// unknownReason labels failures recorded without a reason.
const unknownReason = "unknown"

// FailureReasons breaks failures down by recorded reason, most frequent
// first.
func (s *Service) FailureReasons(ctx context.Context) (models.FailureReasonsResponse, error) {
	v, err := s.requireSource()
	src := v.source
	if errors.Is(err, ErrNoData) {
		return models.FailureReasonsResponse{Reasons: []models.FailureReasonStat{}}, nil
	}
	return cached(s, v, "failure_reasons", nil, func() (models.FailureReasonsResponse, error) {
		groups, err := s.aggregate(ctx, src, "failure_reasons", dataset.Filter{}.Failures(), dataset.DimFailureReason)
		if err != nil {
			return models.FailureReasonsResponse{}, err
		}
		var totalFailures int
		for _, g := range groups {
			totalFailures += g.Total
		}
		reasons := make([]models.FailureReasonStat, 0, len(groups))
		for _, g := range groups {
			if g.Total == 0 {
				continue
			}
			reason := g.Key()
			if reason == "" {
				reason = unknownReason
			}
			reasons = append(reasons, models.FailureReasonStat{
				Reason:      reason,
				Count:       g.Total,
				Share:       round2(float64(g.Total) / float64(totalFailures) * 100),
				AvgAttempts: round2(float64(g.Attempts) / float64(g.Total)),
			})
		}
		sort.SliceStable(reasons, func(i, j int) bool {
			if reasons[i].Count != reasons[j].Count {
				return reasons[i].Count > reasons[j].Count
			}
			return reasons[i].Reason < reasons[j].Reason
		})
		return models.FailureReasonsResponse{Reasons: reasons}, nil
	})
}
