// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package generator

import (
	"github.com/tomtom215/authpulse/internal/models"
)

// Summary describes a generated dataset. Rates are percentages.
type Summary struct {
	Total           int
	Failures        int
	FailureRate     float64
	ByAgeGroup      map[string]float64
	ByBiometricType map[string]float64
}

// Summarize computes overall and per-category failure rates.
func Summarize(events []models.AuthEvent) Summary {
	type counter struct{ total, failures int }
	age := map[string]*counter{}
	bio := map[string]*counter{}

	s := Summary{Total: len(events)}
	for i := range events {
		e := &events[i]
		if age[e.AgeGroup] == nil {
			age[e.AgeGroup] = &counter{}
		}
		if bio[e.BiometricType] == nil {
			bio[e.BiometricType] = &counter{}
		}
		age[e.AgeGroup].total++
		bio[e.BiometricType].total++
		if e.Failed() {
			s.Failures++
			age[e.AgeGroup].failures++
			bio[e.BiometricType].failures++
		}
	}

	rate := func(failures, total int) float64 {
		if total == 0 {
			return 0
		}
		return float64(failures) / float64(total) * 100
	}
	s.FailureRate = rate(s.Failures, s.Total)
	s.ByAgeGroup = make(map[string]float64, len(age))
	for k, c := range age {
		s.ByAgeGroup[k] = rate(c.failures, c.total)
	}
	s.ByBiometricType = make(map[string]float64, len(bio))
	for k, c := range bio {
		s.ByBiometricType[k] = rate(c.failures, c.total)
	}
	return s
}
