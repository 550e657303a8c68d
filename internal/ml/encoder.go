// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package ml

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/authpulse/internal/models"
)

// ErrUnknownCategory is returned when a value was not seen during fitting.
var ErrUnknownCategory = errors.New("unknown category")

// LabelEncoder maps categorical values to integer codes. Classes are kept
// sorted so the code of a value is its rank.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder fits an encoder on values.
func NewLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, 8)
	for _, v := range values {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

// Transform returns the code of v.
func (le *LabelEncoder) Transform(v string) (int, error) {
	code := sort.SearchStrings(le.Classes, v)
	if code == len(le.Classes) || le.Classes[code] != v {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, v)
	}
	return code, nil
}

// Encoded categorical columns, in feature order.
const (
	ColAgeGroup      = "age_group"
	ColBiometricType = "biometric_type"
	ColDeviceModel   = "device_model"
	ColState         = "state"
	ColGender        = "gender"
)

var categoricalColumns = []string{ColAgeGroup, ColBiometricType, ColDeviceModel, ColState, ColGender}

// FeatureNames are the model input columns, in vector order.
var FeatureNames = []string{
	"age_group_encoded",
	"biometric_type_encoded",
	"device_model_encoded",
	"state_encoded",
	"gender_encoded",
	"month",
	"day_of_week",
	"hour",
}

// FeatureLabels are display names for FeatureNames.
var FeatureLabels = []string{
	"Age Group",
	"Biometric Type",
	"Device Model",
	"State",
	"Gender",
	"Month",
	"Day of Week",
	"Hour",
}

// FeatureEncoder turns events into model feature vectors.
type FeatureEncoder struct {
	Encoders map[string]*LabelEncoder `json:"encoders"`

	// DefaultGender is the most frequent training gender, used when a
	// prediction request omits gender.
	DefaultGender string `json:"default_gender"`
}

// FitFeatureEncoder fits one label encoder per categorical column.
func FitFeatureEncoder(events []models.AuthEvent) *FeatureEncoder {
	columns := make(map[string][]string, len(categoricalColumns))
	genderCounts := make(map[string]int)
	for i := range events {
		e := &events[i]
		columns[ColAgeGroup] = append(columns[ColAgeGroup], e.AgeGroup)
		columns[ColBiometricType] = append(columns[ColBiometricType], e.BiometricType)
		columns[ColDeviceModel] = append(columns[ColDeviceModel], e.DeviceModel)
		columns[ColState] = append(columns[ColState], e.State)
		columns[ColGender] = append(columns[ColGender], e.Gender)
		genderCounts[e.Gender]++
	}

	fe := &FeatureEncoder{Encoders: make(map[string]*LabelEncoder, len(categoricalColumns))}
	for _, col := range categoricalColumns {
		fe.Encoders[col] = NewLabelEncoder(columns[col])
	}

	best := -1
	for _, g := range fe.Encoders[ColGender].Classes {
		if genderCounts[g] > best {
			best = genderCounts[g]
			fe.DefaultGender = g
		}
	}
	return fe
}

// Encode returns the feature vector of e.
func (fe *FeatureEncoder) Encode(e *models.AuthEvent) ([]float64, error) {
	return fe.EncodeValues(e.AgeGroup, e.BiometricType, e.DeviceModel, e.State, e.Gender, e.Timestamp)
}

// EncodeValues returns the feature vector for the given attributes. An empty
// gender uses DefaultGender.
func (fe *FeatureEncoder) EncodeValues(ageGroup, biometricType, deviceModel, state, gender string, ts time.Time) ([]float64, error) {
	if gender == "" {
		gender = fe.DefaultGender
	}
	values := [...]string{ageGroup, biometricType, deviceModel, state, gender}

	x := make([]float64, len(FeatureNames))
	for i, col := range categoricalColumns {
		le, ok := fe.Encoders[col]
		if !ok {
			return nil, fmt.Errorf("no encoder for column %s", col)
		}
		code, err := le.Transform(values[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", col, err)
		}
		x[i] = float64(code)
	}
	x[5] = float64(ts.Month())
	x[6] = float64(models.Weekday(ts))
	x[7] = float64(ts.Hour())
	return x, nil
}

// EncodeAll returns the feature matrix and failure labels of events.
func (fe *FeatureEncoder) EncodeAll(events []models.AuthEvent) ([][]float64, []float64, error) {
	X := make([][]float64, len(events))
	y := make([]float64, len(events))
	for i := range events {
		x, err := fe.Encode(&events[i])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		X[i] = x
		if events[i].Failed() {
			y[i] = 1
		}
	}
	return X, y, nil
}
