// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/authpulse/internal/models"
)

// Dimension is a column (or derived column) events can be grouped and
// filtered by.
type Dimension string

const (
	DimState         Dimension = "state"
	DimDistrict      Dimension = "district"
	DimAgeGroup      Dimension = "age_group"
	DimGender        Dimension = "gender"
	DimBiometricType Dimension = "biometric_type"
	DimDeviceModel   Dimension = "device_model"
	DimFailureReason Dimension = "failure_reason"
	DimMonth         Dimension = "month"  // calendar month, "1".."12"
	DimPeriod        Dimension = "period" // "YYYY-MM"
)

// Dimensions lists every supported dimension.
var Dimensions = []Dimension{
	DimState, DimDistrict, DimAgeGroup, DimGender, DimBiometricType,
	DimDeviceModel, DimFailureReason, DimMonth, DimPeriod,
}

// ErrUnknownDimension is returned for a dimension outside Dimensions.
var ErrUnknownDimension = errors.New("unknown dimension")

// Valid reports whether d is a supported dimension.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Value extracts the dimension value of e.
func (d Dimension) Value(e *models.AuthEvent) string {
	switch d {
	case DimState:
		return e.State
	case DimDistrict:
		return e.District
	case DimAgeGroup:
		return e.AgeGroup
	case DimGender:
		return e.Gender
	case DimBiometricType:
		return e.BiometricType
	case DimDeviceModel:
		return e.DeviceModel
	case DimFailureReason:
		return e.FailureReason
	case DimMonth:
		return strconv.Itoa(e.Month())
	case DimPeriod:
		return e.Period()
	default:
		return ""
	}
}

// Filter restricts which events an aggregation sees. Values within one
// dimension are OR-ed; dimensions are AND-ed. The zero Filter matches all.
type Filter struct {
	Equals map[Dimension][]string
	Result string // "" for any, else models.ResultSuccess or models.ResultFailure
}

// Where returns a copy of f that additionally requires d to be one of values.
// With no values the filter is returned unchanged.
func (f Filter) Where(d Dimension, values ...string) Filter {
	if len(values) == 0 {
		return f
	}
	eq := make(map[Dimension][]string, len(f.Equals)+1)
	for k, v := range f.Equals {
		eq[k] = v
	}
	eq[d] = append([]string(nil), values...)
	f.Equals = eq
	return f
}

// Months returns a copy of f restricted to the given calendar months.
func (f Filter) Months(months ...int) Filter {
	values := make([]string, len(months))
	for i, m := range months {
		values[i] = strconv.Itoa(m)
	}
	return f.Where(DimMonth, values...)
}

// Failures returns a copy of f restricted to failed attempts.
func (f Filter) Failures() Filter {
	f.Result = models.ResultFailure
	return f
}

// Validate checks that every filtered dimension is supported.
func (f Filter) Validate() error {
	for d := range f.Equals {
		if !d.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
	}
	switch f.Result {
	case "", models.ResultSuccess, models.ResultFailure:
		return nil
	default:
		return fmt.Errorf("invalid result filter %q", f.Result)
	}
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *models.AuthEvent) bool {
	if f.Result != "" && e.Result != f.Result {
		return false
	}
	for d, values := range f.Equals {
		v := d.Value(e)
		found := false
		for _, want := range values {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Group is one aggregation bucket.
type Group struct {
	Keys     []string // one value per grouped dimension
	Total    int
	Failures int
	Attempts int // sum of attempt_count
}

// FailureRate returns the failure percentage, or 0 for an empty group.
func (g Group) FailureRate() float64 {
	if g.Total == 0 {
		return 0
	}
	return float64(g.Failures) / float64(g.Total) * 100
}

// Key returns the first grouping key, or "".
func (g Group) Key() string {
	if len(g.Keys) == 0 {
		return ""
	}
	return g.Keys[0]
}

// ValidateDimensions checks that every dimension is supported.
func ValidateDimensions(dims []Dimension) error {
	for _, d := range dims {
		if !d.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
	}
	return nil
}

// SortGroups orders groups lexically by key, comparing month keys
// numerically.
func SortGroups(groups []Group, dims []Dimension) {
	sort.SliceStable(groups, func(i, j int) bool {
		for k, d := range dims {
			a, b := groups[i].Keys[k], groups[j].Keys[k]
			if a == b {
				continue
			}
			if d == DimMonth {
				ai, _ := strconv.Atoi(a)
				bi, _ := strconv.Atoi(b)
				return ai < bi
			}
			return a < b
		}
		return false
	})
}

// Frame is an immutable in-memory table of events.
type Frame struct {
	events []models.AuthEvent
}

// NewFrame wraps events. The slice must not be modified afterwards.
func NewFrame(events []models.AuthEvent) *Frame {
	return &Frame{events: events}
}

// Events returns the underlying rows. Callers must not modify them.
func (f *Frame) Events() []models.AuthEvent {
	return f.events
}

// Len returns the number of rows.
func (f *Frame) Len(ctx context.Context) (int, error) {
	return len(f.events), ctx.Err()
}

// Aggregate groups the rows passing filter by dims. With no dims it returns
// exactly one group covering the whole filtered set.
func (f *Frame) Aggregate(ctx context.Context, filter Filter, dims ...Dimension) ([]Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateDimensions(dims); err != nil {
		return nil, err
	}

	if len(dims) == 0 {
		g := Group{}
		for i := range f.events {
			e := &f.events[i]
			if filter.Match(e) {
				accumulate(&g, e)
			}
		}
		return []Group{g}, nil
	}

	index := make(map[string]int)
	var groups []Group
	keys := make([]string, len(dims))
	for i := range f.events {
		e := &f.events[i]
		if !filter.Match(e) {
			continue
		}
		for k, d := range dims {
			keys[k] = d.Value(e)
		}
		id := strings.Join(keys, "\x1f")
		pos, ok := index[id]
		if !ok {
			pos = len(groups)
			index[id] = pos
			groups = append(groups, Group{Keys: append([]string(nil), keys...)})
		}
		accumulate(&groups[pos], e)
	}
	SortGroups(groups, dims)
	return groups, nil
}

func accumulate(g *Group, e *models.AuthEvent) {
	g.Total++
	g.Attempts += e.AttemptCount
	if e.Failed() {
		g.Failures++
	}
}
