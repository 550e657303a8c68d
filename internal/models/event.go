// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package models

import (
	"fmt"
	"slices"
	"time"
)

// Categorical values of an authentication event.
const (
	AgeYoung   = "young"
	AgeAdult   = "adult"
	AgeElderly = "elderly"

	BiometricFingerprint = "fingerprint"
	BiometricIris        = "iris"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuthEvent is one biometric authentication attempt. Events are immutable
// once loaded.
type AuthEvent struct {
	Timestamp     time.Time `json:"auth_timestamp"`
	State         string    `json:"state"`
	District      string    `json:"district"`
	AgeGroup      string    `json:"age_group"`
	Gender        string    `json:"gender"`
	BiometricType string    `json:"biometric_type"`
	DeviceModel   string    `json:"device_model"`
	Result        string    `json:"auth_result"`
	FailureReason string    `json:"failure_reason,omitempty"` // empty for successes
	AttemptCount  int       `json:"attempt_count"`
}

// Failed reports whether the attempt failed.
func (e *AuthEvent) Failed() bool {
	return e.Result == ResultFailure
}

// Month returns the calendar month number, 1-12.
func (e *AuthEvent) Month() int {
	return int(e.Timestamp.Month())
}

// Period returns the YYYY-MM period of the event.
func (e *AuthEvent) Period() string {
	return e.Timestamp.Format("2006-01")
}

// DayOfWeek returns the weekday with Monday = 0.
func (e *AuthEvent) DayOfWeek() int {
	return Weekday(e.Timestamp)
}

// Weekday returns the weekday of t numbered from Monday = 0 to Sunday = 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// StateDistricts maps each covered state to its districts.
var StateDistricts = map[string][]string{
	"Maharashtra":   {"Mumbai", "Pune", "Nagpur", "Nashik", "Aurangabad"},
	"Delhi":         {"Central Delhi", "North Delhi", "South Delhi", "East Delhi", "West Delhi"},
	"Karnataka":     {"Bangalore", "Mysore", "Hubli", "Mangalore", "Belgaum"},
	"Tamil Nadu":    {"Chennai", "Coimbatore", "Madurai", "Salem", "Tiruchirappalli"},
	"Gujarat":       {"Ahmedabad", "Surat", "Vadodara", "Rajkot", "Bhavnagar"},
	"Rajasthan":     {"Jaipur", "Jodhpur", "Kota", "Udaipur", "Ajmer"},
	"West Bengal":   {"Kolkata", "Howrah", "Durgapur", "Asansol", "Siliguri"},
	"Uttar Pradesh": {"Lucknow", "Kanpur", "Agra", "Varanasi", "Allahabad"},
	"Bihar":         {"Patna", "Gaya", "Bhagalpur", "Muzaffarpur", "Darbhanga"},
	"Punjab":        {"Amritsar", "Ludhiana", "Jalandhar", "Patiala", "Bathinda"},
	"Haryana":       {"Gurgaon", "Faridabad", "Panipat", "Ambala", "Karnal"},
	"Kerala":        {"Thiruvananthapuram", "Kochi", "Kozhikode", "Thrissur", "Kollam"},
}

// States lists the covered states in a fixed order.
var States = []string{
	"Maharashtra", "Delhi", "Karnataka", "Tamil Nadu", "Gujarat", "Rajasthan",
	"West Bengal", "Uttar Pradesh", "Bihar", "Punjab", "Haryana", "Kerala",
}

var (
	AgeGroups      = []string{AgeYoung, AgeAdult, AgeElderly}
	Genders        = []string{"male", "female", "other"}
	BiometricTypes = []string{BiometricFingerprint, BiometricIris}
	DeviceModels   = []string{"UIDAI_Device_A", "UIDAI_Device_B", "UIDAI_Device_C", "UIDAI_Device_D", "UIDAI_Device_E"}
	Results        = []string{ResultSuccess, ResultFailure}
	FailureReasons = []string{"poor_quality", "environmental", "device_error", "user_error", "network_timeout"}
)

// WinterMonths are the months with elevated failure rates.
var WinterMonths = []int{11, 12, 1, 2}

// IsWinter reports whether month (1-12) is a winter month.
func IsWinter(month int) bool {
	return slices.Contains(WinterMonths, month)
}

// ValidateEvent checks domain membership of every categorical field.
func ValidateEvent(e *AuthEvent) error {
	districts, ok := StateDistricts[e.State]
	if !ok {
		return fmt.Errorf("unknown state %q", e.State)
	}
	if !slices.Contains(districts, e.District) {
		return fmt.Errorf("district %q is not in state %q", e.District, e.State)
	}
	checks := []struct {
		field  string
		value  string
		domain []string
	}{
		{"age_group", e.AgeGroup, AgeGroups},
		{"gender", e.Gender, Genders},
		{"biometric_type", e.BiometricType, BiometricTypes},
		{"device_model", e.DeviceModel, DeviceModels},
		{"auth_result", e.Result, Results},
	}
	for _, c := range checks {
		if !slices.Contains(c.domain, c.value) {
			return fmt.Errorf("invalid %s %q", c.field, c.value)
		}
	}
	switch {
	case e.Failed() && !slices.Contains(FailureReasons, e.FailureReason):
		return fmt.Errorf("invalid failure_reason %q for failed attempt", e.FailureReason)
	case !e.Failed() && e.FailureReason != "":
		return fmt.Errorf("failure_reason %q set on successful attempt", e.FailureReason)
	}
	if e.AttemptCount < 1 {
		return fmt.Errorf("attempt_count must be at least 1, got %d", e.AttemptCount)
	}
	return nil
}
