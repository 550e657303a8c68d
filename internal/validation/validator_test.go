// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/authpulse/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func validRequest() models.PredictionRequest {
	return models.PredictionRequest{
		AgeGroup:      "elderly",
		BiometricType: "fingerprint",
		DeviceModel:   "UIDAI_Device_C",
		State:         "Tamil Nadu",
	}
}

func TestValidateStruct_PredictionRequest(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *models.PredictionRequest)
		wantField string
		wantTag   string
	}{
		{name: "valid", mutate: func(*models.PredictionRequest) {}},
		{name: "valid with optional fields", mutate: func(r *models.PredictionRequest) {
			r.District = "Chennai"
			r.Gender = "female"
			r.Timestamp = "2026-01-15T09:00:00Z"
		}},
		{name: "missing age", mutate: func(r *models.PredictionRequest) { r.AgeGroup = "" }, wantField: "age_group", wantTag: "required"},
		{name: "bad age", mutate: func(r *models.PredictionRequest) { r.AgeGroup = "teen" }, wantField: "age_group", wantTag: "oneof"},
		{name: "bad biometric", mutate: func(r *models.PredictionRequest) { r.BiometricType = "face" }, wantField: "biometric_type", wantTag: "oneof"},
		{name: "unknown device", mutate: func(r *models.PredictionRequest) { r.DeviceModel = "UIDAI_Device_Z" }, wantField: "device_model", wantTag: "device_model"},
		{name: "unknown state", mutate: func(r *models.PredictionRequest) { r.State = "Atlantis" }, wantField: "state", wantTag: "state"},
		{name: "bad gender", mutate: func(r *models.PredictionRequest) { r.Gender = "x" }, wantField: "gender", wantTag: "oneof"},
		{name: "bad timestamp", mutate: func(r *models.PredictionRequest) { r.Timestamp = "yesterday" }, wantField: "timestamp", wantTag: "datetime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			verr := ValidateStruct(&req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("error = %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	req := models.PredictionRequest{}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error for empty request")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "age_group is required") {
		t.Errorf("Message = %q, want mention of age_group", apiErr.Message)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 4 {
		t.Errorf("Details[fields] = %v, want 4 entries", apiErr.Details["fields"])
	}

	single := validRequest()
	single.State = "Nowhere"
	apiErr = ValidateStruct(&single).ToAPIError()
	if apiErr.Details["field"] != "state" {
		t.Errorf("Details[field] = %v, want state", apiErr.Details["field"])
	}
}
