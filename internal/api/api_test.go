// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authpulse/internal/analytics"
	"github.com/tomtom215/authpulse/internal/config"
	"github.com/tomtom215/authpulse/internal/dataset"
	"github.com/tomtom215/authpulse/internal/ml"
	"github.com/tomtom215/authpulse/internal/models"
	"github.com/tomtom215/authpulse/internal/testinfra"
)

func testConfig() *ChiMiddlewareConfig {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return cfg
}

func newTestServer(t *testing.T, withData, withModel bool) http.Handler {
	t.Helper()
	ctx := context.Background()
	svc := analytics.NewService(analytics.Options{
		Now: func() time.Time { return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) },
	})

	events := testinfra.Events()
	if withData {
		if err := svc.SetSource(ctx, dataset.NewFrame(events)); err != nil {
			t.Fatalf("SetSource: %v", err)
		}
	}
	if withModel {
		enc := ml.FitFeatureEncoder(events)
		X, y, err := enc.EncodeAll(events)
		if err != nil {
			t.Fatalf("EncodeAll: %v", err)
		}
		clf := ml.NewClassifier(ml.Config{NumEstimators: 5, MaxDepth: 2, Lambda: 0.1, MinChildWeight: 0.01})
		if err := clf.Fit(ctx, X, y); err != nil {
			t.Fatalf("Fit: %v", err)
		}
		svc.SetModel(&analytics.Model{Classifier: clf, Encoder: enc})
	}
	return NewRouter(NewHandler(svc), testConfig()).SetupChi()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestRootAndHealth(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, true, false)

	w := do(t, h, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET / = %d", w.Code)
	}
	if got := decode[models.RootResponse](t, w).Message; got != rootMessage {
		t.Errorf("message = %q", got)
	}

	w = do(t, h, http.MethodGet, "/api/health", "")
	health := decode[models.HealthStatus](t, w)
	if health.Status != "healthy" || !health.DataLoaded || health.ModelLoaded {
		t.Errorf("health = %+v", health)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestDashboardEndpoints(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, true, false)

	t.Run("kpis", func(t *testing.T) {
		kpis := decode[models.KPIs](t, do(t, h, http.MethodGet, "/api/kpis", ""))
		want := models.KPIs{
			OverallFailureRate:  37.5,
			HighestRiskDistrict: "Patna",
			WorstDevice:         testinfra.DeviceC,
			ElderlyFailureDelta: 83.33,
			SeasonalSpike:       33.33,
		}
		if kpis != want {
			t.Errorf("kpis = %+v, want %+v", kpis, want)
		}
	})

	t.Run("risk zones", func(t *testing.T) {
		resp := decode[models.RiskZonesResponse](t, do(t, h, http.MethodGet, "/api/risk-zones", ""))
		if len(resp.Zones) != 2 || resp.Zones[0].State != "Bihar" || resp.Zones[0].FailureRate != 50 {
			t.Errorf("zones = %+v", resp.Zones)
		}

		resp = decode[models.RiskZonesResponse](t, do(t, h, http.MethodGet, "/api/risk-zones?age_group=elderly", ""))
		if len(resp.Zones) != 1 || resp.Zones[0].FailureRate != 100 {
			t.Errorf("elderly zones = %+v", resp.Zones)
		}
	})

	t.Run("trends", func(t *testing.T) {
		resp := decode[models.TrendsResponse](t, do(t, h, http.MethodGet, "/api/trends", ""))
		if len(resp.Monthly) != 4 || resp.Monthly[0].Month != "2025-12" {
			t.Errorf("monthly = %+v", resp.Monthly)
		}
		if len(resp.Devices) != 3 {
			t.Errorf("devices = %+v", resp.Devices)
		}
	})

	t.Run("failure reasons", func(t *testing.T) {
		resp := decode[models.FailureReasonsResponse](t, do(t, h, http.MethodGet, "/api/failure-reasons", ""))
		if len(resp.Reasons) != 2 || resp.Reasons[0].Reason != "poor_quality" || resp.Reasons[0].AvgAttempts != 2.5 {
			t.Errorf("reasons = %+v", resp.Reasons)
		}
	})

	t.Run("feature importance", func(t *testing.T) {
		resp := decode[models.FeatureImportanceResponse](t, do(t, h, http.MethodGet, "/api/feature-importance", ""))
		if len(resp.Features) != 3 || resp.ModelFeatures != nil {
			t.Errorf("features = %+v", resp)
		}
	})

	t.Run("insights", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/insights", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if resp := decode[models.InsightsResponse](t, w); resp.Insights == nil {
			t.Error("insights must be a JSON array")
		}
	})
}

func TestEndpointsWithoutData(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, false, false)

	tests := []struct {
		path string
		want string
	}{
		{"/api/risk-zones", `{"zones":[]}`},
		{"/api/feature-importance", `{"features":[]}`},
		{"/api/insights", `{"insights":[]}`},
		{"/api/failure-reasons", `{"reasons":[]}`},
		{"/api/trends", `{"monthly":[],"age_groups":[],"devices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.path, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
		})
	}

	kpis := decode[models.KPIs](t, do(t, h, http.MethodGet, "/api/kpis", ""))
	if kpis != analytics.DefaultKPIs() {
		t.Errorf("kpis = %+v", kpis)
	}
}

func TestPredict(t *testing.T) {
	t.Parallel()

	body := `{"age_group":"elderly","biometric_type":"fingerprint","device_model":"UIDAI_Device_C","state":"Bihar"}`

	t.Run("mock without model", func(t *testing.T) {
		h := newTestServer(t, true, false)
		resp := decode[models.PredictionResponse](t, do(t, h, http.MethodPost, "/api/predict", body))
		if resp.FailureProbability != 15.5 || resp.RiskLevel != "Medium" || resp.Confidence != 0.75 {
			t.Errorf("mock = %+v", resp)
		}
		if resp.ModelProbability != nil {
			t.Error("mock must not carry model_probability")
		}
	})

	t.Run("historical with model", func(t *testing.T) {
		h := newTestServer(t, true, true)
		resp := decode[models.PredictionResponse](t, do(t, h, http.MethodPost, "/api/predict", body))
		if resp.FailureProbability != 100 || resp.RiskLevel != "High" {
			t.Errorf("prediction = %+v", resp)
		}
		if resp.ModelProbability == nil {
			t.Fatal("model_probability missing")
		}
		if p := *resp.ModelProbability; p < 0 || p > 100 {
			t.Errorf("model_probability = %v", p)
		}
		if len(resp.Factors) != 4 {
			t.Errorf("factors = %v", resp.Factors)
		}
	})
}

func TestPredictErrors(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, true, false)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"age_group":`, ErrCodeBadRequest},
		{"empty body", ``, ErrCodeBadRequest},
		{"missing fields", `{"age_group":"adult"}`, ErrCodeValidation},
		{"unknown age group", `{"age_group":"teen","biometric_type":"iris","device_model":"UIDAI_Device_A","state":"Kerala"}`, ErrCodeValidation},
		{"unknown state", `{"age_group":"adult","biometric_type":"iris","device_model":"UIDAI_Device_A","state":"Atlantis"}`, ErrCodeValidation},
		{"bad timestamp", `{"age_group":"adult","biometric_type":"iris","device_model":"UIDAI_Device_A","state":"Kerala","timestamp":"yesterday"}`, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Status != "error" || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("response = %s", w.Body.String())
			}
			if resp.RequestID == "" {
				t.Error("request_id missing from error envelope")
			}
		})
	}
}

func TestRoutingErrors(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, true, false)

	w := do(t, h, http.MethodGet, "/api/nope", "")
	if w.Code != http.StatusNotFound || decode[ErrorResponse](t, w).Error.Code != ErrCodeNotFound {
		t.Errorf("unknown route = %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/predict", "")
	if w.Code != http.StatusMethodNotAllowed || decode[ErrorResponse](t, w).Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("wrong method = %d %s", w.Code, w.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	svc := analytics.NewService(analytics.Options{})
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	h := NewRouter(NewHandler(svc), cfg).SetupChi()

	for i := 0; i < 2; i++ {
		if w := do(t, h, http.MethodGet, "/api/health", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
	w := do(t, h, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", w.Code)
	}
	if decode[ErrorResponse](t, w).Error.Code != ErrCodeTooManyRequests {
		t.Errorf("body = %s", w.Body.String())
	}

	// the root route is outside the rate-limited group
	if w := do(t, h, http.MethodGet, "/", ""); w.Code != http.StatusOK {
		t.Errorf("GET / = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, false, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/kpis", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/kpis", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestCORSAllowsAnyRequestHeader(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, false, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, X-Dashboard-Version")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	got := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
	if !strings.Contains(got, "authorization") || !strings.Contains(got, "x-dashboard-version") {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, true, false)
	do(t, h, http.MethodGet, "/api/kpis", "")

	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "api_requests_total") {
		t.Error("api_requests_total not exported")
	}
}

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	t.Parallel()

	cfg := ChiMiddlewareConfigFromSecurity(config.SecurityConfig{
		CORSOrigins:       []string{"https://dash.example"},
		RateLimitReqs:     50,
		RateLimitDisabled: true,
	})
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://dash.example" {
		t.Errorf("origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRequests != 50 || cfg.RateLimitWindow != time.Minute || !cfg.RateLimitDisabled {
		t.Errorf("rate limit = %d/%v disabled=%v", cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitDisabled)
	}
	if !cfg.CORSAllowCredentials {
		t.Error("credentials should be allowed for explicit origins")
	}

	wild := ChiMiddlewareConfigFromSecurity(config.SecurityConfig{CORSOrigins: []string{"*"}})
	if wild.CORSAllowCredentials {
		t.Error("credentials must be off for a wildcard origin")
	}
}
