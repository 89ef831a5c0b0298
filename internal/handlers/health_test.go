package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/services"
)

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

var _ services.SystemService = (*stubSystemService)(nil)

func TestHealthHandlersHealthz(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Second)
	handlers := NewHealthHandlers(
		WithHealthBuildInfo(services.BuildInfo{
			Version:     "1.0.0",
			CommitSHA:   "abc123",
			Environment: "prod",
			StartedAt:   start,
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	handlers.Healthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["status"] != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["version"] != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %v", body["version"])
	}
	if body["commitSha"] != "abc123" {
		t.Fatalf("expected commit abc123, got %v", body["commitSha"])
	}
	if body["uptime"] != "30s" {
		t.Fatalf("expected uptime 30s, got %v", body["uptime"])
	}
}

func TestHealthHandlersReadyz(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 31, 0, 0, time.UTC)
	cases := []struct {
		name        string
		svc         *stubSystemService
		wantStatus  int
		wantDetails []string
	}{
		{
			name: "all stores ok",
			svc: &stubSystemService{report: services.SystemHealthReport{
				Status:      domain.HealthStatusOK,
				Version:     "1.0.0",
				Uptime:      time.Minute,
				GeneratedAt: now,
				Checks: map[string]domain.SystemHealthCheck{
					"catalog": {Status: domain.HealthStatusOK, Latency: 10 * time.Millisecond, CheckedAt: now},
					"ledger":  {Status: domain.HealthStatusOK, CheckedAt: now},
				},
			}},
			wantStatus: http.StatusOK,
		},
		{
			name: "closed ledger",
			svc: &stubSystemService{report: services.SystemHealthReport{
				Status: domain.HealthStatusError,
				Checks: map[string]domain.SystemHealthCheck{
					"carts":  {Status: domain.HealthStatusOK},
					"ledger": {Status: domain.HealthStatusError, Error: "ledger closed"},
				},
			}},
			wantStatus:  http.StatusServiceUnavailable,
			wantDetails: []string{"ledger: ledger closed"},
		},
		{
			name: "degraded stores are listed in name order",
			svc: &stubSystemService{report: services.SystemHealthReport{
				Status: domain.HealthStatusDegraded,
				Checks: map[string]domain.SystemHealthCheck{
					"ledger":  {Status: domain.HealthStatusDegraded, Error: "slow"},
					"catalog": {Status: domain.HealthStatusDegraded, Error: "slow"},
				},
			}},
			wantStatus:  http.StatusServiceUnavailable,
			wantDetails: []string{"catalog: slow", "ledger: slow"},
		},
		{
			name:       "report failure",
			svc:        &stubSystemService{err: errors.New("boom")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handlers := NewHealthHandlers(
				WithHealthSystemService(tc.svc),
				WithHealthClock(func() time.Time { return now }),
			)
			rr := httptest.NewRecorder()
			handlers.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.svc.err != nil {
				return
			}
			var body healthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if len(body.Details) != len(tc.wantDetails) {
				t.Fatalf("expected details %v, got %v", tc.wantDetails, body.Details)
			}
			for i := range tc.wantDetails {
				if body.Details[i] != tc.wantDetails[i] {
					t.Fatalf("expected details %v, got %v", tc.wantDetails, body.Details)
				}
			}
			if tc.wantStatus == http.StatusOK && body.Checks["catalog"].LatencyMS != 10 {
				t.Fatalf("expected catalog latency 10ms, got %d", body.Checks["catalog"].LatencyMS)
			}
		})
	}
}
