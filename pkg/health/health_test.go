package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func up(ctx context.Context) error   { return nil }
func down(ctx context.Context) error { return errors.New("connection refused") }

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"all up", map[string]Check{"engine": PingCheck(up, true)}, StatusUp},
		{"optional down", map[string]Check{"engine": PingCheck(up, true), "cache": PingCheck(down, false)}, StatusDegraded},
		{"critical down", map[string]Check{"engine": PingCheck(down, true), "cache": PingCheck(down, false)}, StatusDown},
		{"empty", map[string]Check{}, StatusUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.checks))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("cache", PingCheck(down, false))

	rec := httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded readiness status = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Components["cache"].Message != "connection refused" {
		t.Errorf("report = %+v", report)
	}

	c.Register("engine", PingCheck(down, true))
	rec = httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("down readiness status = %d, want 503", rec.Code)
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSlowCheckReportsDown(t *testing.T) {
	c := NewChecker()
	c.checkTimeout = 10 * time.Millisecond
	c.Register("postgres", func(ctx context.Context) ComponentHealth {
		time.Sleep(time.Second)
		return ComponentHealth{Status: StatusUp}
	})
	report := c.Run(context.Background())
	if report.Status != StatusDown || report.Components["postgres"].Message != "check timed out" {
		t.Errorf("report = %+v", report)
	}
}
