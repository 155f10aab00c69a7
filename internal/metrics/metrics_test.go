package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.ValidationsTotal == nil {
		t.Error("ValidationsTotal is nil")
	}
	if m.ValidationDuration == nil {
		t.Error("ValidationDuration is nil")
	}
	if m.AuditAppendFailures == nil {
		t.Error("AuditAppendFailures is nil")
	}
	if m.RecordingsTotal == nil {
		t.Error("RecordingsTotal is nil")
	}
	if m.RecommendationDuration == nil {
		t.Error("RecommendationDuration is nil")
	}
	if m.IndexRebuildsTotal == nil {
		t.Error("IndexRebuildsTotal is nil")
	}
}

func TestMetricsIsolatedRegistry(t *testing.T) {
	// Two instances must not collide, so the registry cannot be the
	// process-global default.
	m1 := NewMetrics()
	m2 := NewMetrics()

	if m1.registry == m2.registry {
		t.Error("Metrics instances share a registry")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()

	m.ValidationsTotal.WithLabelValues("git", "allow", "").Inc()
	m.ValidationsTotal.WithLabelValues("npm", "deny", "resource_exceeded").Inc()
	m.AuditAppendFailures.Inc()
	m.RecordingsTotal.WithLabelValues("ok").Inc()
	m.IndexRebuildsTotal.Inc()
	m.ValidationDuration.WithLabelValues("git").Observe(0.002)
	m.RecommendationDuration.Observe(0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	expected := []string{
		"toolgate_validations_total",
		"toolgate_validation_duration_seconds",
		"toolgate_audit_append_failures_total",
		"toolgate_usage_recordings_total",
		"toolgate_recommendation_duration_seconds",
		"toolgate_index_rebuilds_total",
	}
	for _, name := range expected {
		if !strings.Contains(body, name) {
			t.Errorf("Metric %s not exposed", name)
		}
	}
}

func TestValidationCounterLabels(t *testing.T) {
	m := NewMetrics()

	m.ValidationsTotal.WithLabelValues("git", "deny", "insufficient_permission").Inc()
	m.ValidationsTotal.WithLabelValues("git", "deny", "insufficient_permission").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `reason="insufficient_permission"`) {
		t.Error("Reason label not exposed")
	}
	if !strings.Contains(body, `outcome="deny"`) {
		t.Error("Outcome label not exposed")
	}
}
