package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler := promhttp.Handler()
	handler.ServeHTTP(w, req)

	resp := w.Result()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") {
		t.Errorf("Expected content-type to contain 'text/plain', got '%s'", contentType)
	}

	body := w.Body.String()

	// Check for standard Go runtime metrics
	expectedMetrics := []string{
		"go_goroutines",
		"go_threads",
		"go_info",
		"promhttp_metric_handler",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metrics to contain '%s'", metric)
		}
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("MISREAD_TEST_VAR", "value")
	defer os.Unsetenv("MISREAD_TEST_VAR")

	if got := getEnv("MISREAD_TEST_VAR", "default"); got != "value" {
		t.Errorf("expected 'value', got %q", got)
	}
	if got := getEnv("MISREAD_TEST_MISSING", "default"); got != "default" {
		t.Errorf("expected 'default', got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("MISREAD_TEST_INT", "42")
	defer os.Unsetenv("MISREAD_TEST_INT")

	if got := getEnvInt("MISREAD_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := getEnvInt("MISREAD_TEST_MISSING", 7); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}

	os.Setenv("MISREAD_TEST_INT", "not a number")
	if got := getEnvInt("MISREAD_TEST_INT", 7); got != 7 {
		t.Errorf("expected fallback 7 for unparseable value, got %d", got)
	}
}
