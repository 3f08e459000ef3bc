// ABOUTME: Comprehensive tests for main application functions.
// ABOUTME: Tests configuration parsing, service creation, routing and HTTP middleware.

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jfeddern/VendorRisk/internal/engine"
	"github.com/jfeddern/VendorRisk/internal/server"
	"github.com/jfeddern/VendorRisk/internal/types"

	"github.com/sirupsen/logrus"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func defaultConfig() engine.Config {
	return engine.Config{
		Mode:           "local",
		Port:           9090,
		AssessInterval: 24 * time.Hour,
		Store:          StoreMemory,
		MaxConcurrency: 10,
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		args     []string
		expected func() engine.Config
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{"PROFILE_FILE": "/etc/vendorrisk/profiles.yaml"},
			args:    []string{},
			expected: func() engine.Config {
				c := defaultConfig()
				c.ProfileFile = "/etc/vendorrisk/profiles.yaml"
				return c
			},
		},
		{
			name: "s3 mode configuration",
			envVars: map[string]string{
				"MODE":            "s3",
				"S3_BUCKET":       "vendor-profiles",
				"S3_PREFIX":       "profiles/",
				"AWS_REGION":      "eu-central-1",
				"PORT":            "8080",
				"ASSESS_INTERVAL": "6h",
				"STORE":           "sqlite",
				"DATABASE_DSN":    "/var/lib/vendorrisk/assessments.db",
			},
			args: []string{},
			expected: func() engine.Config {
				c := defaultConfig()
				c.Mode = "s3"
				c.S3Bucket = "vendor-profiles"
				c.S3Prefix = "profiles/"
				c.S3Region = "eu-central-1"
				c.Port = 8080
				c.AssessInterval = 6 * time.Hour
				c.Store = "sqlite"
				c.DatabaseDSN = "/var/lib/vendorrisk/assessments.db"
				return c
			},
		},
		{
			name:    "flags override defaults",
			envVars: map[string]string{},
			args:    []string{"-mode", "cluster", "-namespace", "vendors", "-port", "3000", "-assess-interval", "2h", "-max-concurrency", "4"},
			expected: func() engine.Config {
				c := defaultConfig()
				c.Mode = "cluster"
				c.Namespace = "vendors"
				c.Port = 3000
				c.AssessInterval = 2 * time.Hour
				c.MaxConcurrency = 4
				return c
			},
		},
		{
			name: "environment overrides flags",
			envVars: map[string]string{
				"MODE":              "cluster",
				"PORT":              "5000",
				"PROFILE_NAMESPACE": "risk",
			},
			args: []string{"-mode", "local", "-port", "3000", "-namespace", "ignored"},
			expected: func() engine.Config {
				c := defaultConfig()
				c.Mode = "cluster" // env overrides flag
				c.Port = 5000      // env overrides flag
				c.Namespace = "risk"
				return c
			},
		},
		{
			name:    "mock mode needs no source settings",
			envVars: map[string]string{"MOCK_MODE": "true"},
			args:    []string{},
			expected: func() engine.Config {
				c := defaultConfig()
				c.MockMode = true
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := parseConfig(tt.args, envFrom(tt.envVars))
			if err != nil {
				t.Fatalf("parseConfig() returned error: %v", err)
			}

			expected := tt.expected()
			if !reflect.DeepEqual(*config, expected) {
				t.Errorf("parseConfig() = %+v, want %+v", *config, expected)
			}
		})
	}
}

func TestParseConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		args    []string
		wantErr string
	}{
		{
			name:    "local mode missing profile file",
			envVars: map[string]string{"MODE": "local"},
			wantErr: "profile file is required",
		},
		{
			name:    "s3 mode missing bucket",
			envVars: map[string]string{"MODE": "s3"},
			wantErr: "S3 bucket is required",
		},
		{
			name:    "unsupported mode",
			envVars: map[string]string{"MODE": "ftp"},
			wantErr: "unsupported mode",
		},
		{
			name:    "postgres store without dsn",
			envVars: map[string]string{"MOCK_MODE": "1", "STORE": "postgres"},
			wantErr: "database DSN is required",
		},
		{
			name:    "unsupported store",
			envVars: map[string]string{"MOCK_MODE": "1", "STORE": "redis"},
			wantErr: "unsupported store",
		},
		{
			name:    "invalid port",
			envVars: map[string]string{"MOCK_MODE": "1", "PORT": "ninety"},
			wantErr: "invalid PORT",
		},
		{
			name:    "port out of range",
			envVars: map[string]string{"MOCK_MODE": "1"},
			args:    []string{"-port", "70000"},
			wantErr: "port must be between",
		},
		{
			name:    "invalid interval",
			envVars: map[string]string{"MOCK_MODE": "1", "ASSESS_INTERVAL": "daily"},
			wantErr: "invalid ASSESS_INTERVAL",
		},
		{
			name:    "non positive interval",
			envVars: map[string]string{"MOCK_MODE": "1", "ASSESS_INTERVAL": "0s"},
			wantErr: "assess interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(tt.args, envFrom(tt.envVars))
			if err == nil {
				t.Fatalf("Expected error containing %q, got none", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Minimize test output

	service := &Service{
		config: &engine.Config{},
		logger: logger,
	}

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	service.healthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("healthHandler() returned status %d, want %d", w.Code, http.StatusOK)
	}

	expectedBody := `{"status":"ok"}`
	if strings.TrimSpace(w.Body.String()) != expectedBody {
		t.Errorf("healthHandler() returned body %q, want %q", w.Body.String(), expectedBody)
	}

	expectedContentType := "application/json"
	if w.Header().Get("Content-Type") != expectedContentType {
		t.Errorf("healthHandler() returned Content-Type %q, want %q", w.Header().Get("Content-Type"), expectedContentType)
	}
}

func TestSecurityMiddleware(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Minimize test output

	service := &Service{
		config: &engine.Config{},
		logger: logger,
	}

	testHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	}

	securedHandler := service.securityMiddleware(testHandler)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{name: "GET request allowed", method: "GET", expectedStatus: http.StatusOK},
		{name: "HEAD request allowed", method: "HEAD", expectedStatus: http.StatusOK},
		{name: "POST request blocked", method: "POST", expectedStatus: http.StatusMethodNotAllowed},
		{name: "PUT request blocked", method: "PUT", expectedStatus: http.StatusMethodNotAllowed},
		{name: "DELETE request blocked", method: "DELETE", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("User-Agent", "test-agent")
			w := httptest.NewRecorder()

			securedHandler(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("securityMiddleware() returned status %d, want %d", w.Code, tt.expectedStatus)
			}

			expectedHeaders := map[string]string{
				"X-Content-Type-Options":  "nosniff",
				"X-Frame-Options":         "DENY",
				"X-XSS-Protection":        "1; mode=block",
				"Referrer-Policy":         "strict-origin-when-cross-origin",
				"Content-Security-Policy": "default-src 'none'; script-src 'none'; object-src 'none'; frame-ancestors 'none'",
			}

			for header, expectedValue := range expectedHeaders {
				if got := w.Header().Get(header); got != expectedValue {
					t.Errorf("securityMiddleware() header %s = %q, want %q", header, got, expectedValue)
				}
			}
		})
	}
}

func TestSecurityMiddlewareRequestLogging(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Capture log output
	var logEntries []logrus.Entry
	logger.AddHook(&testHook{entries: &logEntries})

	service := &Service{
		config: &engine.Config{},
		logger: logger,
	}

	securedHandler := service.securityMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/vendors", nil)
	req.Header.Set("User-Agent", "test-user-agent")
	req.RemoteAddr = "192.168.1.100:54321"
	w := httptest.NewRecorder()

	securedHandler(w, req)

	found := false
	for _, entry := range logEntries {
		if entry.Message == "HTTP request received" {
			found = true
			if entry.Data["method"] != "GET" {
				t.Errorf("Expected method=GET in log, got %v", entry.Data["method"])
			}
			if entry.Data["path"] != "/vendors" {
				t.Errorf("Expected path=/vendors in log, got %v", entry.Data["path"])
			}
			if entry.Data["user_agent"] != "test-user-agent" {
				t.Errorf("Expected user_agent=test-user-agent in log, got %v", entry.Data["user_agent"])
			}
			break
		}
	}

	if !found {
		t.Error("Expected HTTP request log entry not found")
	}
}

// Test hook to capture log entries
type testHook struct {
	entries *[]logrus.Entry
}

func (h *testHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *testHook) Fire(entry *logrus.Entry) error {
	*h.entries = append(*h.entries, *entry)
	return nil
}

func newMockService(t *testing.T, store, dsn string) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	config := defaultConfig()
	config.MockMode = true
	config.Store = store
	config.DatabaseDSN = dsn

	service, err := NewService(context.Background(), &config, logger)
	if err != nil {
		t.Fatalf("NewService() returned error: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func TestNewServiceUnsupportedSourceMode(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	config := defaultConfig()
	config.Mode = "ftp"

	if _, err := NewService(context.Background(), &config, logger); err == nil {
		t.Error("Expected NewService() to fail for an unsupported mode")
	}
}

func TestServiceRoutes(t *testing.T) {
	stores := []struct {
		name  string
		store string
		dsn   func(t *testing.T) string
	}{
		{name: "memory store", store: StoreMemory, dsn: func(t *testing.T) string { return "" }},
		{name: "sqlite store", store: StoreSQLite, dsn: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "assessments.db")
		}},
	}

	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			service := newMockService(t, st.store, st.dsn(t))
			handler := service.Handler()

			// Before the first run the portfolio is empty
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/vendors", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("GET /vendors returned %d before the first run", w.Code)
			}

			stats, err := service.engine.RunOnce(context.Background())
			if err != nil {
				t.Fatalf("RunOnce() returned error: %v", err)
			}
			if stats.Assessed != 6 {
				t.Fatalf("Expected 6 mock vendors assessed, got %d", stats.Assessed)
			}

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/vendors", nil))
			var summary server.VendorsResponse
			if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
				t.Fatalf("Failed to unmarshal /vendors response: %v", err)
			}
			if summary.Summary.TotalVendors != 6 {
				t.Errorf("Expected 6 vendors, got %d", summary.Summary.TotalVendors)
			}
			if summary.LastUpdated == "" {
				t.Errorf("Expected last_updated after a run")
			}

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/vendors/shadybytes", nil))
			var assessment types.RiskAssessment
			if err := json.Unmarshal(w.Body.Bytes(), &assessment); err != nil {
				t.Fatalf("Failed to unmarshal assessment: %v", err)
			}
			if assessment.RiskLevel != types.RiskCritical || !assessment.RequiresOverride {
				t.Errorf("Expected shadybytes to be CRITICAL with override, got %s override=%v", assessment.RiskLevel, assessment.RequiresOverride)
			}

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
			if !strings.Contains(w.Body.String(), `vendorrisk_vendor_overall_score{vendor_id="cloudvault"}`) {
				t.Errorf("Expected vendor score metrics after a run")
			}

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("POST", "/vendors", nil))
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("POST /vendors returned %d, want %d", w.Code, http.StatusMethodNotAllowed)
			}

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/vendors/unknown/history", nil))
			if w.Code != http.StatusNotFound {
				t.Errorf("GET unknown history returned %d, want %d", w.Code, http.StatusNotFound)
			}

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
			if w.Code != http.StatusOK || w.Header().Get("X-Frame-Options") != "DENY" {
				t.Errorf("GET /health returned %d without security headers", w.Code)
			}
		})
	}
}
