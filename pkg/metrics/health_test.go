package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealth(t *testing.T) {
	t.Helper()
	healthChecker = newHealthChecker()
}

func TestRegisterComponent(t *testing.T) {
	resetHealth(t)

	RegisterComponent("registry", true, "running")

	comps := Components()
	require.Len(t, comps, 1)
	assert.True(t, comps[0].Healthy)
	assert.Equal(t, "running", comps[0].Message)
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]bool
		wantStatus string
	}{
		{name: "all healthy", components: map[string]bool{"registry": true, "balancer": true}, wantStatus: StatusHealthy},
		{name: "one unhealthy", components: map[string]bool{"registry": true, "probe": false}, wantStatus: StatusUnhealthy},
		{name: "nothing registered", components: nil, wantStatus: StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth(t)
			SetVersion("1.0.0")
			for name, healthy := range tt.components {
				RegisterComponent(name, healthy, "sampling failed")
			}

			health := GetHealth()
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Len(t, health.Components, len(tt.components))
			assert.Equal(t, "1.0.0", health.Version)
		})
	}
}

func TestGetHealthUnhealthyMessage(t *testing.T) {
	resetHealth(t)
	RegisterComponent("probe", false, "cpu sampling failed")

	health := GetHealth()
	assert.Equal(t, "unhealthy: cpu sampling failed", health.Components["probe"])
}

func TestGetReadiness(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]bool
		wantStatus string
	}{
		{name: "critical components ready", components: map[string]bool{"registry": true, "balancer": true}, wantStatus: StatusReady},
		{name: "balancer missing", components: map[string]bool{"registry": true}, wantStatus: StatusNotReady},
		{name: "registry unhealthy", components: map[string]bool{"registry": false, "balancer": true}, wantStatus: StatusNotReady},
		{name: "extra components ignored", components: map[string]bool{"registry": true, "balancer": true, "probe": false}, wantStatus: StatusReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth(t)
			for name, healthy := range tt.components {
				RegisterComponent(name, healthy, "starting")
			}

			readiness := GetReadiness()
			assert.Equal(t, tt.wantStatus, readiness.Status)
			if tt.wantStatus == StatusNotReady {
				assert.NotEmpty(t, readiness.Message)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealth(t)
	SetVersion("test")
	RegisterComponent("registry", true, "")

	w := httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var health HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, StatusHealthy, health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestHealthHandlerUnhealthy(t *testing.T) {
	resetHealth(t)
	RegisterComponent("registry", false, "broken")

	w := httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyHandler(t *testing.T) {
	resetHealth(t)
	RegisterComponent("registry", true, "")

	w := httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	RegisterComponent("balancer", true, "")
	w = httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var readiness HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&readiness))
	assert.Equal(t, StatusReady, readiness.Status)
}

func TestLivenessHandler(t *testing.T) {
	resetHealth(t)

	w := httptest.NewRecorder()
	LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "alive", response["status"])
	assert.NotEmpty(t, response["uptime"])
}

func TestUpdateComponent(t *testing.T) {
	resetHealth(t)

	RegisterComponent("balancer", true, "ok")
	UpdateComponent("balancer", false, "error")

	comps := Components()
	require.Len(t, comps, 1)
	assert.False(t, comps[0].Healthy)
	assert.Equal(t, "error", comps[0].Message)
}
