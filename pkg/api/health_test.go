package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.OnServerAdded(&types.WorkerServerMetadata{Address: "a:1", Groups: []string{"etl"}, Status: types.ServerStatusNormal})
	reg.OnServerAdded(&types.WorkerServerMetadata{Address: "b:1", Groups: []string{"etl", "ml"}, Status: types.ServerStatusBusy})
	return reg
}

// TestWorkersHandler tests the /workers endpoint
func TestWorkersHandler(t *testing.T) {
	hs := NewHealthServer(testRegistry(), nil)

	tests := []struct {
		name           string
		method         string
		target         string
		expectedStatus int
		expectedAddrs  []string
	}{
		{
			name:           "GET lists every worker",
			method:         http.MethodGet,
			target:         "/workers",
			expectedStatus: http.StatusOK,
			expectedAddrs:  []string{"a:1", "b:1"},
		},
		{
			name:           "GET filters by group",
			method:         http.MethodGet,
			target:         "/workers?group=ml",
			expectedStatus: http.StatusOK,
			expectedAddrs:  []string{"b:1"},
		},
		{
			name:           "unknown group is empty",
			method:         http.MethodGet,
			target:         "/workers?group=missing",
			expectedStatus: http.StatusOK,
			expectedAddrs:  []string{},
		},
		{
			name:           "POST request fails",
			method:         http.MethodPost,
			target:         "/workers",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			w := httptest.NewRecorder()

			hs.GetHandler().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var response WorkersResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			addrs := []string{}
			for _, md := range response.Workers {
				addrs = append(addrs, md.Address)
			}
			assert.Equal(t, tt.expectedAddrs, addrs)
			assert.Equal(t, []string{"a:1"}, response.Groups["etl"])
			assert.Equal(t, []string{}, response.Groups["ml"])
		})
	}
}

// TestRunsHandler tests the /runs endpoint
func TestRunsHandler(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		hs := NewHealthServer(testRegistry(), nil)
		w := httptest.NewRecorder()
		hs.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("with store", func(t *testing.T) {
		store, err := storage.NewBoltStore(t.TempDir())
		require.NoError(t, err)
		defer store.Close()
		require.NoError(t, store.SaveRun(&types.RunRecord{ID: "r1", Workflow: "etl", Status: "SUCCESS", StartedAt: time.Now()}))

		hs := NewHealthServer(testRegistry(), store)
		w := httptest.NewRecorder()
		hs.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var runs []types.RunRecord
		require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "r1", runs[0].ID)
	})
}

// TestHealthEndpointsMounted checks the metrics package handlers are reachable
func TestHealthEndpointsMounted(t *testing.T) {
	hs := NewHealthServer(testRegistry(), nil)

	for _, path := range []string{"/health", "/live", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			hs.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestIsQuietMethod(t *testing.T) {
	tests := []struct {
		method string
		quiet  bool
	}{
		{MethodListWorkers, true},
		{MethodListGroups, true},
		{MethodHeartbeat, true},
		{"/grpc.health.v1.Health/Check", true},
		{"/grpc.health.v1.Health/Watch", true},
		{MethodDeregister, false},
		{MethodSetWorkerGroups, false},
		{"malformed", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.quiet, isQuietMethod(tt.method))
		})
	}
}
