package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
)

// HealthServer provides the HTTP health, metrics and inspection endpoints
type HealthServer struct {
	registry *registry.Registry
	store    storage.Store
	mux      *http.ServeMux
	server   *http.Server
}

// NewHealthServer creates a new HTTP server. The store may be nil.
func NewHealthServer(reg *registry.Registry, store storage.Store) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		registry: reg,
		store:    store,
		mux:      mux,
	}

	// Register endpoints
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/workers", hs.workersHandler)
	mux.HandleFunc("/runs", hs.runsHandler)

	return hs
}

// Start starts the HTTP server and blocks until it stops
func (hs *HealthServer) Start(addr string) error {
	hs.server = &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return hs.server.ListenAndServe()
}

// Stop closes the HTTP server
func (hs *HealthServer) Stop() error {
	if hs.server == nil {
		return nil
	}
	return hs.server.Close()
}

// WorkersResponse lists registered workers and group membership
type WorkersResponse struct {
	Workers []*types.WorkerServerMetadata `json:"workers"`
	Groups  map[string][]string           `json:"groups"`
}

// workersHandler implements the /workers endpoint. The optional group query
// parameter limits the listing to one group.
func (hs *HealthServer) workersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var workers []*types.WorkerServerMetadata
	if group := r.URL.Query().Get("group"); group != "" {
		workers = hs.registry.Members(group)
	} else {
		workers = hs.registry.Servers()
	}
	if workers == nil {
		workers = []*types.WorkerServerMetadata{}
	}

	groups := make(map[string][]string)
	for _, name := range hs.registry.GroupNames() {
		groups[name] = hs.registry.GetNormalWorkerServerAddressByGroup(name)
	}

	writeJSON(w, http.StatusOK, WorkersResponse{Workers: workers, Groups: groups})
}

// runsHandler implements the /runs endpoint
func (hs *HealthServer) runsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if hs.store == nil {
		writeJSON(w, http.StatusOK, []*types.RunRecord{})
		return
	}

	runs, err := hs.store.ListRuns()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*types.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
