package controller

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/replikv/replikv/internal/cluster"
	"github.com/replikv/replikv/internal/config"
)

// Server is the controller's HTTP surface over the registry, the
// mapping function, and the failure detector.
type Server struct {
	cfg      config.Controller
	registry *Registry
	detector *Detector
}

// NewServer wires a controller server from cfg.
func NewServer(cfg config.Controller) *Server {
	registry := NewRegistry()
	recovery := NewRecovery(registry, cfg.Replicas, cfg.RequestTimeout)
	return &Server{
		cfg:      cfg,
		registry: registry,
		detector: NewDetector(registry, recovery, cfg.CheckInterval, cfg.HeartbeatTimeout),
	}
}

// Registry exposes the worker registry (used by tests).
func (s *Server) Registry() *Registry {
	return s.registry
}

// Start launches the failure detector.
func (s *Server) Start(ctx context.Context) {
	go s.detector.Start(ctx)
}

// Stop shuts the detector down.
func (s *Server) Stop() {
	s.detector.Stop()
}

// Handler builds the controller's route table. CORS is permissive for
// the browser console.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/map", s.handleMap).Methods(http.MethodGet)
	r.HandleFunc("/workers", s.handleWorkers).Methods(http.MethodGet)
	r.HandleFunc("/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)
	r.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	}).Methods(http.MethodGet)
	return cors.AllowAll().Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	cluster.WriteJSON(w, http.StatusOK, cluster.ControllerHealth{
		Status:       "controller up",
		WorkersCount: s.registry.LiveCount(),
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}
	metrics.GetOrCreateCounter("replikv_map_queries_total").Inc()

	set, err := ReplicaSet(key, s.registry.Live(), s.cfg.Replicas)
	if err != nil {
		cluster.WriteError(w, err)
		return
	}
	addrs := make([]string, len(set))
	for i, wi := range set {
		addrs[i] = wi.Address
	}
	cluster.WriteJSON(w, http.StatusOK, cluster.MapResponse{
		Key:      key,
		Primary:  addrs[0],
		Replicas: addrs,
	})
}

func (s *Server) handleWorkers(w http.ResponseWriter, _ *http.Request) {
	cluster.WriteJSON(w, http.StatusOK, s.registry.Snapshot())
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req cluster.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.Address == "" {
		http.Error(w, "missing id/address", http.StatusBadRequest)
		return
	}
	metrics.GetOrCreateCounter("replikv_heartbeats_received_total").Inc()

	if revived := s.registry.Heartbeat(req.ID, req.Address); revived {
		log.Printf("controller: worker %s joined (%s)", req.ID, req.Address)
		s.detector.RequestRecovery()
	}
	cluster.WriteJSON(w, http.StatusOK, cluster.AckResponse{OK: true})
}
