package worker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/replikv/replikv/internal/cluster"
	"github.com/replikv/replikv/internal/config"
)

// Server is the worker's HTTP surface: the client-facing key-value API,
// the peer-facing replicate/pull/keys endpoints, and health and metrics.
type Server struct {
	id      string
	store   *Store
	coord   *Coordinator
	emitter *Emitter
	cfg     config.Worker
}

// NewServer opens the durable store and wires the write coordinator and
// heartbeat emitter for cfg.
func NewServer(cfg config.Worker) (*Server, error) {
	store, err := OpenStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return &Server{
		id:      cfg.ID,
		store:   store,
		coord:   NewCoordinator(store, cfg.Controller, cfg.Address, cfg.WriteQuorum, cfg.RequestTimeout),
		emitter: NewEmitter(cfg.Controller, cfg.ID, cfg.Address, cfg.HeartbeatInterval),
		cfg:     cfg,
	}, nil
}

// Start launches the heartbeat emitter.
func (s *Server) Start(ctx context.Context) {
	go s.emitter.Start(ctx)
}

// Stop shuts the background emitter down.
func (s *Server) Stop() {
	s.emitter.Stop()
}

// Store exposes the underlying store (used by tests and the worker
// binary's startup log).
func (s *Server) Store() *Store {
	return s.store
}

// Handler builds the worker's route table. CORS is permissive so the
// browser console can talk to workers directly.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/kv/{key}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/kv/{key}", s.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/kv/{key}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/replicate/{key}", s.handleReplicate).Methods(http.MethodPost)
	r.HandleFunc("/pull", s.handlePull).Methods(http.MethodPost)
	r.HandleFunc("/keys", s.handleKeys).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	}).Methods(http.MethodGet)
	return cors.AllowAll().Handler(r)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	metrics.GetOrCreateCounter("replikv_gets_total").Inc()

	value, err := s.store.Get(key)
	if err != nil {
		cluster.WriteError(w, err)
		return
	}
	cluster.WriteJSON(w, http.StatusOK, cluster.ValueEnvelope{Value: value})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	metrics.GetOrCreateCounter("replikv_puts_total").Inc()

	var body cluster.ValueEnvelope
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	acks, err := s.coord.Put(r.Context(), key, body.Value)
	if err != nil {
		log.Printf("worker[%s] put %q failed: %v", s.id, key, err)
		cluster.WriteError(w, err)
		return
	}
	cluster.WriteJSON(w, http.StatusOK, cluster.PutResponse{Key: key, Value: body.Value, Acks: acks})
}

// handleDelete removes the key from this worker only. Deletes are not
// replicated; the endpoint exists for maintenance and the console.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := s.store.Delete(key); err != nil {
		cluster.WriteError(w, err)
		return
	}
	cluster.WriteJSON(w, http.StatusOK, cluster.AckResponse{OK: true})
}

func (s *Server) handleReplicate(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	metrics.GetOrCreateCounter("replikv_replicate_received_total").Inc()

	var body cluster.ValueEnvelope
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.store.Put(key, body.Value); err != nil {
		cluster.WriteError(w, err)
		return
	}
	cluster.WriteJSON(w, http.StatusOK, cluster.AckResponse{OK: true})
}

// handlePull fetches each requested key from the donor and writes it
// locally. Best-effort: per-key failures are counted, never fatal.
func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req cluster.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Donor == "" {
		http.Error(w, "missing donor", http.StatusBadRequest)
		return
	}
	metrics.GetOrCreateCounter("replikv_pulls_total").Inc()

	var resp cluster.PullResponse
	for _, key := range req.Keys {
		if err := s.pullOne(r.Context(), req.Donor, key); err != nil {
			log.Printf("worker[%s] pull %q from %s: %v", s.id, key, req.Donor, err)
			metrics.GetOrCreateCounter("replikv_pull_key_failures_total").Inc()
			resp.Failed++
			continue
		}
		resp.Pulled++
	}
	log.Printf("worker[%s] pulled %d keys from %s (%d failed)", s.id, resp.Pulled, req.Donor, resp.Failed)
	cluster.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) pullOne(ctx context.Context, donor, key string) error {
	pullCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	var envelope cluster.ValueEnvelope
	if err := cluster.GetJSON(pullCtx, donor+"/kv/"+url.PathEscape(key), &envelope); err != nil {
		return err
	}
	return s.store.Put(key, envelope.Value)
}

func (s *Server) handleKeys(w http.ResponseWriter, _ *http.Request) {
	cluster.WriteJSON(w, http.StatusOK, cluster.KeysResponse{Keys: s.store.Keys()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	cluster.WriteJSON(w, http.StatusOK, cluster.WorkerHealth{Status: "worker up", Keys: s.store.Len()})
}
