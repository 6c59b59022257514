package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replikv/replikv/internal/cluster"
)

// TestEmitterBeats verifies the emitter posts {id, address} immediately
// and then on every interval.
func TestEmitterBeats(t *testing.T) {
	var mu sync.Mutex
	var beats []cluster.HeartbeatRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		var hb cluster.HeartbeatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&hb))
		mu.Lock()
		beats = append(beats, hb)
		mu.Unlock()
		cluster.WriteJSON(w, http.StatusOK, cluster.AckResponse{OK: true})
	})
	ctrl := httptest.NewServer(mux)
	defer ctrl.Close()

	emitter := NewEmitter(ctrl.URL, "w1", "http://localhost:8001", 40*time.Millisecond)
	go emitter.Start(nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(beats) >= 3
	}, 2*time.Second, 10*time.Millisecond, "expected the initial beat plus interval beats")

	emitter.Stop()

	mu.Lock()
	defer mu.Unlock()
	for _, hb := range beats {
		assert.Equal(t, "w1", hb.ID)
		assert.Equal(t, "http://localhost:8001", hb.Address)
	}
}

// TestEmitterSurvivesControllerOutage verifies failures against an
// unreachable controller are swallowed (the emitter keeps running and
// stops cleanly), and that an emitter pointed at a live controller beats.
func TestEmitterSurvivesControllerOutage(t *testing.T) {
	var mu sync.Mutex
	count := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/heartbeat", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		cluster.WriteJSON(w, http.StatusOK, cluster.AckResponse{OK: true})
	})
	ctrl := httptest.NewServer(mux)
	defer ctrl.Close()

	// Point at a dead address first; the emitter must keep trying.
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	emitter := NewEmitter(dead.URL, "w1", "http://localhost:8001", 30*time.Millisecond)
	go emitter.Start(nil)
	time.Sleep(100 * time.Millisecond)
	emitter.Stop()

	// A second emitter against the live controller beats normally.
	emitter = NewEmitter(ctrl.URL, "w1", "http://localhost:8001", 30*time.Millisecond)
	go emitter.Start(nil)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	}, time.Second, 10*time.Millisecond)
	emitter.Stop()
}
