package controller

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/replikv/replikv/internal/cluster"
)

// entry is one registered worker. Mutated only under Registry.mu.
type entry struct {
	info          cluster.WorkerInfo
	lastHeartbeat time.Time
	live          bool
}

// Registry tracks every worker the controller has ever seen. Entries are
// created on first heartbeat, flipped down by the failure detector, and
// revived by any fresh heartbeat; they are never deleted.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]*entry

	// now is injected by tests; everything else uses the wall clock.
	now func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]*entry),
		now:     time.Now,
	}
}

// Heartbeat upserts the worker and stamps its last-heartbeat instant.
// The stamp is monotone: a clock hiccup can never move it backwards.
// Returns true when the worker was previously unknown or down, which
// means the live membership just grew.
func (r *Registry) Heartbeat(id, address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.workers[id]
	if !ok {
		r.workers[id] = &entry{
			info:          cluster.WorkerInfo{ID: id, Address: address},
			lastHeartbeat: now,
			live:          true,
		}
		return true
	}
	e.info.Address = address
	if now.After(e.lastHeartbeat) {
		e.lastHeartbeat = now
	}
	revived := !e.live
	e.live = true
	return revived
}

// Live returns the live workers sorted by identifier — the canonical
// ordering the partition function walks.
func (r *Registry) Live() []cluster.WorkerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := make([]cluster.WorkerInfo, 0, len(r.workers))
	for _, e := range r.workers {
		if e.live {
			live = append(live, e.info)
		}
	}
	slices.SortFunc(live, func(a, b cluster.WorkerInfo) int {
		return strings.Compare(a.ID, b.ID)
	})
	return live
}

// LiveCount returns the number of live workers.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, e := range r.workers {
		if e.live {
			count++
		}
	}
	return count
}

// Snapshot returns a copy of every registry entry, sorted by identifier.
func (r *Registry) Snapshot() []cluster.WorkerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]cluster.WorkerStatus, 0, len(r.workers))
	for _, e := range r.workers {
		all = append(all, cluster.WorkerStatus{
			ID:            e.info.ID,
			Address:       e.info.Address,
			Live:          e.live,
			LastHeartbeat: e.lastHeartbeat,
		})
	}
	slices.SortFunc(all, func(a, b cluster.WorkerStatus) int {
		return strings.Compare(a.ID, b.ID)
	})
	return all
}

// ExpireStale flips every live worker whose heartbeat is older than
// timeout to down and returns their identifiers. The entries stay in the
// registry awaiting revival.
func (r *Registry) ExpireStale(timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var flipped []string
	for id, e := range r.workers {
		if e.live && now.Sub(e.lastHeartbeat) > timeout {
			e.live = false
			flipped = append(flipped, id)
		}
	}
	slices.Sort(flipped)
	return flipped
}
