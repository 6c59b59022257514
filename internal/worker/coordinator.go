package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/exp/slices"

	"github.com/replikv/replikv/internal/cluster"
)

// Coordinator drives client PUTs through the replication pipeline: map
// lookup at the controller, durable local write, concurrent replicate
// fan-out, quorum accounting, and a detached tail for the replicates
// still in flight when quorum is reached.
type Coordinator struct {
	store      *Store
	controller string // controller base URL, no trailing slash
	self       string // address published in heartbeats, normalized
	quorum     int
	timeout    time.Duration
}

// NewCoordinator wires a coordinator over store. self is the address the
// worker publishes in heartbeats; membership in a replica set is decided
// by comparing it against the addresses the controller returns.
func NewCoordinator(store *Store, controller, self string, quorum int, timeout time.Duration) *Coordinator {
	return &Coordinator{
		store:      store,
		controller: strings.TrimRight(controller, "/"),
		self:       strings.TrimRight(self, "/"),
		quorum:     quorum,
		timeout:    timeout,
	}
}

// Put coordinates a client write for key. It returns the number of
// acknowledgements collected; on success that is at least the write
// quorum. The coordinator's own durable write counts as one ack when it
// is a member of the replica set; when it is not, the PUT is proxied to
// the primary and the primary's result relayed unchanged.
func (c *Coordinator) Put(ctx context.Context, key, value string) (int, error) {
	replicas, err := c.lookup(ctx, key)
	if err != nil {
		return 0, err
	}

	if !slices.Contains(replicas, c.self) {
		return c.proxyToPrimary(ctx, replicas[0], key, value)
	}

	if err := c.store.Put(key, value); err != nil {
		return 0, err
	}
	acks := 1

	peers := make([]string, 0, len(replicas)-1)
	for _, addr := range replicas {
		if addr != c.self {
			peers = append(peers, addr)
		}
	}

	// Fan out concurrently. Each call runs on its own detached context
	// with its own deadline so the tail keeps replicating after the
	// client has been answered.
	results := make(chan bool, len(peers))
	for _, addr := range peers {
		go func(addr string) {
			replicateCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
			defer cancel()
			err := cluster.PostJSON(replicateCtx, addr+"/replicate/"+url.PathEscape(key), cluster.ValueEnvelope{Value: value}, nil)
			if err != nil {
				log.Printf("worker: replicate %q to %s: %v", key, addr, err)
				metrics.GetOrCreateCounter("replikv_replicate_send_failures_total").Inc()
			}
			results <- err == nil
		}(addr)
	}

	// Wait only until quorum; every send above has a bounded deadline,
	// so this loop cannot outlive timeout.
	for pending := len(peers); pending > 0 && acks < c.quorum; pending-- {
		if <-results {
			acks++
		}
	}

	if acks < c.quorum {
		return acks, fmt.Errorf("%d of %d acks: %w", acks, c.quorum, cluster.ErrQuorumNotMet)
	}
	return acks, nil
}

// lookup asks the controller for the key's replica set and normalizes
// the addresses for comparison against self.
func (c *Coordinator) lookup(ctx context.Context, key string) ([]string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp cluster.MapResponse
	err := cluster.GetJSON(lookupCtx, c.controller+"/map?key="+url.QueryEscape(key), &resp)
	if err != nil {
		if errors.Is(err, cluster.ErrNoWorkers) {
			return nil, err
		}
		return nil, fmt.Errorf("map lookup for %q: %v: %w", key, err, cluster.ErrMappingUnavailable)
	}
	if len(resp.Replicas) == 0 {
		return nil, fmt.Errorf("map lookup for %q: empty replica set: %w", key, cluster.ErrNoWorkers)
	}
	replicas := make([]string, len(resp.Replicas))
	for i, addr := range resp.Replicas {
		replicas[i] = strings.TrimRight(addr, "/")
	}
	return replicas, nil
}

// proxyToPrimary forwards a PUT this worker cannot coordinate (it is not
// in the replica set) to the key's primary and relays the result.
func (c *Coordinator) proxyToPrimary(ctx context.Context, primary, key, value string) (int, error) {
	// The primary runs its own fan-out inside this call, so give it two
	// request windows before giving up.
	proxyCtx, cancel := context.WithTimeout(ctx, 2*c.timeout)
	defer cancel()

	var resp cluster.PutResponse
	err := cluster.PutJSON(proxyCtx, primary+"/kv/"+url.PathEscape(key), cluster.ValueEnvelope{Value: value}, &resp)
	if err != nil {
		return 0, fmt.Errorf("proxy to primary %s: %w", primary, err)
	}
	return resp.Acks, nil
}
