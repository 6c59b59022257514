package controller

import (
	"context"
	"log"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/exp/slices"

	"github.com/replikv/replikv/internal/cluster"
)

// Recovery rebuilds the replica sets of under-replicated keys by
// instructing targets to pull from donors that still hold a copy.
type Recovery struct {
	registry *Registry
	replicas int
	timeout  time.Duration
}

// NewRecovery wires a dispatcher over the registry. replicas is the
// configured replication factor; timeout bounds each outbound call.
func NewRecovery(registry *Registry, replicas int, timeout time.Duration) *Recovery {
	return &Recovery{
		registry: registry,
		replicas: replicas,
		timeout:  timeout,
	}
}

// pullJob identifies one batched pull instruction: target fetches a list
// of keys from donor.
type pullJob struct {
	target string
	donor  string
}

// Run executes one recovery pass: union the key listings of the live
// workers, recompute every key's ideal replica set under the current
// membership, and dispatch one batched pull per (target, donor) pair for
// the keys each ideal member is missing. Returns the number of keys
// whose deficit could not be repaired this pass plus one for every live
// worker whose key listing failed; the caller retries on its next tick
// while that is non-zero.
func (r *Recovery) Run(ctx context.Context) int {
	live := r.registry.Live()
	if len(live) == 0 {
		return 0
	}

	keysByWorker := make(map[string][]string, len(live))
	failed := 0
	for _, w := range live {
		listCtx, cancel := context.WithTimeout(ctx, r.timeout)
		var resp cluster.KeysResponse
		err := cluster.GetJSON(listCtx, w.Address+"/keys", &resp)
		cancel()
		if err != nil {
			// A worker we cannot list may be about to flip down; skip
			// it and let the next pass see the settled membership.
			log.Printf("recovery: list keys on %s: %v", w.ID, err)
			failed++
			continue
		}
		keysByWorker[w.Address] = resp.Keys
	}

	plan := buildPlan(keysByWorker, live, r.replicas)
	if len(plan) == 0 {
		return failed
	}

	for job, keys := range plan {
		slices.Sort(keys)
		pullCtx, cancel := context.WithTimeout(ctx, r.timeout+time.Duration(len(keys))*r.timeout)
		var resp cluster.PullResponse
		err := cluster.PostJSON(pullCtx, job.target+"/pull", cluster.PullRequest{Donor: job.donor, Keys: keys}, &resp)
		cancel()
		if err != nil {
			log.Printf("recovery: pull %d keys %s <- %s: %v", len(keys), job.target, job.donor, err)
			metrics.GetOrCreateCounter("replikv_recovery_pull_failures_total").Inc()
			failed += len(keys)
			continue
		}
		log.Printf("recovery: %s pulled %d keys from %s (%d failed)", job.target, resp.Pulled, job.donor, resp.Failed)
		metrics.GetOrCreateCounter("replikv_recovery_keys_pulled_total").Add(resp.Pulled)
		failed += resp.Failed
	}
	return failed
}

// buildPlan computes the pull batches for the current deficit.
// keysByWorker maps a live worker address to the keys it reported; live
// is the canonical membership the ideal replica sets are computed over.
func buildPlan(keysByWorker map[string][]string, live []cluster.WorkerInfo, replicas int) map[pullJob][]string {
	holders := make(map[string]map[string]bool)
	for addr, keys := range keysByWorker {
		for _, key := range keys {
			if holders[key] == nil {
				holders[key] = make(map[string]bool)
			}
			holders[key][addr] = true
		}
	}

	plan := make(map[pullJob][]string)
	for key, have := range holders {
		ideal, err := ReplicaSet(key, live, replicas)
		if err != nil {
			continue
		}
		for _, w := range ideal {
			if have[w.Address] {
				continue
			}
			donor := pickDonor(have)
			if donor == "" {
				continue
			}
			job := pullJob{target: w.Address, donor: donor}
			plan[job] = append(plan[job], key)
		}
	}
	return plan
}

// pickDonor returns any holder address. Map iteration order varies per
// pass, which spreads donor load across holders the way the original
// randomized choice did.
func pickDonor(have map[string]bool) string {
	for addr := range have {
		return addr
	}
	return ""
}
