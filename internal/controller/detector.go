package controller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Detector is the controller's failure detector: a background loop that
// ticks at the check interval, flips workers whose heartbeats lapsed to
// down, and drives the recovery dispatcher until every deficit it caused
// has been repaired.
type Detector struct {
	registry *Registry
	recovery *Recovery
	interval time.Duration
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	deficit bool
}

// NewDetector builds a detector ticking every interval and expiring
// workers silent for longer than timeout.
func NewDetector(registry *Registry, recovery *Recovery, interval, timeout time.Duration) *Detector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Detector{
		registry: registry,
		recovery: recovery,
		interval: interval,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the detector loop until the context (or Stop) cancels it.
// Run it in its own goroutine.
func (d *Detector) Start(ctx context.Context) {
	d.wg.Add(1)
	defer d.wg.Done()

	if ctx == nil {
		ctx = d.ctx
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Printf("controller: failure detector started (interval %v, timeout %v)", d.interval, d.timeout)
	for {
		select {
		case <-ticker.C:
			d.tick()
		case <-ctx.Done():
			return
		case <-d.ctx.Done():
			return
		}
	}
}

// Stop cancels the loop and waits for it to finish.
func (d *Detector) Stop() {
	d.cancel()
	d.wg.Wait()
}

// RequestRecovery queues a recovery pass for the next tick. The
// heartbeat handler calls this when a worker revives, since membership
// growth can fill previously truncated replica sets.
func (d *Detector) RequestRecovery() {
	d.mu.Lock()
	d.deficit = true
	d.mu.Unlock()
}

// tick runs one detector iteration: expire lapsed workers, then run a
// recovery pass if any deficit is outstanding. The deficit flag is
// consumed before the pass starts, so a RequestRecovery arriving while
// the pass is in flight (a revival landing mid-pass, say) stays queued
// for the next tick instead of being clobbered by this pass's outcome.
// A pass that reports failures re-queues itself.
func (d *Detector) tick() {
	for _, id := range d.registry.ExpireStale(d.timeout) {
		log.Printf("controller: worker %s missed heartbeat window, marked down", id)
		metrics.GetOrCreateCounter("replikv_workers_marked_down_total").Inc()
		d.RequestRecovery()
	}

	d.mu.Lock()
	pending := d.deficit
	d.deficit = false
	d.mu.Unlock()
	if !pending {
		return
	}

	if failed := d.recovery.Run(d.ctx); failed > 0 {
		log.Printf("controller: recovery pass reported %d failures, will retry", failed)
		d.RequestRecovery()
	}
}
