package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/replikv/replikv/internal/cluster"
)

// Emitter periodically announces this worker to the controller. It beats
// once immediately on Start and then on every interval tick. Failures
// are logged and ignored; the emitter never blocks the request path.
type Emitter struct {
	controller string
	beat       cluster.HeartbeatRequest
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewEmitter builds an emitter that posts {id, address} to the
// controller's heartbeat endpoint every interval.
func NewEmitter(controller, id, address string, interval time.Duration) *Emitter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Emitter{
		controller: controller,
		beat:       cluster.HeartbeatRequest{ID: id, Address: address},
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs the emitter loop until the context (or Stop) cancels it.
// Run it in its own goroutine.
func (e *Emitter) Start(ctx context.Context) {
	e.wg.Add(1)
	defer e.wg.Done()

	if ctx == nil {
		ctx = e.ctx
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.send()
	for {
		select {
		case <-ticker.C:
			e.send()
		case <-ctx.Done():
			return
		case <-e.ctx.Done():
			return
		}
	}
}

// Stop cancels the loop and waits for it to finish.
func (e *Emitter) Stop() {
	e.cancel()
	e.wg.Wait()
}

func (e *Emitter) send() {
	ctx, cancel := context.WithTimeout(context.Background(), e.interval)
	defer cancel()

	if err := cluster.PostJSON(ctx, e.controller+"/heartbeat", e.beat, nil); err != nil {
		log.Printf("worker[%s] heartbeat: %v", e.beat.ID, err)
		return
	}
	metrics.GetOrCreateCounter("replikv_heartbeats_sent_total").Inc()
}
