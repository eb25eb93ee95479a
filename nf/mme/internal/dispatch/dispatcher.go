// Package dispatch implements the Event Dispatcher: a sharded worker
// pool that guarantees single-threaded, in-order event delivery per UE
// while processing independent UEs in parallel, mirroring the donor
// main.go's goroutine-per-concern layout and graceful-shutdown pattern
// (context cancellation + WaitGroup drain).
package dispatch

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"github.com/openepc/mme/nf/mme/internal/emm"
)

// Job is one unit of work the Dispatcher delivers to the FSM: the target
// UE plus the event to hand it.
type Job struct {
	UE    *uectx.UEContext
	Event emm.Event
}

// Dispatcher hashes each job to one of a fixed set of shards by a caller
// supplied key (UEContext.ShardKey()), so a given UE's events always
// land on the same goroutine and are processed strictly in arrival
// order, while different UEs run concurrently across shards.
type Dispatcher struct {
	fsm    *emm.FSM
	logger *zap.Logger

	shards []chan Job
	wg     sync.WaitGroup
}

// New builds a Dispatcher with the given shard count, each backed by a
// buffered FIFO channel of the given depth.
func New(fsm *emm.FSM, shardCount, queueDepth int, logger *zap.Logger) *Dispatcher {
	if shardCount < 1 {
		shardCount = 1
	}
	d := &Dispatcher{
		fsm:    fsm,
		logger: logger,
		shards: make([]chan Job, shardCount),
	}
	for i := range d.shards {
		d.shards[i] = make(chan Job, queueDepth)
	}
	return d
}

// Start launches one worker goroutine per shard. Workers run until ctx
// is cancelled and their shard channel is drained and closed.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, shard := range d.shards {
		d.wg.Add(1)
		go d.worker(ctx, i, shard)
	}
}

func (d *Dispatcher) worker(ctx context.Context, shardID int, jobs chan Job) {
	defer d.wg.Done()
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			d.fsm.Handle(ctx, job.UE, job.Event)
		case <-ctx.Done():
			d.drain(shardID, jobs)
			return
		}
	}
}

// drain processes whatever is already queued on a shard before exiting,
// so an in-flight cancellation does not strand events mid-procedure.
func (d *Dispatcher) drain(shardID int, jobs chan Job) {
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			d.fsm.Handle(context.Background(), job.UE, job.Event)
		default:
			return
		}
	}
}

// Submit routes a job to the shard owned by key — callers should use
// UEContext.ShardKey() so that NAS events and timer expiries for the
// same UE always hash identically, regardless of whether its IMSI has
// been learned yet. Submit blocks while the shard's queue already holds
// queueDepth jobs, until its worker takes one off.
func (d *Dispatcher) Submit(key string, job Job) {
	shard := d.shardFor(key)
	d.shards[shard] <- job
}

func (d *Dispatcher) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(d.shards)
}

// Shutdown waits for every worker to finish draining. Callers must
// cancel the context passed to Start before calling Shutdown.
func (d *Dispatcher) Shutdown() {
	for _, shard := range d.shards {
		close(shard)
	}
	d.wg.Wait()
}
