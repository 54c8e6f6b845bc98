// Package dispatch owns the job queue and the single worker that processes
// it. The recognition engine is expensive to construct and not safe for
// concurrent use, so exactly one worker owns one engine for its whole
// lifetime and jobs run strictly one at a time, in submission order.
package dispatch

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/ocr"
)

// ErrQueueFull is returned by Submit when the queue is at capacity. The
// caller should surface the overload instead of waiting.
var ErrQueueFull = errors.New("job queue is full")

// Processor runs one dequeued entry to a terminal job record.
type Processor interface {
	Process(ctx context.Context, entry models.QueueEntry, engine ocr.Engine) error
}

// EngineFactory builds the recognition engine. It is invoked on the worker
// goroutine so the construction cost is paid once, by the owner.
type EngineFactory func() (ocr.Engine, error)

type Dispatcher struct {
	queue     chan models.QueueEntry
	stop      chan struct{}
	done      chan struct{}
	newEngine EngineFactory
	processor Processor

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Dispatcher with a bounded queue. Nothing is processed until
// Start is called.
func New(capacity int, factory EngineFactory, processor Processor) *Dispatcher {
	if capacity < 1 {
		capacity = 1
	}
	return &Dispatcher{
		queue:     make(chan models.QueueEntry, capacity),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		newEngine: factory,
		processor: processor,
	}
}

// Start launches the worker goroutine.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Submit enqueues an entry without blocking. A full queue fails fast with
// ErrQueueFull so submission never hangs on a saturated worker.
func (d *Dispatcher) Submit(entry models.QueueEntry) error {
	select {
	case d.queue <- entry:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending reports how many entries are waiting in the queue.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Stop signals the worker to exit after its current job and waits for it,
// bounded by the context. Entries still queued are dropped; the queue is
// in-memory and makes no durability promise across a shutdown.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	engine, err := d.newEngine()
	if err != nil {
		// Without an engine no job can reach a terminal state; leave
		// everything queued and let the operator restart the service.
		log.Printf("Recognition engine initialization failed, worker not starting: %v", err)
		return
	}
	defer engine.Close()
	log.Println("Recognition worker ready")

	for {
		select {
		case <-d.stop:
			return
		case entry := <-d.queue:
			if err := d.processor.Process(context.Background(), entry, engine); err != nil {
				// The processor already recorded the failure; one job's
				// error never stops the worker.
				log.Printf("Job %s finished with error: %v", entry.JobID, err)
			}
		}
	}
}
