package dispatch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docrlabs/docr-go/internal/dispatch"
	"github.com/docrlabs/docr-go/internal/models"
	"github.com/docrlabs/docr-go/internal/ocr"
	"github.com/docrlabs/docr-go/internal/ocr/mockocr"
)

// recordingProcessor records the order in which entries are processed and can
// block to simulate a slow job.
type recordingProcessor struct {
	mu        sync.Mutex
	processed []string
	block     chan struct{} // when non-nil, each Process waits on it
	fail      bool
}

func (p *recordingProcessor) Process(_ context.Context, entry models.QueueEntry, _ ocr.Engine) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.processed = append(p.processed, entry.JobID)
	p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("boom")
	}
	return nil
}

func (p *recordingProcessor) order() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}

func engineFactory() (ocr.Engine, error) {
	return mockocr.New(), nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met in time")
}

func TestDispatcher_ProcessesInSubmissionOrder(t *testing.T) {
	proc := &recordingProcessor{}
	d := dispatch.New(10, engineFactory, proc)

	for i := 0; i < 5; i++ {
		if err := d.Submit(models.QueueEntry{JobID: fmt.Sprintf("job-%d", i)}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	d.Start()

	waitFor(t, func() bool { return len(proc.order()) == 5 })
	for i, id := range proc.order() {
		if id != fmt.Sprintf("job-%d", i) {
			t.Errorf("Expected job-%d at position %d, got %s", i, i, id)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestDispatcher_SubmitFailsFastWhenFull(t *testing.T) {
	// Worker never started, so the queue fills up.
	d := dispatch.New(2, engineFactory, &recordingProcessor{})

	if err := d.Submit(models.QueueEntry{JobID: "a"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := d.Submit(models.QueueEntry{JobID: "b"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	start := time.Now()
	err := d.Submit(models.QueueEntry{JobID: "c"})
	if err != dispatch.ErrQueueFull {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Submit on a full queue must not block")
	}
	if d.Pending() != 2 {
		t.Errorf("Expected 2 pending entries, got %d", d.Pending())
	}
}

func TestDispatcher_FailedJobDoesNotStopWorker(t *testing.T) {
	proc := &recordingProcessor{fail: true}
	d := dispatch.New(10, engineFactory, proc)
	d.Start()

	d.Submit(models.QueueEntry{JobID: "first"})
	d.Submit(models.QueueEntry{JobID: "second"})

	waitFor(t, func() bool { return len(proc.order()) == 2 })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestDispatcher_StopWaitsForInFlightJob(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	d := dispatch.New(10, engineFactory, proc)
	d.Start()

	d.Submit(models.QueueEntry{JobID: "slow"})
	// Give the worker time to dequeue the entry.
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stopped <- d.Stop(ctx)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(proc.block)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if len(proc.order()) != 1 {
		t.Errorf("Expected the in-flight job to finish, processed %d", len(proc.order()))
	}
}

func TestDispatcher_EngineFactoryFailure(t *testing.T) {
	d := dispatch.New(10, func() (ocr.Engine, error) {
		return nil, fmt.Errorf("sidecar down")
	}, &recordingProcessor{})
	d.Start()

	// The worker exits without an engine; Stop must still return promptly.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop failed after engine init failure: %v", err)
	}
}
