// Package jobs runs the background side of ingestion: periodic pollers that
// drain work the request path left behind.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/telemetry"
)

// JobProcessor is one poll pass over pending work. A returned error aborts
// the pass, not the loop.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed interval until its context is
// cancelled or Stop is called.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks on the polling loop. Run it in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("background worker polling every %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("background worker stopping: context cancelled")
			return
		case <-w.stopChan:
			log.Println("background worker stopping: stop requested")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("background worker pass failed: %v", err)
				telemetry.CaptureError(ctx, err)
			}
		}
	}
}

// Stop signals the loop and waits for the in-flight pass to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("background worker stopped")
}
