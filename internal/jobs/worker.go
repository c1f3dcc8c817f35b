package jobs

import (
	"context"
	"log"
	"time"
)

// shutdownDrainTimeout bounds the final processing pass on shutdown.
const shutdownDrainTimeout = 10 * time.Second

// JobProcessor is the unit of work a Worker runs each poll cycle.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor on a fixed poll cycle until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a Worker polling at the given interval.
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop
// is called. A final processing pass runs on shutdown so work enqueued
// just before the stop signal is not lost.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("worker started, poll interval %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("worker stopping: context cancelled")
			w.finalDrain()
			return
		case <-w.stopChan:
			log.Println("worker stopping: stop signal received")
			w.finalDrain()
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("worker: error processing jobs: %v", err)
			}
		}
	}
}

func (w *Worker) finalDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
	defer cancel()
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("worker: error in final drain: %v", err)
	}
}

// Stop signals the worker and blocks until its loop has exited.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("worker shutdown complete")
}
