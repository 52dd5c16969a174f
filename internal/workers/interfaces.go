// Package workers runs the client's background loops (the periodic sync job
// and the resource fetcher) as one unit.
package workers

import "context"

// Worker is a background loop that can be started and stopped.
//
// Start must return promptly and keep working in its own goroutine until
// ctx is cancelled or Stop is called. Stop blocks until the loop has exited.
//
// Example implementation:
//
//	type MyWorker struct{ cancel context.CancelFunc }
//
//	func (w *MyWorker) Start(ctx context.Context) {
//	    ctx, w.cancel = context.WithCancel(ctx)
//	    go loop(ctx)
//	}
//
//	func (w *MyWorker) Stop() { w.cancel() }
type Worker interface {
	Start(ctx context.Context)
	Stop()
}
