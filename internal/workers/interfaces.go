// Package workers runs the client's long-lived background loops together:
// the connectivity probe, the sync orchestrator and periodic housekeeping.
// The first worker to fail cancels the others.
package workers

import "context"

// Worker blocks until ctx is cancelled or it fails.
//
// Example implementation:
//
//	type probeWorker struct{ m *network.Monitor }
//
//	func (w probeWorker) Run(ctx context.Context) error {
//	    return w.m.Run(ctx)
//	}
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc adapts a function to [Worker].
type WorkerFunc func(ctx context.Context) error

func (f WorkerFunc) Run(ctx context.Context) error { return f(ctx) }
