package server

import "context"

// Server is the lifecycle of the backend listener.
type Server interface {
	// RunServer serves until ctx is cancelled or SIGTERM, SIGINT or SIGQUIT
	// arrives, then shuts down gracefully. It returns the listener error, if
	// any.
	RunServer(ctx context.Context) error

	// Shutdown stops accepting connections and waits for in-flight requests
	// up to the shutdown timeout.
	Shutdown()
}
