// Package server runs the reference backend's HTTP listener with signal
// driven graceful shutdown.
package server
